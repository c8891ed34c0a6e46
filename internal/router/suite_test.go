package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/agentdesk/internal/credentials"
	"github.com/agentoven/agentdesk/pkg/models"
)

type window struct{ start, end time.Time }

// fakeTester sleeps for a scripted latency per provider and records the
// time window of each call.
type fakeTester struct {
	mu        sync.Mutex
	latencies map[string]time.Duration
	fail      map[string]bool
	secrets   []string
	windows   []window
	active    int
	maxActive int
}

func (f *fakeTester) TestConnection(ctx context.Context, providerID, modelID, secret string) models.ConnectionResult {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.secrets = append(f.secrets, secret)
	f.mu.Unlock()

	start := time.Now()
	time.Sleep(f.latencies[providerID])
	end := time.Now()

	f.mu.Lock()
	f.active--
	f.windows = append(f.windows, window{start, end})
	f.mu.Unlock()

	res := models.ConnectionResult{
		Provider:  providerID,
		Model:     modelID,
		Success:   !f.fail[providerID],
		LatencyMs: f.latencies[providerID].Milliseconds(),
	}
	if f.fail[providerID] {
		res.Error = "auth: rejected"
	}
	return res
}

func TestSuiteRunsSequentially(t *testing.T) {
	tester := &fakeTester{latencies: map[string]time.Duration{
		"a": 10 * time.Millisecond,
		"b": 20 * time.Millisecond,
		"c": 30 * time.Millisecond,
	}}
	runner := NewSuiteRunner(tester, nil, 5*time.Millisecond)

	var progress []SuiteProgress
	report := runner.Run(context.Background(), []Pair{{"a", "m"}, {"b", "m"}, {"c", "m"}}, func(p SuiteProgress) {
		progress = append(progress, p)
	})

	require.Len(t, tester.windows, 3)
	assert.Equal(t, 1, tester.maxActive)
	for i := 1; i < len(tester.windows); i++ {
		assert.False(t, tester.windows[i].start.Before(tester.windows[i-1].end), "test %d overlapped its predecessor", i)
	}

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, int64(20), report.AverageLatencyMs)
	assert.Equal(t, []string{"a", "b", "c"}, []string{report.Results[0].Provider, report.Results[1].Provider, report.Results[2].Provider})

	require.Len(t, progress, 3)
	assert.Equal(t, 33, progress[0].Percent)
	assert.Equal(t, 66, progress[1].Percent)
	assert.Equal(t, 100, progress[2].Percent)
	assert.Equal(t, "c", progress[2].Last.Provider)
}

func TestSuiteMarksCredentials(t *testing.T) {
	store := credentials.NewStore()
	store.Set("good", "k1")
	store.Set("bad", "k2")

	tester := &fakeTester{
		latencies: map[string]time.Duration{"good": time.Millisecond, "bad": time.Millisecond},
		fail:      map[string]bool{"bad": true},
	}
	report := NewSuiteRunner(tester, store, 0).Run(context.Background(), []Pair{{"good", "m"}, {"bad", "m"}, {"local", "m"}}, nil)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"k1", "k2", ""}, tester.secrets)

	good, _ := store.Get("good")
	assert.True(t, good.Validated)
	require.NotNil(t, good.LastLatencyMs)

	bad, _ := store.Get("bad")
	assert.False(t, bad.Validated)
	assert.Equal(t, "auth: rejected", bad.LastError)

	_, ok := store.Get("local")
	assert.False(t, ok)
}

func TestSuiteCancellationFailsRemainingPairs(t *testing.T) {
	tester := &fakeTester{latencies: map[string]time.Duration{"a": 30 * time.Millisecond}}
	ctx, cancel := context.WithCancel(context.Background())

	runner := NewSuiteRunner(tester, nil, time.Hour)
	done := make(chan SuiteReport, 1)
	go func() {
		done <- runner.Run(ctx, []Pair{{"a", "m"}, {"b", "m"}, {"c", "m"}}, func(p SuiteProgress) {
			if p.Completed == 1 {
				cancel()
			}
		})
	}()

	select {
	case report := <-done:
		assert.Equal(t, 3, report.Total)
		assert.Len(t, report.Results, 3)
		assert.Equal(t, 1, report.Succeeded)
		assert.Equal(t, 2, report.Failed)
		assert.Equal(t, "suite cancelled", report.Results[2].Error)
		// Untested pairs do not dilute the average.
		assert.Equal(t, int64(30), report.AverageLatencyMs)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
	assert.Len(t, tester.windows, 1)
}

func TestDefaultPairs(t *testing.T) {
	cat := testCatalog(t, "http://unused")
	store := credentials.NewStore()
	store.Set("anthropic", "k")

	pairs := DefaultPairs(cat, store)
	assert.Equal(t, []Pair{
		{ProviderID: "anthropic", ModelID: "claude-test"},
		{ProviderID: "ollama", ModelID: "llama-test"},
	}, pairs)
}
