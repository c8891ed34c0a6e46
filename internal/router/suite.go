package router

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/internal/catalog"
	"github.com/agentoven/agentdesk/pkg/models"
)

// DefaultSuiteDelay separates consecutive connection tests.
const DefaultSuiteDelay = time.Second

// Pair names one provider/model combination to test.
type Pair struct {
	ProviderID string `json:"provider"`
	ModelID    string `json:"model"`
}

// SuiteProgress is reported after every finished pair.
type SuiteProgress struct {
	Completed int                     `json:"completed"`
	Total     int                     `json:"total"`
	Percent   int                     `json:"percent"`
	Last      models.ConnectionResult `json:"last"`
}

// SuiteReport aggregates a full suite run.
type SuiteReport struct {
	Total            int                       `json:"total"`
	Succeeded        int                       `json:"succeeded"`
	Failed           int                       `json:"failed"`
	// AverageLatencyMs is the mean over pairs that were actually tested.
	AverageLatencyMs int64                     `json:"averageLatencyMs"`
	Results          []models.ConnectionResult `json:"results"`
	StartedAt        time.Time                 `json:"startedAt"`
	FinishedAt       time.Time                 `json:"finishedAt"`
}

// Tester performs one connection test. *Router satisfies it.
type Tester interface {
	TestConnection(ctx context.Context, providerID, modelID, secret string) models.ConnectionResult
}

// CredentialStore is the part of the credential store the suite needs.
type CredentialStore interface {
	CredentialSource
	MarkValidated(providerID string, revision uint64, latencyMs int64) error
	MarkInvalid(providerID string, revision uint64, message string) error
}

// SuiteRunner tests provider/model pairs one at a time and records the
// outcome on the credential store.
type SuiteRunner struct {
	tester Tester
	creds  CredentialStore
	delay  time.Duration
}

func NewSuiteRunner(tester Tester, creds CredentialStore, delay time.Duration) *SuiteRunner {
	if delay < 0 {
		delay = 0
	}
	return &SuiteRunner{tester: tester, creds: creds, delay: delay}
}

// Run executes pairs strictly in order, waiting the configured delay between
// tests. When ctx is cancelled the untested pairs are reported as failures.
func (s *SuiteRunner) Run(ctx context.Context, pairs []Pair, onProgress func(SuiteProgress)) SuiteReport {
	report := SuiteReport{
		Total:     len(pairs),
		Results:   make([]models.ConnectionResult, 0, len(pairs)),
		StartedAt: time.Now(),
	}

	emit := func(last models.ConnectionResult) {
		if onProgress == nil {
			return
		}
		done := len(report.Results)
		onProgress(SuiteProgress{
			Completed: done,
			Total:     report.Total,
			Percent:   done * 100 / report.Total,
			Last:      last,
		})
	}

	var (
		tested     int64
		latencySum int64
	)
	for i, p := range pairs {
		if ctx.Err() != nil {
			for _, rest := range pairs[i:] {
				res := models.ConnectionResult{Provider: rest.ProviderID, Model: rest.ModelID, Error: "suite cancelled"}
				report.Results = append(report.Results, res)
				emit(res)
			}
			break
		}

		res := s.testOne(ctx, p)
		tested++
		latencySum += res.LatencyMs
		report.Results = append(report.Results, res)
		emit(res)

		if i < len(pairs)-1 && s.delay > 0 {
			t := time.NewTimer(s.delay)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}

	for _, r := range report.Results {
		if r.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	if tested > 0 {
		report.AverageLatencyMs = latencySum / tested
	}
	report.FinishedAt = time.Now()

	log.Info().
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int64("avg_latency_ms", report.AverageLatencyMs).
		Msg("Provider test suite finished")
	return report
}

func (s *SuiteRunner) testOne(ctx context.Context, p Pair) models.ConnectionResult {
	var (
		secret   string
		revision uint64
		stored   bool
	)
	if s.creds != nil {
		secret, revision, stored = s.creds.Secret(p.ProviderID)
	}

	res := s.tester.TestConnection(ctx, p.ProviderID, p.ModelID, secret)
	if !stored {
		return res
	}

	var err error
	if res.Success {
		err = s.creds.MarkValidated(p.ProviderID, revision, res.LatencyMs)
	} else {
		err = s.creds.MarkInvalid(p.ProviderID, revision, res.Error)
	}
	if err != nil {
		// The secret changed or was removed while the test ran.
		log.Debug().Err(err).Str("provider", p.ProviderID).Msg("Discarding validation result")
	}
	return res
}

// DefaultPairs returns the first model of every provider that needs no
// credential or already has one stored.
func DefaultPairs(cat *catalog.Catalog, creds CredentialSource) []Pair {
	var pairs []Pair
	for _, p := range cat.ListProviders() {
		if p.RequiresCredential {
			if creds == nil {
				continue
			}
			if _, _, ok := creds.Secret(p.ID); !ok {
				continue
			}
		}
		pairs = append(pairs, Pair{ProviderID: p.ID, ModelID: p.Models[0].ID})
	}
	return pairs
}
