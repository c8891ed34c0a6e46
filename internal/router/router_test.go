package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/agentdesk/internal/catalog"
	"github.com/agentoven/agentdesk/internal/credentials"
	"github.com/agentoven/agentdesk/pkg/models"
)

func price(v float64) *float64 { return &v }

// testCatalog points every adapter kind at baseURL.
func testCatalog(t *testing.T, baseURL string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]models.Provider{
		{ID: "openai", DisplayName: "OpenAI", RequiresCredential: true, Adapter: catalog.AdapterOpenAI, BaseURL: baseURL + "/v1",
			Models: []models.Model{{ID: "gpt-test", InputCostPerMillionTokens: price(2), OutputCostPerMillionTokens: price(8)}}},
		{ID: "anthropic", DisplayName: "Anthropic", RequiresCredential: true, Adapter: catalog.AdapterAnthropic, BaseURL: baseURL,
			Models: []models.Model{{ID: "claude-test"}}},
		{ID: "google", DisplayName: "Google", RequiresCredential: true, Adapter: catalog.AdapterGoogle, BaseURL: baseURL,
			Models: []models.Model{{ID: "gemini-test"}}},
		{ID: "ollama", DisplayName: "Ollama", Adapter: catalog.AdapterOllama, BaseURL: baseURL,
			Models: []models.Model{{ID: "llama-test"}}},
	})
	require.NoError(t, err)
	return cat
}

func userMessage(s string) []models.ChatMessage {
	return []models.ChatMessage{{Role: models.RoleUser, Content: s}}
}

// countingAdapter records calls and returns a canned response.
type countingAdapter struct {
	kind  string
	calls atomic.Int32
	resp  models.ChatResponse
	err   error
}

func (a *countingAdapter) Kind() string { return a.kind }

func (a *countingAdapter) Chat(ctx context.Context, t Target, req models.ChatRequest) (*models.ChatResponse, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	resp := a.resp
	return &resp, nil
}

func TestChatOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1000,"completion_tokens":500,"total_tokens":1500}}`))
	}))
	defer srv.Close()

	r := New(testCatalog(t, srv.URL), WithHTTPClient(srv.Client()))
	resp, err := r.Chat(context.Background(), models.ChatRequest{
		Provider: "openai", Model: "gpt-test", APIKey: "sk-test", Messages: userMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "openai", resp.Provider)
	require.NotNil(t, resp.TokensUsed)
	assert.Equal(t, int64(1500), *resp.TokensUsed)

	usage := r.Usage()
	assert.Equal(t, int64(1), usage.Requests)
	assert.Equal(t, int64(1500), usage.TotalTokens)
	// 1000 * 2/1M + 500 * 8/1M
	assert.InDelta(t, 0.006, usage.TotalCostUSD, 1e-9)
	assert.InDelta(t, 0.006, usage.ByModel["openai/gpt-test"], 1e-9)
}

func TestChatAnthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotNil(t, body["system"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"bonjour"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":4,"output_tokens":2}}`))
	}))
	defer srv.Close()

	r := New(testCatalog(t, srv.URL), WithHTTPClient(srv.Client()))
	resp, err := r.Chat(context.Background(), models.ChatRequest{
		Provider: "anthropic", Model: "claude-test", APIKey: "sk-ant",
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: "be brief"},
			{Role: models.RoleUser, Content: "hello"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", resp.Content)
	assert.Equal(t, int64(4), resp.InputTokens)
	assert.Equal(t, int64(2), resp.OutputTokens)
}

func TestChatGoogle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hola"}]}}],
			"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":3}}`))
	}))
	defer srv.Close()

	r := New(testCatalog(t, srv.URL), WithHTTPClient(srv.Client()))
	resp, err := r.Chat(context.Background(), models.ChatRequest{
		Provider: "google", Model: "gemini-test", APIKey: "g-key", Messages: userMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Content)
	require.NotNil(t, resp.TokensUsed)
	assert.Equal(t, int64(8), *resp.TokensUsed)
}

func TestChatGoogleKeepsEverySystemMessage(t *testing.T) {
	var body struct {
		SystemInstruction struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
		Contents []json.RawMessage `json:"contents"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	r := New(testCatalog(t, srv.URL), WithHTTPClient(srv.Client()))
	_, err := r.Chat(context.Background(), models.ChatRequest{
		Provider: "google", Model: "gemini-test", APIKey: "g-key",
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: "be brief"},
			{Role: models.RoleSystem, Content: "answer in french"},
			{Role: models.RoleUser, Content: "hi"},
		},
	})
	require.NoError(t, err)
	require.Len(t, body.SystemInstruction.Parts, 2)
	assert.Equal(t, "be brief", body.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "answer in french", body.SystemInstruction.Parts[1].Text)
	assert.Len(t, body.Contents, 1)
}

func TestChatOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama-test","message":{"role":"assistant","content":"ciao"},` +
			`"done":true,"prompt_eval_count":7,"eval_count":3}` + "\n"))
	}))
	defer srv.Close()

	r := New(testCatalog(t, srv.URL), WithHTTPClient(srv.Client()))
	resp, err := r.Chat(context.Background(), models.ChatRequest{
		Provider: "ollama", Model: "llama-test", Messages: userMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ciao", resp.Content)
	assert.Equal(t, int64(7), resp.InputTokens)
	assert.Equal(t, int64(3), resp.OutputTokens)
}

func TestChatMissingCredentialMakesNoCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	fake := &countingAdapter{kind: catalog.AdapterOpenAI}
	r := New(testCatalog(t, srv.URL), WithAdapter(fake), WithCredentials(credentials.NewStore()))

	_, err := r.Chat(context.Background(), models.ChatRequest{
		Provider: "openai", Model: "gpt-test", Messages: userMessage("hi"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)

	var mc *MissingCredentialError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "openai", mc.ProviderID)
	assert.Zero(t, fake.calls.Load())
	assert.Zero(t, hits.Load())
}

func TestChatFallsBackToStoredCredential(t *testing.T) {
	store := credentials.NewStore()
	store.Set("openai", "sk-stored")

	var gotKey string
	fake := &countingAdapter{kind: catalog.AdapterOpenAI, resp: models.ChatResponse{Content: "ok"}}
	capture := adapterFunc{kind: catalog.AdapterOpenAI, fn: func(t Target) { gotKey = t.APIKey }, next: fake}

	r := New(testCatalog(t, "http://unused"), WithAdapter(capture), WithCredentials(store))
	_, err := r.Chat(context.Background(), models.ChatRequest{
		Provider: "openai", Model: "gpt-test", Messages: userMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-stored", gotKey)

	// An explicit key wins over the stored one.
	_, err = r.Chat(context.Background(), models.ChatRequest{
		Provider: "openai", Model: "gpt-test", APIKey: "sk-explicit", Messages: userMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-explicit", gotKey)
}

type adapterFunc struct {
	kind string
	fn   func(Target)
	next Adapter
}

func (a adapterFunc) Kind() string { return a.kind }

func (a adapterFunc) Chat(ctx context.Context, t Target, req models.ChatRequest) (*models.ChatResponse, error) {
	a.fn(t)
	return a.next.Chat(ctx, t, req)
}

func TestChatLookupErrors(t *testing.T) {
	r := New(testCatalog(t, "http://unused"))

	_, err := r.Chat(context.Background(), models.ChatRequest{Provider: "nope", Model: "x", Messages: userMessage("hi")})
	assert.ErrorIs(t, err, catalog.ErrProviderNotFound)

	_, err = r.Chat(context.Background(), models.ChatRequest{Provider: "ollama", Model: "missing", Messages: userMessage("hi")})
	assert.ErrorIs(t, err, catalog.ErrModelNotFound)

	_, err = r.Chat(context.Background(), models.ChatRequest{Provider: "ollama", Model: "llama-test"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestProviderErrorKinds(t *testing.T) {
	tests := []struct {
		status    int
		kind      ErrorKind
		retryable bool
	}{
		{http.StatusUnauthorized, KindAuth, false},
		{http.StatusForbidden, KindAuth, false},
		{http.StatusTooManyRequests, KindRateLimit, true},
		{http.StatusInternalServerError, KindNetwork, true},
		{http.StatusBadRequest, KindInvalidResponse, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error"}}`))
			}))
			defer srv.Close()

			r := New(testCatalog(t, srv.URL), WithHTTPClient(srv.Client()))
			_, err := r.Chat(context.Background(), models.ChatRequest{
				Provider: "openai", Model: "gpt-test", APIKey: "sk", Messages: userMessage("hi"),
			})

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.retryable, pe.Retryable())
			assert.Equal(t, int32(1), hits.Load(), "router must not retry")
		})
	}
}

func TestProviderErrorNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := New(testCatalog(t, url))
	_, err := r.Chat(context.Background(), models.ChatRequest{
		Provider: "ollama", Model: "llama-test", Messages: userMessage("hi"),
	})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindNetwork, pe.Kind)
	assert.True(t, pe.Retryable())
}

func TestRequestsPerMinuteBlocksBeforeCall(t *testing.T) {
	fake := &countingAdapter{kind: catalog.AdapterOllama, resp: models.ChatResponse{Content: "ok"}}
	r := New(testCatalog(t, "http://unused"), WithAdapter(fake), WithRequestsPerMinute(1))

	req := models.ChatRequest{Provider: "ollama", Model: "llama-test", Messages: userMessage("hi")}
	_, err := r.Chat(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = r.Chat(ctx, req)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindNetwork, pe.Kind)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestTestConnection(t *testing.T) {
	store := credentials.NewStore()
	store.Set("openai", "sk-stored")

	var req models.ChatRequest
	fake := &recordingAdapter{kind: catalog.AdapterOpenAI, record: func(t Target, r models.ChatRequest) { req = r }}
	r := New(testCatalog(t, "http://unused"), WithAdapter(fake), WithCredentials(store))

	res := r.TestConnection(context.Background(), "openai", "gpt-test", "sk-given")
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, testPrompt, req.Messages[0].Content)
	assert.Equal(t, testMaxTokens, req.MaxTokens)
	assert.Zero(t, req.Temperature)

	// The store is never consulted or changed.
	res = r.TestConnection(context.Background(), "openai", "gpt-test", "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "missing credential")

	cred, ok := store.Get("openai")
	require.True(t, ok)
	assert.False(t, cred.Validated)
	assert.Empty(t, cred.LastError)
}

func TestTestConnectionReportsProviderError(t *testing.T) {
	fake := &countingAdapter{kind: catalog.AdapterOpenAI, err: &ProviderError{ProviderID: "openai", Kind: KindAuth, Message: "bad key"}}
	r := New(testCatalog(t, "http://unused"), WithAdapter(fake))

	res := r.TestConnection(context.Background(), "openai", "gpt-test", "sk")
	assert.False(t, res.Success)
	assert.Equal(t, "auth: bad key", res.Error)
	assert.GreaterOrEqual(t, res.LatencyMs, int64(0))
}

type recordingAdapter struct {
	kind   string
	record func(Target, models.ChatRequest)
}

func (a *recordingAdapter) Kind() string { return a.kind }

func (a *recordingAdapter) Chat(ctx context.Context, t Target, req models.ChatRequest) (*models.ChatResponse, error) {
	a.record(t, req)
	return &models.ChatResponse{Content: "OK"}, nil
}

func TestAsProviderErrorContext(t *testing.T) {
	pe := asProviderError("x", context.DeadlineExceeded)
	assert.Equal(t, KindNetwork, pe.Kind)
	assert.Equal(t, "request timed out", pe.Message)
	assert.True(t, errors.Is(pe, context.DeadlineExceeded))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	got := truncate("añb", 2)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "a…", got)
	assert.Equal(t, "short", truncate("short", 10))
}
