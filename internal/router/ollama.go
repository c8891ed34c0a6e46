package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Ollama Adapter ──────────────────────────────────────────

const defaultOllamaURL = "http://localhost:11434"

type ollamaAdapter struct {
	client *http.Client
}

func NewOllamaAdapter(client *http.Client) Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &ollamaAdapter{client: client}
}

func (a *ollamaAdapter) Kind() string { return "ollama" }

// bearerTransport adds an Authorization header for Ollama servers behind a
// reverse proxy that requires one.
type bearerTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(req)
}

func (a *ollamaAdapter) httpClient(apiKey string) *http.Client {
	if apiKey == "" {
		return a.client
	}
	base := a.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c := *a.client
	c.Transport = &bearerTransport{base: base, apiKey: apiKey}
	return &c
}

func (a *ollamaAdapter) Chat(ctx context.Context, t Target, req models.ChatRequest) (*models.ChatResponse, error) {
	raw := t.Provider.BaseURL
	if raw == "" {
		raw = defaultOllamaURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, invalidResponse(t.Provider.ID, fmt.Sprintf("bad base URL %q: %v", raw, err))
	}
	client := api.NewClient(base, a.httpClient(t.APIKey))

	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = models.RoleUser
		}
		messages = append(messages, api.Message{Role: role, Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    t.Model.ID,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
			"num_predict": maxTokens(req),
		},
	}

	var content strings.Builder
	var final api.ChatResponse
	done := false
	err = client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			final = resp
			done = true
		}
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return nil, statusError(t.Provider.ID, statusErr.StatusCode, err)
		}
		return nil, asProviderError(t.Provider.ID, err)
	}
	if !done {
		return nil, invalidResponse(t.Provider.ID, "stream ended before completion")
	}

	return &models.ChatResponse{
		Content:      content.String(),
		InputTokens:  int64(final.PromptEvalCount),
		OutputTokens: int64(final.EvalCount),
	}, nil
}
