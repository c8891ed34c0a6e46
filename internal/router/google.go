package router

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Google Gemini Adapter ───────────────────────────────────

type googleAdapter struct {
	client *http.Client
}

func NewGoogleAdapter(client *http.Client) Adapter {
	return &googleAdapter{client: client}
}

func (a *googleAdapter) Kind() string { return "google" }

func (a *googleAdapter) Chat(ctx context.Context, t Target, req models.ChatRequest) (*models.ChatResponse, error) {
	cfg := &genai.ClientConfig{
		APIKey:     t.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.client,
	}
	if t.Provider.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: t.Provider.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, &ProviderError{ProviderID: t.Provider.ID, Kind: KindAuth, Message: err.Error(), Err: err}
	}

	var system *genai.Content
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			if system == nil {
				system = &genai.Content{Role: genai.RoleUser}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(m.Content))
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	temperature := float32(req.Temperature)
	resp, err := client.Models.GenerateContent(ctx, t.Model.ID, contents, &genai.GenerateContentConfig{
		Temperature:       &temperature,
		MaxOutputTokens:   int32(maxTokens(req)),
		SystemInstruction: system,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, statusError(t.Provider.ID, apiErr.Code, err)
		}
		return nil, asProviderError(t.Provider.ID, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, invalidResponse(t.Provider.ID, "response contained no candidates")
	}

	out := &models.ChatResponse{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		out.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
