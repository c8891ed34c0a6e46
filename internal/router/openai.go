package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentoven/agentdesk/pkg/models"
)

// ── OpenAI-compatible Adapter ───────────────────────────────

// openAIAdapter speaks the Chat Completions API. Most hosted providers expose
// a compatible endpoint, so it serves every provider whose catalogue entry
// names the "openai" adapter.
type openAIAdapter struct {
	client *http.Client
}

func NewOpenAIAdapter(client *http.Client) Adapter {
	return &openAIAdapter{client: client}
}

func (a *openAIAdapter) Kind() string { return "openai" }

func (a *openAIAdapter) Chat(ctx context.Context, t Target, req models.ChatRequest) (*models.ChatResponse, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(t.APIKey),
		option.WithMaxRetries(0),
	}
	if t.Provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(t.Provider.BaseURL))
	}
	if a.client != nil {
		opts = append(opts, option.WithHTTPClient(a.client))
	}
	client := openai.NewClient(opts...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(t.Model.ID),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(maxTokens(req))),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, statusError(t.Provider.ID, apiErr.StatusCode, err)
		}
		return nil, asProviderError(t.Provider.ID, err)
	}
	if len(resp.Choices) == 0 {
		return nil, invalidResponse(t.Provider.ID, "response contained no choices")
	}

	return &models.ChatResponse{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
