package router

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Anthropic Adapter ───────────────────────────────────────

type anthropicAdapter struct {
	client *http.Client
}

func NewAnthropicAdapter(client *http.Client) Adapter {
	return &anthropicAdapter{client: client}
}

func (a *anthropicAdapter) Kind() string { return "anthropic" }

func (a *anthropicAdapter) Chat(ctx context.Context, t Target, req models.ChatRequest) (*models.ChatResponse, error) {
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
	client := sdk.NewClient(opts...)

	// System prompts travel separately; consecutive turns keep their roles.
	var system []sdk.TextBlockParam
	conversation := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, sdk.TextBlockParam{Text: m.Content})
		case models.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(t.Model.ID),
		MaxTokens:   int64(maxTokens(req)),
		Messages:    conversation,
		Temperature: sdk.Float(req.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, statusError(t.Provider.ID, apiErr.StatusCode, err)
		}
		return nil, asProviderError(t.Provider.ID, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 && len(msg.Content) == 0 {
		return nil, invalidResponse(t.Provider.ID, "response contained no content blocks")
	}

	return &models.ChatResponse{
		Content:      text.String(),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}
