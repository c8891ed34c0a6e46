package router

import (
	"context"
	"net/http"

	"github.com/agentoven/agentdesk/pkg/models"
)

// Target is the resolved destination of a chat call.
type Target struct {
	Provider models.Provider
	Model    models.Model
	APIKey   string
}

// Adapter performs the network call for one family of provider APIs.
// Adapters classify their transport failures as *ProviderError.
type Adapter interface {
	Kind() string
	Chat(ctx context.Context, target Target, req models.ChatRequest) (*models.ChatResponse, error)
}

// DefaultAdapters returns the built-in adapters sharing one HTTP client.
func DefaultAdapters(client *http.Client) []Adapter {
	return []Adapter{
		NewOpenAIAdapter(client),
		NewAnthropicAdapter(client),
		NewGoogleAdapter(client),
		NewOllamaAdapter(client),
	}
}

const defaultMaxTokens = 1024

func maxTokens(req models.ChatRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
