package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentoven/agentdesk/pkg/models"
)

const maxWebBody = 64 * 1024

type webTool struct {
	client   *http.Client
	endpoint string
}

// NewWebTool fetches a URL, or queries searchEndpoint for free text. The
// endpoint may contain a {query} placeholder; otherwise a q parameter is
// appended.
func NewWebTool(client *http.Client, searchEndpoint string) Tool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &webTool{client: client, endpoint: searchEndpoint}
}

func (t *webTool) Name() string                  { return "web" }
func (t *webTool) Category() models.ToolCategory { return models.ToolCategorySearch }
func (t *webTool) Description() string           { return "Fetch a web page or run a web search" }
func (t *webTool) Accepts() []models.ParamsKind  { return nil }

func (t *webTool) Validate(req models.ToolRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return errors.New("a URL or search query is required")
	}
	return nil
}

func (t *webTool) target(query string) (string, error) {
	if u, err := url.Parse(query); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return u.String(), nil
	}
	if t.endpoint == "" {
		return "", errors.New("no web search endpoint configured")
	}
	if strings.Contains(t.endpoint, "{query}") {
		return strings.ReplaceAll(t.endpoint, "{query}", url.QueryEscape(query)), nil
	}
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", fmt.Errorf("search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (t *webTool) Execute(ctx context.Context, req models.ToolRequest) (Output, error) {
	target, err := t.target(strings.TrimSpace(req.Query))
	if err != nil {
		return Output{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Output{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "agentdesk/1.0")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Output{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebBody+1))
	if err != nil {
		return Output{}, fmt.Errorf("read body: %w", err)
	}
	truncated := len(body) > maxWebBody
	if truncated {
		body = body[:maxWebBody]
	}

	out := textOutput(string(body)).
		with("url", target).
		with("status", resp.StatusCode).
		with("content_type", resp.Header.Get("Content-Type")).
		with("truncated", truncated)
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("%s returned status %d", target, resp.StatusCode)
	}
	return out, nil
}
