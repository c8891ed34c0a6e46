// Package executor implements the assistant pipeline and the background task
// handlers.
//
// An assist request flows through:
//
//	free text → mention parser → tool registry (batch) →
//	optional provider chat with the tool output folded into the prompt
//
// Without a provider the tool output is returned as-is.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agentoven/agentdesk/internal/mention"
	"github.com/agentoven/agentdesk/pkg/models"
)

var tracer = otel.Tracer("agentdesk/executor")

// ErrEmptyRequest is returned when there is neither text nor a tool mention.
var ErrEmptyRequest = errors.New("empty assist request")

const systemPrompt = "You are a coding assistant working inside the user's workspace. " +
	"Use the tool results when they are relevant and say so when they are not."

// maxToolContent bounds how much of each tool result is folded into a prompt.
const maxToolContent = 8000

// Chatter sends a chat request to a provider. *router.Router satisfies it.
type Chatter interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// ToolRunner executes tool requests. *tools.Registry satisfies it.
type ToolRunner interface {
	Execute(ctx context.Context, req models.ToolRequest) (models.ToolResult, error)
	ExecuteMultiple(ctx context.Context, reqs []models.ToolRequest) []models.ToolResult
}

// AssistRequest is one free-text request from the workspace.
type AssistRequest struct {
	Text        string  `json:"text"`
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	APIKey      string  `json:"apiKey,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// AssistResponse carries everything the pipeline produced.
type AssistResponse struct {
	TraceID     string                  `json:"traceId"`
	Invocations []models.ToolInvocation `json:"tools"`
	CleanText   string                  `json:"cleanText"`
	Ambiguities []mention.Ambiguity     `json:"ambiguities,omitempty"`
	ToolResults []models.ToolResult     `json:"toolResults"`
	Content     string                  `json:"content"`
	Chat        *models.ChatResponse    `json:"chat,omitempty"`
	TotalMs     int64                   `json:"totalMs"`
	// Error is set when the chat call failed after the tools already ran.
	Error string `json:"error,omitempty"`
}

// Executor runs the assistant pipeline.
type Executor struct {
	chat  Chatter
	tools ToolRunner
}

// NewExecutor creates an executor. chat may be nil, in which case requests
// naming a provider fail.
func NewExecutor(chat Chatter, tools ToolRunner) *Executor {
	return &Executor{chat: chat, tools: tools}
}

// Assist parses mentions out of req.Text, runs every mentioned tool, and
// when a provider is named sends one chat call with the results attached.
//
// If the chat call fails, the response is still returned, carrying the tool
// results and Error, together with the error.
func (e *Executor) Assist(ctx context.Context, req AssistRequest) (*AssistResponse, error) {
	ctx, span := tracer.Start(ctx, "executor.assist")
	defer span.End()

	start := time.Now()
	parsed := mention.Parse(req.Text)
	resp := &AssistResponse{
		TraceID:     uuid.New().String(),
		Invocations: parsed.Invocations,
		CleanText:   parsed.CleanText,
		Ambiguities: parsed.Ambiguities,
		ToolResults: []models.ToolResult{},
	}
	span.SetAttributes(
		attribute.String("trace_id", resp.TraceID),
		attribute.Int("tools", len(parsed.Invocations)),
		attribute.String("provider", req.Provider),
	)

	if len(parsed.Invocations) == 0 && parsed.CleanText == "" {
		return nil, ErrEmptyRequest
	}

	if len(parsed.Invocations) > 0 {
		resp.ToolResults = e.tools.ExecuteMultiple(ctx, parsed.Requests())
	}

	if req.Provider == "" {
		resp.Content = formatToolResults(resp.ToolResults)
		if resp.Content == "" {
			resp.Content = parsed.CleanText
		}
		resp.TotalMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	// From here on tools may already have edited files or run commands, so
	// failures return the partial response alongside the error.
	fail := func(err error) (*AssistResponse, error) {
		resp.Content = formatToolResults(resp.ToolResults)
		resp.Error = err.Error()
		resp.TotalMs = time.Since(start).Milliseconds()
		log.Warn().Err(err).
			Str("trace_id", resp.TraceID).
			Int("tools", len(resp.ToolResults)).
			Msg("Assist chat failed after tools ran")
		return resp, err
	}
	if e.chat == nil {
		return fail(errors.New("executor: no chat backend configured"))
	}
	chatResp, err := e.chat.Chat(ctx, models.ChatRequest{
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: systemPrompt},
			{Role: models.RoleUser, Content: buildPrompt(parsed.CleanText, resp.ToolResults)},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return fail(fmt.Errorf("assist chat: %w", err))
	}
	resp.Chat = chatResp
	resp.Content = chatResp.Content
	resp.TotalMs = time.Since(start).Milliseconds()

	log.Info().
		Str("trace_id", resp.TraceID).
		Str("provider", req.Provider).
		Int("tools", len(resp.ToolResults)).
		Int64("total_ms", resp.TotalMs).
		Msg("Assist request complete")
	return resp, nil
}

// buildPrompt appends a "Tool results" section to the user's text.
func buildPrompt(text string, results []models.ToolResult) string {
	if len(results) == 0 {
		return text
	}
	var b strings.Builder
	if text != "" {
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	b.WriteString("Tool results:\n")
	b.WriteString(formatToolResults(results))
	return b.String()
}

func formatToolResults(results []models.ToolResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		if r.Success {
			fmt.Fprintf(&b, "[Tool: %s]\n%s\n", r.ToolName, clip(r.Content, maxToolContent))
		} else {
			fmt.Fprintf(&b, "[Tool: %s] Error: %s\n", r.ToolName, r.Error)
		}
	}
	return b.String()
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n[truncated]"
}
