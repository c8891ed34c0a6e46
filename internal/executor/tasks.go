package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentoven/agentdesk/internal/orchestrator"
	"github.com/agentoven/agentdesk/internal/router"
	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Background Task Handlers ────────────────────────────────

// ErrNoDefaultProvider is returned by prompt-driven tasks when no default
// provider/model pair is configured.
var ErrNoDefaultProvider = errors.New("no default provider configured")

// Suite runs provider connection tests. *router.SuiteRunner satisfies it.
type Suite interface {
	Run(ctx context.Context, pairs []router.Pair, onProgress func(router.SuiteProgress)) router.SuiteReport
}

// TaskOptions wires the background handlers.
type TaskOptions struct {
	DefaultProvider string
	DefaultModel    string

	Suite Suite
	// Pairs returns the pairs the provider-test task runs, evaluated when the
	// task starts so newly stored credentials are included.
	Pairs func() []router.Pair
}

var instructions = map[string]string{
	models.TaskKindAnalysis:   "Analyze the following for code quality, correctness and performance issues. Report findings as a concise list.",
	models.TaskKindRefactor:   "Propose a refactoring for the following. Show the changed code and explain each change briefly.",
	models.TaskKindGeneration: "Generate the code requested below. Return only the code with short comments where needed.",
}

// Handlers returns the work functions for every built-in task kind.
func (e *Executor) Handlers(opts TaskOptions) []orchestrator.Handler {
	handlers := []orchestrator.Handler{
		{Kind: models.TaskKindSearch, Work: e.searchTask},
		{Kind: models.TaskKindProviderTest, Work: providerTestTask(opts)},
	}
	for _, kind := range []string{models.TaskKindAnalysis, models.TaskKindRefactor, models.TaskKindGeneration} {
		handlers = append(handlers, orchestrator.Handler{Kind: kind, Work: e.promptTask(kind, opts)})
	}
	return handlers
}

// promptTask sends the description, with any mentioned tools resolved, to the
// default provider.
func (e *Executor) promptTask(kind string, opts TaskOptions) orchestrator.WorkFunc {
	return func(ctx context.Context, task models.BackgroundTask, progress orchestrator.Progress) (string, error) {
		if opts.DefaultProvider == "" || opts.DefaultModel == "" {
			return "", ErrNoDefaultProvider
		}
		progress(10)
		resp, err := e.Assist(ctx, AssistRequest{
			Text:        instructions[kind] + "\n\n" + task.Description,
			Provider:    opts.DefaultProvider,
			Model:       opts.DefaultModel,
			Temperature: 0.2,
			MaxTokens:   2048,
		})
		if err != nil {
			return "", err
		}
		progress(90)
		return resp.Content, nil
	}
}

// searchTask runs a codebase search for the description.
func (e *Executor) searchTask(ctx context.Context, task models.BackgroundTask, progress orchestrator.Progress) (string, error) {
	query := strings.TrimSpace(task.Description)
	if query == "" {
		return "", errors.New("search task needs a description to search for")
	}
	progress(10)
	res, err := e.tools.Execute(ctx, models.ToolRequest{Type: "codebase", Query: query})
	if err != nil {
		return "", err
	}
	progress(90)
	return res.Content, nil
}

func providerTestTask(opts TaskOptions) orchestrator.WorkFunc {
	return func(ctx context.Context, task models.BackgroundTask, progress orchestrator.Progress) (string, error) {
		if opts.Suite == nil || opts.Pairs == nil {
			return "", errors.New("provider test suite is not configured")
		}
		pairs := opts.Pairs()
		if len(pairs) == 0 {
			return "No providers to test: store a credential or enable a local provider first.", nil
		}

		report := opts.Suite.Run(ctx, pairs, func(p router.SuiteProgress) {
			progress(p.Percent)
		})
		return summarizeReport(report), nil
	}
}

func summarizeReport(r router.SuiteReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d providers passed, average latency %dms\n", r.Succeeded, r.Total, r.AverageLatencyMs)
	for _, res := range r.Results {
		if res.Success {
			fmt.Fprintf(&b, "✓ %s/%s %dms\n", res.Provider, res.Model, res.LatencyMs)
		} else {
			fmt.Fprintf(&b, "✗ %s/%s %s\n", res.Provider, res.Model, res.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
