package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/agentoven/agentdesk/pkg/models"
)

type codebaseTool struct {
	ws *Workspace
}

// NewCodebaseTool searches the workspace for a literal phrase.
func NewCodebaseTool(ws *Workspace) Tool { return &codebaseTool{ws: ws} }

func (t *codebaseTool) Name() string                  { return "codebase" }
func (t *codebaseTool) Category() models.ToolCategory { return models.ToolCategorySearch }
func (t *codebaseTool) Description() string {
	return "Search the codebase for a phrase (case-insensitive)"
}
func (t *codebaseTool) Accepts() []models.ParamsKind { return []models.ParamsKind{models.ParamsPattern} }

func (t *codebaseTool) Validate(req models.ToolRequest) error {
	p, _ := paramsAs[models.PatternParams](req)
	if strings.TrimSpace(queryOr(p.Pattern, req.Query)) == "" {
		return errors.New("a search phrase is required")
	}
	return nil
}

func (t *codebaseTool) Execute(ctx context.Context, req models.ToolRequest) (Output, error) {
	p, _ := paramsAs[models.PatternParams](req)
	phrase := strings.TrimSpace(queryOr(p.Pattern, req.Query))
	dir, err := t.ws.Resolve(queryOr(p.Path, "."))
	if err != nil {
		return Output{}, err
	}

	match := func(line string) bool { return strings.Contains(line, phrase) }
	if !p.CaseSensitive {
		needle := strings.ToLower(phrase)
		match = func(line string) bool { return strings.Contains(strings.ToLower(line), needle) }
	}

	matches, truncated, err := scanText(ctx, t.ws, dir, p.Include, p.MaxResults, match)
	if err != nil {
		return Output{}, err
	}
	return textOutput(formatMatches(matches, truncated)).
		with("matches", len(matches)).
		with("truncated", truncated), nil
}
