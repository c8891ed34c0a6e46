package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentoven/agentdesk/pkg/models"
)

type grepTool struct {
	ws *Workspace
}

// NewGrepTool searches file contents with a regular expression.
func NewGrepTool(ws *Workspace) Tool { return &grepTool{ws: ws} }

func (t *grepTool) Name() string                  { return "grep" }
func (t *grepTool) Category() models.ToolCategory { return models.ToolCategorySearch }
func (t *grepTool) Description() string {
	return "Search file contents with a regular expression"
}
func (t *grepTool) Accepts() []models.ParamsKind { return []models.ParamsKind{models.ParamsPattern} }

func (t *grepTool) compile(req models.ToolRequest) (*regexp.Regexp, models.PatternParams, error) {
	p, _ := paramsAs[models.PatternParams](req)
	expr := strings.TrimSpace(queryOr(p.Pattern, req.Query))
	if expr == "" {
		return nil, p, errors.New("a pattern is required")
	}
	if !p.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, p, fmt.Errorf("invalid pattern: %w", err)
	}
	return re, p, nil
}

func (t *grepTool) Validate(req models.ToolRequest) error {
	_, _, err := t.compile(req)
	return err
}

func (t *grepTool) Execute(ctx context.Context, req models.ToolRequest) (Output, error) {
	re, p, err := t.compile(req)
	if err != nil {
		return Output{}, err
	}
	dir, err := t.ws.Resolve(queryOr(p.Path, "."))
	if err != nil {
		return Output{}, err
	}
	matches, truncated, err := scanText(ctx, t.ws, dir, p.Include, p.MaxResults, re.MatchString)
	if err != nil {
		return Output{}, err
	}
	return textOutput(formatMatches(matches, truncated)).
		with("matches", len(matches)).
		with("truncated", truncated), nil
}
