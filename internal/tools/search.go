package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentoven/agentdesk/pkg/models"
)

type searchTool struct {
	ws *Workspace
}

// NewSearchTool finds files by name fragment or doublestar glob.
func NewSearchTool(ws *Workspace) Tool { return &searchTool{ws: ws} }

func (t *searchTool) Name() string                  { return "search" }
func (t *searchTool) Category() models.ToolCategory { return models.ToolCategorySearch }
func (t *searchTool) Description() string {
	return "Find files by name or glob pattern (e.g. **/*.go)"
}
func (t *searchTool) Accepts() []models.ParamsKind { return []models.ParamsKind{models.ParamsPattern} }

func (t *searchTool) pattern(req models.ToolRequest) (string, models.PatternParams) {
	p, _ := paramsAs[models.PatternParams](req)
	return strings.TrimSpace(queryOr(p.Pattern, req.Query)), p
}

func (t *searchTool) Validate(req models.ToolRequest) error {
	pattern, _ := t.pattern(req)
	if pattern == "" {
		return errors.New("a file name or pattern is required")
	}
	if isGlob(pattern) && !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid glob %q", pattern)
	}
	return nil
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func (t *searchTool) Execute(ctx context.Context, req models.ToolRequest) (Output, error) {
	pattern, p := t.pattern(req)
	dir, err := t.ws.Resolve(queryOr(p.Path, "."))
	if err != nil {
		return Output{}, err
	}
	limit := p.MaxResults
	if limit <= 0 {
		limit = defaultMaxMatches
	}

	var found []string
	if isGlob(pattern) {
		found, err = doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return Output{}, fmt.Errorf("glob: %w", err)
		}
		for i, f := range found {
			found[i] = t.ws.Rel(filepath.Join(dir, filepath.FromSlash(f)))
		}
	} else {
		needle := strings.ToLower(pattern)
		err = t.ws.walkFiles(dir, func(path string, d fs.DirEntry) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if strings.Contains(strings.ToLower(d.Name()), needle) {
				found = append(found, t.ws.Rel(path))
			}
			return nil
		})
		if err != nil {
			return Output{}, err
		}
	}

	sort.Strings(found)
	truncated := len(found) > limit
	if truncated {
		found = found[:limit]
	}
	content := strings.Join(found, "\n")
	if len(found) == 0 {
		content = "(no files found)"
	}
	return textOutput(content).
		with("files", len(found)).
		with("truncated", truncated), nil
}
