package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentoven/agentdesk/pkg/models"
)

const maxListEntries = 1000

type listTool struct {
	ws *Workspace
}

func NewListTool(ws *Workspace) Tool { return &listTool{ws: ws} }

func (t *listTool) Name() string                  { return "list" }
func (t *listTool) Category() models.ToolCategory { return models.ToolCategorySearch }
func (t *listTool) Description() string           { return "List the entries of a directory" }
func (t *listTool) Accepts() []models.ParamsKind  { return []models.ParamsKind{models.ParamsPath} }
func (t *listTool) Validate(models.ToolRequest) error {
	return nil
}

func (t *listTool) Execute(_ context.Context, req models.ToolRequest) (Output, error) {
	p, _ := paramsAs[models.PathParams](req)
	dir, err := t.ws.Resolve(queryOr(p.Path, strings.TrimSpace(req.Query), "."))
	if err != nil {
		return Output{}, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return Output{}, err
	}
	if !info.IsDir() {
		return Output{}, fmt.Errorf("%s is not a directory", t.ws.Rel(dir))
	}

	var lines []string
	truncated := false
	if p.Recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || path == dir {
				return nil
			}
			if d.IsDir() && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			if len(lines) >= maxListEntries {
				truncated = true
				return fs.SkipAll
			}
			rel, _ := filepath.Rel(dir, path)
			lines = append(lines, entryName(filepath.ToSlash(rel), d))
			return nil
		})
		if err != nil {
			return Output{}, err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return Output{}, err
		}
		for _, d := range entries {
			if len(lines) >= maxListEntries {
				truncated = true
				break
			}
			lines = append(lines, entryName(d.Name(), d))
		}
	}
	sort.Strings(lines)

	content := strings.Join(lines, "\n")
	if len(lines) == 0 {
		content = "(empty directory)"
	}
	return textOutput(content).
		with("path", t.ws.Rel(dir)).
		with("entries", len(lines)).
		with("truncated", truncated), nil
}

func entryName(name string, d fs.DirEntry) string {
	if d.IsDir() {
		return name + "/"
	}
	return name
}
