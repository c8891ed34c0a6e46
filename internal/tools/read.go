package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentoven/agentdesk/pkg/models"
)

// DefaultReadLimit caps how much of a file the read tool returns.
const DefaultReadLimit = 256 * 1024

type readTool struct {
	ws *Workspace
}

func NewReadTool(ws *Workspace) Tool { return &readTool{ws: ws} }

func (t *readTool) Name() string                  { return "read" }
func (t *readTool) Category() models.ToolCategory { return models.ToolCategorySearch }
func (t *readTool) Description() string           { return "Read the contents of a file" }
func (t *readTool) Accepts() []models.ParamsKind  { return []models.ParamsKind{models.ParamsPath} }

func (t *readTool) target(req models.ToolRequest) (string, int) {
	p, _ := paramsAs[models.PathParams](req)
	limit := DefaultReadLimit
	if p.MaxBytes > 0 && p.MaxBytes < limit {
		limit = p.MaxBytes
	}
	return queryOr(p.Path, strings.TrimSpace(req.Query)), limit
}

func (t *readTool) Validate(req models.ToolRequest) error {
	if path, _ := t.target(req); path == "" {
		return errors.New("a file path is required")
	}
	return nil
}

func (t *readTool) Execute(_ context.Context, req models.ToolRequest) (Output, error) {
	path, limit := t.target(req)
	abs, err := t.ws.Resolve(path)
	if err != nil {
		return Output{}, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return Output{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Output{}, err
	}
	if info.IsDir() {
		return Output{}, fmt.Errorf("%s is a directory", path)
	}

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return Output{}, err
	}
	truncated := len(data) > limit
	if truncated {
		data = data[:limit]
	}

	return textOutput(string(data)).
		with("path", t.ws.Rel(abs)).
		with("size", info.Size()).
		with("truncated", truncated).
		with("lines", strings.Count(string(data), "\n")+1), nil
}
