package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/pkg/models"
)

type deleteTool struct {
	ws    *Workspace
	guard *Guardrails
}

// NewDeleteTool removes a file after saving a .bak copy next to it.
func NewDeleteTool(ws *Workspace, guard *Guardrails) Tool {
	return &deleteTool{ws: ws, guard: guard}
}

func (t *deleteTool) Name() string                  { return "delete" }
func (t *deleteTool) Category() models.ToolCategory { return models.ToolCategoryEdit }
func (t *deleteTool) Description() string           { return "Delete a file (a .bak backup is kept)" }
func (t *deleteTool) Accepts() []models.ParamsKind  { return []models.ParamsKind{models.ParamsPath} }

func (t *deleteTool) path(req models.ToolRequest) string {
	p, _ := paramsAs[models.PathParams](req)
	return queryOr(p.Path, strings.TrimSpace(req.Query))
}

func (t *deleteTool) Validate(req models.ToolRequest) error {
	if t.path(req) == "" {
		return errors.New("a file path is required")
	}
	return nil
}

func (t *deleteTool) Execute(_ context.Context, req models.ToolRequest) (Output, error) {
	abs, err := t.ws.Resolve(t.path(req))
	if err != nil {
		return Output{}, err
	}
	rel := t.ws.Rel(abs)
	if abs == t.ws.Root() {
		return Output{}, errors.New("refusing to delete the workspace root")
	}
	if err := t.guard.CheckDelete(rel); err != nil {
		return Output{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Output{}, err
	}
	if info.IsDir() {
		return Output{}, fmt.Errorf("%s is a directory", rel)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Output{}, err
	}
	backup := abs + ".bak"
	if err := t.ws.WriteFileAtomic(backup, data, info.Mode().Perm()); err != nil {
		return Output{}, fmt.Errorf("write backup: %w", err)
	}
	if err := os.Remove(abs); err != nil {
		return Output{}, err
	}

	log.Info().Str("path", rel).Msg("File deleted")
	return textOutput(fmt.Sprintf("Deleted %s (backup at %s)", rel, t.ws.Rel(backup))).
		with("path", rel).
		with("backup", t.ws.Rel(backup)), nil
}
