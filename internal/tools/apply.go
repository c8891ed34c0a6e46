package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/agentoven/agentdesk/pkg/models"
)

type applyTool struct {
	ws *Workspace
}

// NewApplyTool applies a diff-match-patch patch to a file. Either every hunk
// applies or the file is left untouched.
func NewApplyTool(ws *Workspace) Tool { return &applyTool{ws: ws} }

func (t *applyTool) Name() string                  { return "apply" }
func (t *applyTool) Category() models.ToolCategory { return models.ToolCategoryAdvanced }
func (t *applyTool) Description() string           { return "Apply a diff-match-patch patch to a file" }
func (t *applyTool) Accepts() []models.ParamsKind  { return []models.ParamsKind{models.ParamsPatch} }

func (t *applyTool) Validate(req models.ToolRequest) error {
	p, ok := paramsAs[models.PatchParams](req)
	if !ok {
		return errors.New("patch params are required")
	}
	if strings.TrimSpace(p.Path) == "" {
		return errors.New("path is required")
	}
	if _, err := diffmatchpatch.New().PatchFromText(p.Patch); err != nil {
		return fmt.Errorf("malformed patch: %w", err)
	}
	return nil
}

func (t *applyTool) Execute(_ context.Context, req models.ToolRequest) (Output, error) {
	p, _ := paramsAs[models.PatchParams](req)
	abs, err := t.ws.Resolve(p.Path)
	if err != nil {
		return Output{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Output{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Output{}, err
	}

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(p.Patch)
	if err != nil {
		return Output{}, fmt.Errorf("malformed patch: %w", err)
	}
	if len(patches) == 0 {
		return Output{}, errors.New("patch contains no hunks")
	}

	updated, applied := dmp.PatchApply(patches, string(data))
	var failed []int
	for i, ok := range applied {
		if !ok {
			failed = append(failed, i+1)
		}
	}
	if len(failed) > 0 {
		return Output{}, fmt.Errorf("hunks %v did not apply; %s left unchanged", failed, p.Path)
	}

	if err := t.ws.WriteFileAtomic(abs, []byte(updated), info.Mode().Perm()); err != nil {
		return Output{}, fmt.Errorf("write %s: %w", p.Path, err)
	}
	rel := t.ws.Rel(abs)
	return textOutput(fmt.Sprintf("Applied %d hunk(s) to %s", len(patches), rel)).
		with("path", rel).
		with("hunks", len(patches)), nil
}
