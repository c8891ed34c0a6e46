package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agentoven/agentdesk/pkg/models"
)

type editTool struct {
	ws *Workspace
}

// NewEditTool performs line-level edits on existing files.
func NewEditTool(ws *Workspace) Tool { return &editTool{ws: ws} }

func (t *editTool) Name() string                  { return "edit" }
func (t *editTool) Category() models.ToolCategory { return models.ToolCategoryEdit }
func (t *editTool) Description() string {
	return "Replace, insert or delete lines in a file"
}
func (t *editTool) Accepts() []models.ParamsKind { return []models.ParamsKind{models.ParamsEdit} }

func (t *editTool) Validate(req models.ToolRequest) error {
	p, ok := paramsAs[models.EditParams](req)
	if !ok {
		return errors.New("edit params are required")
	}
	if strings.TrimSpace(p.Path) == "" {
		return errors.New("path is required")
	}
	if p.StartLine < 1 {
		return errors.New("startLine must be >= 1")
	}
	if p.EndLine != 0 && p.EndLine < p.StartLine {
		return errors.New("endLine must be >= startLine")
	}
	switch p.Operation {
	case models.EditReplace, models.EditInsert, models.EditDelete:
		return nil
	default:
		return fmt.Errorf("unknown operation %q", p.Operation)
	}
}

func (t *editTool) Execute(_ context.Context, req models.ToolRequest) (Output, error) {
	p, _ := paramsAs[models.EditParams](req)
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

	lines, trailingNewline := splitLines(string(data))
	updated, err := applyLineEdit(lines, p)
	if err != nil {
		return Output{}, err
	}

	content := strings.Join(updated, "\n")
	if trailingNewline && len(updated) > 0 {
		content += "\n"
	}
	if err := t.ws.WriteFileAtomic(abs, []byte(content), info.Mode().Perm()); err != nil {
		return Output{}, fmt.Errorf("write %s: %w", p.Path, err)
	}

	rel := t.ws.Rel(abs)
	return textOutput(fmt.Sprintf("Edited %s: %s at line %d (%d → %d lines)", rel, p.Operation, p.StartLine, len(lines), len(updated))).
		with("path", rel).
		with("lines_before", len(lines)).
		with("lines_after", len(updated)), nil
}

func splitLines(s string) ([]string, bool) {
	if s == "" {
		return nil, false
	}
	trailing := strings.HasSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n"), trailing
}

func applyLineEdit(lines []string, p models.EditParams) ([]string, error) {
	end := p.EndLine
	if end == 0 {
		end = p.StartLine
	}
	var insert []string
	if p.Content != "" {
		insert = strings.Split(strings.TrimSuffix(p.Content, "\n"), "\n")
	}

	switch p.Operation {
	case models.EditInsert:
		if p.StartLine > len(lines)+1 {
			return nil, fmt.Errorf("line %d is past the end of the file (%d lines)", p.StartLine, len(lines))
		}
		i := p.StartLine - 1
		out := make([]string, 0, len(lines)+len(insert))
		out = append(out, lines[:i]...)
		out = append(out, insert...)
		return append(out, lines[i:]...), nil

	case models.EditReplace, models.EditDelete:
		if end > len(lines) {
			return nil, fmt.Errorf("lines %d-%d are out of range (%d lines)", p.StartLine, end, len(lines))
		}
		if p.Operation == models.EditDelete {
			insert = nil
		}
		out := make([]string, 0, len(lines)-(end-p.StartLine+1)+len(insert))
		out = append(out, lines[:p.StartLine-1]...)
		out = append(out, insert...)
		return append(out, lines[end:]...), nil
	}
	return nil, fmt.Errorf("unknown operation %q", p.Operation)
}
