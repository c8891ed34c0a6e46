package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentoven/agentdesk/pkg/models"
)

// ruleFiles are read from the workspace root, in this order.
var ruleFiles = []string{".rules", ".cursorrules", "AGENTS.md"}

// ruleGlob picks up per-topic rule files.
const ruleGlob = ".cursor/rules/**/*.{md,mdc}"

type rulesTool struct {
	ws *Workspace
}

func NewRulesTool(ws *Workspace) Tool { return &rulesTool{ws: ws} }

func (t *rulesTool) Name() string                  { return "rules" }
func (t *rulesTool) Category() models.ToolCategory { return models.ToolCategorySearch }
func (t *rulesTool) Description() string           { return "Read the project's rule files" }
func (t *rulesTool) Accepts() []models.ParamsKind  { return nil }
func (t *rulesTool) Validate(models.ToolRequest) error {
	return nil
}

// Execute concatenates every rule file. A non-empty query keeps only files
// whose path contains it.
func (t *rulesTool) Execute(_ context.Context, req models.ToolRequest) (Output, error) {
	paths := append([]string{}, ruleFiles...)
	extra, err := doublestar.Glob(os.DirFS(t.ws.Root()), ruleGlob, doublestar.WithFilesOnly())
	if err != nil {
		return Output{}, err
	}
	paths = append(paths, extra...)

	filter := strings.ToLower(strings.TrimSpace(req.Query))
	var b strings.Builder
	var found []string
	for _, rel := range paths {
		if filter != "" && !strings.Contains(strings.ToLower(rel), filter) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(t.ws.Root(), filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		found = append(found, rel)
		b.WriteString("## " + rel + "\n")
		b.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if len(found) == 0 {
		return textOutput("(no rule files found)").with("files", []string{}), nil
	}
	return textOutput(strings.TrimRight(b.String(), "\n")).with("files", found), nil
}
