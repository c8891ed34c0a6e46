package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/agentdesk/internal/tools"
	"github.com/agentoven/agentdesk/pkg/models"
)

type harness struct {
	root string
	reg  *tools.Registry
	b    *tools.Builtins
}

func newHarness(t *testing.T, opts tools.Options) *harness {
	t.Helper()
	root := t.TempDir()
	write(t, root, "package.json", `{"name":"demo"}`+"\n")
	write(t, root, "src/main.go", "package main\n\nfunc main() {\n\tprintln(\"Hello\")\n}\n")
	write(t, root, "src/util/strings.go", "package util\n\n// TODO: trim\nfunc Trim() {}\n")
	write(t, root, "node_modules/lib/index.js", "// TODO: ignored\n")
	write(t, root, "AGENTS.md", "Always run tests.\n")

	opts.WorkspaceRoot = root
	reg := tools.NewRegistry(tools.WithBatchDelay(0))
	b, err := tools.RegisterBuiltins(reg, opts)
	require.NoError(t, err)
	return &harness{root: root, reg: reg, b: b}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (h *harness) exec(t *testing.T, req models.ToolRequest) (models.ToolResult, error) {
	t.Helper()
	return h.reg.Execute(context.Background(), req)
}

func TestBuiltins_Registered(t *testing.T) {
	h := newHarness(t, tools.Options{})
	s := h.reg.Stats()
	assert.Equal(t, 14, s.Total)
	assert.Equal(t, 7, s.ByCategory[models.ToolCategorySearch].Total)
	assert.Equal(t, 2, s.ByCategory[models.ToolCategoryEdit].Total)
	assert.Equal(t, 1, s.ByCategory[models.ToolCategoryRun].Total)
	assert.Equal(t, 1, s.ByCategory[models.ToolCategoryRemoteCall].Total)
	assert.Equal(t, 3, s.ByCategory[models.ToolCategoryAdvanced].Total)
}

func TestReadTool(t *testing.T) {
	h := newHarness(t, tools.Options{})

	res, err := h.exec(t, models.ToolRequest{Type: "read", Query: "package.json"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"demo"}`+"\n", res.Content)
	assert.Equal(t, false, res.Metadata["truncated"])

	res, err = h.exec(t, models.ToolRequest{Type: "read", Params: models.NewToolParams(models.PathParams{Path: "src/main.go", MaxBytes: 7})})
	require.NoError(t, err)
	assert.Equal(t, "package", res.Content)
	assert.Equal(t, true, res.Metadata["truncated"])

	_, err = h.exec(t, models.ToolRequest{Type: "read", Query: "../outside.txt"})
	assert.ErrorIs(t, err, tools.ErrOutsideWorkspace)

	_, err = h.exec(t, models.ToolRequest{Type: "read"})
	assert.ErrorIs(t, err, tools.ErrInvalidParams)
}

func TestListTool(t *testing.T) {
	h := newHarness(t, tools.Options{})

	res, err := h.exec(t, models.ToolRequest{Type: "list", Query: "src"})
	require.NoError(t, err)
	assert.Equal(t, "main.go\nutil/", res.Content)

	res, err = h.exec(t, models.ToolRequest{Type: "list", Params: models.NewToolParams(models.PathParams{Path: ".", Recursive: true})})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "src/util/strings.go")
	assert.NotContains(t, res.Content, "node_modules/lib")
}

func TestCodebaseAndGrep(t *testing.T) {
	h := newHarness(t, tools.Options{})

	res, err := h.exec(t, models.ToolRequest{Type: "codebase", Query: "todo"})
	require.NoError(t, err)
	assert.Equal(t, "src/util/strings.go:3: // TODO: trim", res.Content)

	res, err = h.exec(t, models.ToolRequest{Type: "grep", Query: `func \w+\(\)`})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "src/main.go:3: func main() {")
	assert.Contains(t, res.Content, "src/util/strings.go:4: func Trim() {}")

	res, err = h.exec(t, models.ToolRequest{Type: "grep", Params: models.NewToolParams(models.PatternParams{
		Pattern: "func", Include: []string{"src/util/**"},
	})})
	require.NoError(t, err)
	assert.NotContains(t, res.Content, "main.go")

	_, err = h.exec(t, models.ToolRequest{Type: "grep", Query: "("})
	assert.ErrorIs(t, err, tools.ErrInvalidParams)
}

func TestSearchTool(t *testing.T) {
	h := newHarness(t, tools.Options{})

	res, err := h.exec(t, models.ToolRequest{Type: "search", Query: "**/*.go"})
	require.NoError(t, err)
	assert.Equal(t, "src/main.go\nsrc/util/strings.go", res.Content)

	res, err = h.exec(t, models.ToolRequest{Type: "search", Query: "STRINGS"})
	require.NoError(t, err)
	assert.Equal(t, "src/util/strings.go", res.Content)
}

func TestRulesTool(t *testing.T) {
	h := newHarness(t, tools.Options{})
	write(t, h.root, ".cursor/rules/go.mdc", "Use gofmt.")

	res, err := h.exec(t, models.ToolRequest{Type: "rules"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "## AGENTS.md\nAlways run tests.")
	assert.Contains(t, res.Content, "## .cursor/rules/go.mdc\nUse gofmt.")
}

func TestEditTool(t *testing.T) {
	h := newHarness(t, tools.Options{})

	_, err := h.exec(t, models.ToolRequest{Type: "edit", Params: models.NewToolParams(models.EditParams{
		Path: "src/main.go", Operation: models.EditReplace, StartLine: 4, Content: "\tprintln(\"Bye\")",
	})})
	require.NoError(t, err)

	_, err = h.exec(t, models.ToolRequest{Type: "edit", Params: models.NewToolParams(models.EditParams{
		Path: "src/main.go", Operation: models.EditInsert, StartLine: 2, Content: "import \"os\"\n",
	})})
	require.NoError(t, err)

	_, err = h.exec(t, models.ToolRequest{Type: "edit", Params: models.NewToolParams(models.EditParams{
		Path: "src/main.go", Operation: models.EditDelete, StartLine: 3,
	})})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(h.root, "src/main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\nimport \"os\"\nfunc main() {\n\tprintln(\"Bye\")\n}\n", string(data))

	_, err = h.exec(t, models.ToolRequest{Type: "edit", Params: models.NewToolParams(models.EditParams{
		Path: "src/main.go", Operation: models.EditReplace, StartLine: 40,
	})})
	var execErr *tools.ToolExecutionError
	assert.ErrorAs(t, err, &execErr)

	_, err = h.exec(t, models.ToolRequest{Type: "edit", Query: "src/main.go"})
	assert.ErrorIs(t, err, tools.ErrInvalidParams)
}

func TestApplyTool(t *testing.T) {
	h := newHarness(t, tools.Options{})
	path := filepath.Join(h.root, "src/main.go")
	before, _ := os.ReadFile(path)
	after := []byte("package main\n\nfunc main() {\n\tprintln(\"Patched\")\n}\n")

	dmp := diffmatchpatch.New()
	patch := dmp.PatchToText(dmp.PatchMake(string(before), string(after)))

	res, err := h.exec(t, models.ToolRequest{Type: "apply", Params: models.NewToolParams(models.PatchParams{Path: "src/main.go", Patch: patch})})
	require.NoError(t, err)
	assert.True(t, res.Success)

	got, _ := os.ReadFile(path)
	assert.Equal(t, string(after), string(got))

	_, err = h.exec(t, models.ToolRequest{Type: "apply", Params: models.NewToolParams(models.PatchParams{Path: "src/main.go", Patch: "not a patch"})})
	assert.ErrorIs(t, err, tools.ErrInvalidParams)
}

func TestDeleteTool(t *testing.T) {
	h := newHarness(t, tools.Options{})

	res, err := h.exec(t, models.ToolRequest{Type: "delete", Query: "package.json"})
	require.NoError(t, err)
	assert.Equal(t, "package.json.bak", res.Metadata["backup"])

	_, err = os.Stat(filepath.Join(h.root, "package.json"))
	assert.True(t, os.IsNotExist(err))
	bak, err := os.ReadFile(filepath.Join(h.root, "package.json.bak"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"demo"}`+"\n", string(bak))

	h.b.Guardrails.SetLevel(tools.GuardStrict)
	_, err = h.exec(t, models.ToolRequest{Type: "delete", Query: "AGENTS.md"})
	assert.ErrorIs(t, err, tools.ErrGuardrail)
	assert.FileExists(t, filepath.Join(h.root, "AGENTS.md"))
}

func TestTerminalTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX commands")
	}
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}
	h := newHarness(t, tools.Options{})

	res, err := h.exec(t, models.ToolRequest{Type: "terminal", Query: `echo "hello world"`})
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", res.Content)
	assert.Equal(t, 0, res.Metadata["exit_code"])

	_, err = h.exec(t, models.ToolRequest{Type: "terminal", Query: "sudo ls"})
	assert.ErrorIs(t, err, tools.ErrGuardrail)

	_, err = h.exec(t, models.ToolRequest{Type: "terminal", Query: "rm -rf /"})
	assert.ErrorIs(t, err, tools.ErrGuardrail)

	_, err = h.exec(t, models.ToolRequest{Type: "terminal", Query: `echo "unterminated`})
	assert.ErrorIs(t, err, tools.ErrInvalidParams)
}

func TestRunTool(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}
	h := newHarness(t, tools.Options{TestCommand: "echo tests"})

	res, err := h.exec(t, models.ToolRequest{Type: "run", Query: "-run TestX"})
	require.NoError(t, err)
	assert.Equal(t, "tests -run TestX\n", res.Content)

	unconfigured := newHarness(t, tools.Options{})
	_, err = unconfigured.exec(t, models.ToolRequest{Type: "run"})
	assert.ErrorIs(t, err, tools.ErrInvalidParams)
}

func TestGuardTool(t *testing.T) {
	h := newHarness(t, tools.Options{})

	res, err := h.exec(t, models.ToolRequest{Type: "guard"})
	require.NoError(t, err)
	assert.Equal(t, "standard", res.Metadata["level"])

	_, err = h.exec(t, models.ToolRequest{Type: "guard", Query: "strict"})
	require.NoError(t, err)
	assert.Equal(t, tools.GuardStrict, h.b.Guardrails.Level())

	_, err = h.exec(t, models.ToolRequest{Type: "guard", Query: "yolo"})
	assert.ErrorIs(t, err, tools.ErrInvalidParams)
}

func TestMCPTool(t *testing.T) {
	h := newHarness(t, tools.Options{MCPServers: tools.ParseMCPServers("github=http://localhost:9000, fs=")})

	res, err := h.exec(t, models.ToolRequest{Type: "mcp"})
	require.NoError(t, err)
	assert.Equal(t, "fs (enabled)\ngithub http://localhost:9000 (enabled)", res.Content)

	off := false
	res, err = h.exec(t, models.ToolRequest{Type: "mcp", Params: models.NewToolParams(models.ToggleParams{Server: "github", Enabled: &off})})
	require.NoError(t, err)
	assert.Equal(t, false, res.Metadata["enabled"])

	_, err = h.exec(t, models.ToolRequest{Type: "mcp", Query: "nope"})
	var execErr *tools.ToolExecutionError
	assert.ErrorAs(t, err, &execErr)
}

type rpcCall struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      string `json:"id"`
	Params  struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

func TestMCPToolCall(t *testing.T) {
	var (
		mu   sync.Mutex
		last rpcCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		last = call
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch call.Params.Name {
		case "search_issues":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%q,"result":{"content":[{"type":"text","text":"issue #1"},{"type":"text","text":"issue #2"}]}}`, call.ID)
		case "broken":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%q,"result":{"content":[{"type":"text","text":"rate limited"}],"isError":true}}`, call.ID)
		default:
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%q,"error":{"code":-32602,"message":"unknown tool"}}`, call.ID)
		}
	}))
	defer srv.Close()
	lastCall := func() rpcCall {
		mu.Lock()
		defer mu.Unlock()
		return last
	}

	h := newHarness(t, tools.Options{
		MCPServers: tools.ParseMCPServers("github=" + srv.URL + ",local="),
		HTTPClient: srv.Client(),
	})

	res, err := h.exec(t, models.ToolRequest{Type: "mcp", Query: `github search_issues {"q":"bug","limit":2}`})
	require.NoError(t, err)
	assert.Equal(t, "issue #1\nissue #2", res.Content)
	assert.Equal(t, "github", res.Metadata["server"])
	call := lastCall()
	assert.Equal(t, "2.0", call.JSONRPC)
	assert.Equal(t, "tools/call", call.Method)
	assert.NotEmpty(t, call.ID)
	assert.Equal(t, "search_issues", call.Params.Name)
	assert.Equal(t, map[string]any{"q": "bug", "limit": float64(2)}, call.Params.Arguments)

	_, err = h.exec(t, models.ToolRequest{Type: "mcp", Params: models.NewToolParams(models.MCPCallParams{Server: "github", Tool: "search_issues"})})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, lastCall().Params.Arguments)

	var execErr *tools.ToolExecutionError
	_, err = h.exec(t, models.ToolRequest{Type: "mcp", Query: "github broken"})
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = h.exec(t, models.ToolRequest{Type: "mcp", Query: "github nope"})
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "unknown tool")

	_, err = h.exec(t, models.ToolRequest{Type: "mcp", Query: "local anything"})
	assert.ErrorContains(t, err, "has no URL")

	_, err = h.exec(t, models.ToolRequest{Type: "mcp", Query: "github search_issues not-json"})
	assert.ErrorIs(t, err, tools.ErrInvalidParams)

	off := false
	_, err = h.exec(t, models.ToolRequest{Type: "mcp", Params: models.NewToolParams(models.ToggleParams{Server: "github", Enabled: &off})})
	require.NoError(t, err)
	_, err = h.exec(t, models.ToolRequest{Type: "mcp", Query: "github search_issues"})
	assert.ErrorContains(t, err, "disabled")
}

func TestWebTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("q=" + r.URL.Query().Get("q")))
	}))
	defer srv.Close()

	h := newHarness(t, tools.Options{SearchEndpoint: srv.URL + "/search", HTTPClient: srv.Client()})

	res, err := h.exec(t, models.ToolRequest{Type: "web", Query: "golang generics"})
	require.NoError(t, err)
	assert.Equal(t, "q=golang generics", res.Content)

	res, err = h.exec(t, models.ToolRequest{Type: "web", Query: srv.URL + "/page?q=direct"})
	require.NoError(t, err)
	assert.Equal(t, "q=direct", res.Content)

	res, err = h.exec(t, models.ToolRequest{Type: "web", Query: srv.URL + "/missing"})
	assert.Error(t, err)
	assert.Equal(t, 404, res.Metadata["status"])

	noEndpoint := newHarness(t, tools.Options{})
	_, err = noEndpoint.exec(t, models.ToolRequest{Type: "web", Query: "anything"})
	assert.Error(t, err)
}
