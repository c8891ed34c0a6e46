package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentoven/agentdesk/pkg/models"
)

// MCPServer is a remote tool server the assistant may call into.
type MCPServer struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// MCPServers is the in-process table of configured remote tool servers.
type MCPServers struct {
	mu      sync.RWMutex
	servers map[string]*MCPServer
}

func NewMCPServers(servers ...MCPServer) *MCPServers {
	t := &MCPServers{servers: make(map[string]*MCPServer)}
	for _, s := range servers {
		t.servers[strings.ToLower(s.Name)] = &s
	}
	return t
}

// ParseMCPServers reads "name=url,name=url" as found in configuration.
// Entries without a name are skipped.
func ParseMCPServers(list string) []MCPServer {
	var out []MCPServer
	for _, part := range strings.Split(list, ",") {
		name, url, _ := strings.Cut(strings.TrimSpace(part), "=")
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		out = append(out, MCPServer{Name: name, URL: strings.TrimSpace(url), Enabled: true})
	}
	return out
}

func (t *MCPServers) List() []MCPServer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]MCPServer, 0, len(t.servers))
	for _, s := range t.servers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (t *MCPServers) Get(name string) (MCPServer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.servers[strings.ToLower(name)]
	if !ok {
		return MCPServer{}, false
	}
	return *s, true
}

func (t *MCPServers) SetEnabled(name string, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.servers[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("MCP server not found: %s", name)
	}
	s.Enabled = enabled
	return nil
}

// ── JSON-RPC transport ───────────────────────────────────────

const maxMCPResponse = 1 << 20

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type callResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

// callTool sends a tools/call request over HTTP and flattens the text
// content of the result. A body that is not a JSON-RPC response is returned
// verbatim.
func callTool(ctx context.Context, client *http.Client, s MCPServer, tool string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params:  map[string]any{"name": tool, "arguments": args},
		ID:      uuid.New().String(),
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", s.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxMCPResponse))
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", s.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s: HTTP %d: %s", s.Name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var rpc rpcResponse
	if err := json.Unmarshal(raw, &rpc); err != nil || rpc.JSONRPC == "" {
		return string(raw), nil
	}
	if rpc.Error != nil {
		return "", fmt.Errorf("%s: %s (code %d)", s.Name, rpc.Error.Message, rpc.Error.Code)
	}

	var result callResult
	if err := json.Unmarshal(rpc.Result, &result); err != nil {
		return string(rpc.Result), nil
	}
	var parts []string
	for _, c := range result.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		} else {
			parts = append(parts, fmt.Sprintf("[%s content]", c.Type))
		}
	}
	text := strings.Join(parts, "\n")
	if result.IsError {
		return "", fmt.Errorf("%s/%s: %s", s.Name, tool, text)
	}
	return text, nil
}

// ── mcp tool ─────────────────────────────────────────────────

type mcpTool struct {
	servers *MCPServers
	client  *http.Client
}

// NewMCPTool lists, toggles and calls configured MCP servers. The query form
// "<server> <tool> [json-arguments]" calls a tool.
func NewMCPTool(servers *MCPServers, client *http.Client) Tool {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &mcpTool{servers: servers, client: client}
}

func (t *mcpTool) Name() string                  { return "mcp" }
func (t *mcpTool) Category() models.ToolCategory { return models.ToolCategoryRemoteCall }
func (t *mcpTool) Description() string {
	return "Call a tool on an MCP server (<server> <tool> [json-args]), or list and toggle servers"
}
func (t *mcpTool) Accepts() []models.ParamsKind {
	return []models.ParamsKind{models.ParamsToggle, models.ParamsMCPCall}
}

// call extracts a tool call from params or the query. ok is false for the
// list and show forms.
func (t *mcpTool) call(req models.ToolRequest) (p models.MCPCallParams, ok bool, err error) {
	if p, ok := paramsAs[models.MCPCallParams](req); ok {
		return p, true, nil
	}
	server, rest, _ := strings.Cut(strings.TrimSpace(req.Query), " ")
	tool, args, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if tool == "" {
		return p, false, nil
	}
	p = models.MCPCallParams{Server: server, Tool: tool}
	if args = strings.TrimSpace(args); args != "" {
		if err := json.Unmarshal([]byte(args), &p.Arguments); err != nil {
			return p, true, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}
	return p, true, nil
}

func (t *mcpTool) Validate(req models.ToolRequest) error {
	if p, ok := paramsAs[models.ToggleParams](req); ok && strings.TrimSpace(p.Server) == "" {
		return errors.New("server is required")
	}
	p, ok, err := t.call(req)
	if err != nil {
		return err
	}
	if ok && (strings.TrimSpace(p.Server) == "" || strings.TrimSpace(p.Tool) == "") {
		return errors.New("server and tool are required")
	}
	return nil
}

func (t *mcpTool) Execute(ctx context.Context, req models.ToolRequest) (Output, error) {
	if p, ok := paramsAs[models.ToggleParams](req); ok {
		if p.Enabled != nil {
			if err := t.servers.SetEnabled(p.Server, *p.Enabled); err != nil {
				return Output{}, err
			}
		}
		s, ok := t.servers.Get(p.Server)
		if !ok {
			return Output{}, fmt.Errorf("MCP server not found: %s", p.Server)
		}
		return textOutput(formatServer(s)).with("server", s.Name).with("enabled", s.Enabled), nil
	}

	call, ok, err := t.call(req)
	if err != nil {
		return Output{}, err
	}
	if ok {
		return t.invoke(ctx, call)
	}

	q := strings.TrimSpace(req.Query)
	if q != "" && q != "list" {
		s, ok := t.servers.Get(q)
		if !ok {
			return Output{}, fmt.Errorf("MCP server not found: %s", q)
		}
		return textOutput(formatServer(s)).with("server", s.Name).with("enabled", s.Enabled), nil
	}

	list := t.servers.List()
	if len(list) == 0 {
		return textOutput("(no MCP servers configured)").with("servers", 0), nil
	}
	lines := make([]string, len(list))
	for i, s := range list {
		lines[i] = formatServer(s)
	}
	return textOutput(strings.Join(lines, "\n")).with("servers", len(list)), nil
}

func (t *mcpTool) invoke(ctx context.Context, p models.MCPCallParams) (Output, error) {
	s, ok := t.servers.Get(p.Server)
	switch {
	case !ok:
		return Output{}, fmt.Errorf("MCP server not found: %s", p.Server)
	case !s.Enabled:
		return Output{}, fmt.Errorf("MCP server %s is disabled", s.Name)
	case s.URL == "":
		return Output{}, fmt.Errorf("MCP server %s has no URL", s.Name)
	}

	start := time.Now()
	text, err := callTool(ctx, t.client, s, p.Tool, p.Arguments)
	if err != nil {
		return Output{}, err
	}
	return textOutput(text).
		with("server", s.Name).
		with("tool", p.Tool).
		with("duration_ms", time.Since(start).Milliseconds()), nil
}

func formatServer(s MCPServer) string {
	state := "disabled"
	if s.Enabled {
		state = "enabled"
	}
	if s.URL == "" {
		return fmt.Sprintf("%s (%s)", s.Name, state)
	}
	return fmt.Sprintf("%s %s (%s)", s.Name, s.URL, state)
}
