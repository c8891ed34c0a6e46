package tools

import (
	"fmt"
	"net/http"
	"time"
)

// Options configures the built-in tool set.
type Options struct {
	WorkspaceRoot  string
	TestCommand    string
	SearchEndpoint string
	CommandTimeout time.Duration
	GuardLevel     GuardLevel
	MCPServers     []MCPServer
	HTTPClient     *http.Client
}

// Builtins bundles the shared state of the built-in tools.
type Builtins struct {
	Workspace  *Workspace
	Guardrails *Guardrails
	MCP        *MCPServers
}

// RegisterBuiltins registers every built-in tool on r.
func RegisterBuiltins(r *Registry, opts Options) (*Builtins, error) {
	ws, err := NewWorkspace(opts.WorkspaceRoot)
	if err != nil {
		return nil, err
	}
	b := &Builtins{
		Workspace:  ws,
		Guardrails: NewGuardrails(opts.GuardLevel),
		MCP:        NewMCPServers(opts.MCPServers...),
	}

	for _, t := range []Tool{
		NewReadTool(ws),
		NewListTool(ws),
		NewCodebaseTool(ws),
		NewGrepTool(ws),
		NewSearchTool(ws),
		NewWebTool(opts.HTTPClient, opts.SearchEndpoint),
		NewRulesTool(ws),
		NewEditTool(ws),
		NewApplyTool(ws),
		NewDeleteTool(ws, b.Guardrails),
		NewTerminalTool(ws, b.Guardrails, opts.CommandTimeout),
		NewMCPTool(b.MCP, opts.HTTPClient),
		NewRunTool(ws, opts.TestCommand, 0),
		NewGuardTool(b.Guardrails),
	} {
		if err := r.Register(t); err != nil {
			return nil, fmt.Errorf("register builtins: %w", err)
		}
	}
	return b, nil
}
