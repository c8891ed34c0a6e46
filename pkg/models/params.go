package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ── Tool Parameters ──────────────────────────────────────────

// ParamsKind discriminates the ToolParams variants.
type ParamsKind string

const (
	ParamsPath    ParamsKind = "path"
	ParamsPattern ParamsKind = "pattern"
	ParamsEdit    ParamsKind = "edit"
	ParamsCommand ParamsKind = "command"
	ParamsPatch   ParamsKind = "patch"
	ParamsToggle  ParamsKind = "toggle"
	ParamsGuard   ParamsKind = "guard"
	ParamsMCPCall ParamsKind = "mcpCall"
)

// Params is implemented by every parameter variant.
type Params interface {
	Kind() ParamsKind
}

// PathParams addresses a file or directory.
type PathParams struct {
	Path      string `json:"path"`
	MaxBytes  int    `json:"maxBytes,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
}

// PatternParams drives the search tools.
type PatternParams struct {
	Pattern       string   `json:"pattern"`
	Path          string   `json:"path,omitempty"`
	Include       []string `json:"include,omitempty"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
	MaxResults    int      `json:"maxResults,omitempty"`
}

// Edit operations.
const (
	EditReplace = "replace"
	EditInsert  = "insert"
	EditDelete  = "delete"
)

// EditParams describes a line-level edit. Lines are 1-based and inclusive.
type EditParams struct {
	Path      string `json:"path"`
	Operation string `json:"operation"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine,omitempty"`
	Content   string `json:"content,omitempty"`
}

type CommandParams struct {
	Command        string `json:"command"`
	Dir            string `json:"dir,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// PatchParams carries a diff-match-patch patch in its textual form.
type PatchParams struct {
	Path  string `json:"path"`
	Patch string `json:"patch"`
}

// ToggleParams enables or disables a named remote tool server. A nil
// Enabled only reports the current state.
type ToggleParams struct {
	Server  string `json:"server"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// MCPCallParams invokes a tool on a configured remote tool server.
type MCPCallParams struct {
	Server    string         `json:"server"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// GuardParams sets the guardrail level. An empty level only reports it.
type GuardParams struct {
	Level string `json:"level,omitempty"`
}

func (PathParams) Kind() ParamsKind    { return ParamsPath }
func (PatternParams) Kind() ParamsKind { return ParamsPattern }
func (EditParams) Kind() ParamsKind    { return ParamsEdit }
func (CommandParams) Kind() ParamsKind { return ParamsCommand }
func (PatchParams) Kind() ParamsKind   { return ParamsPatch }
func (ToggleParams) Kind() ParamsKind  { return ParamsToggle }
func (GuardParams) Kind() ParamsKind   { return ParamsGuard }
func (MCPCallParams) Kind() ParamsKind { return ParamsMCPCall }

// ToolParams is the tagged parameter payload of a ToolRequest. On the wire
// it is a flat object with a "kind" field naming the variant.
type ToolParams struct {
	Params
}

// NewToolParams wraps a variant.
func NewToolParams(p Params) *ToolParams {
	return &ToolParams{Params: p}
}

func (p ToolParams) MarshalJSON() ([]byte, error) {
	if p.Params == nil {
		return []byte("null"), nil
	}
	body, err := json.Marshal(p.Params)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(p.Params.Kind())
	fields["kind"] = kind
	return json.Marshal(fields)
}

func (p *ToolParams) UnmarshalJSON(b []byte) error {
	var head struct {
		Kind ParamsKind `json:"kind"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return fmt.Errorf("tool params: %w", err)
	}

	var v Params
	var err error
	switch head.Kind {
	case ParamsPath:
		v, err = decodeParams[PathParams](b)
	case ParamsPattern:
		v, err = decodeParams[PatternParams](b)
	case ParamsEdit:
		v, err = decodeParams[EditParams](b)
	case ParamsCommand:
		v, err = decodeParams[CommandParams](b)
	case ParamsPatch:
		v, err = decodeParams[PatchParams](b)
	case ParamsToggle:
		v, err = decodeParams[ToggleParams](b)
	case ParamsGuard:
		v, err = decodeParams[GuardParams](b)
	case ParamsMCPCall:
		v, err = decodeParams[MCPCallParams](b)
	case "":
		return errors.New("tool params: missing kind")
	default:
		return fmt.Errorf("tool params: unknown kind %q", head.Kind)
	}
	if err != nil {
		return fmt.Errorf("tool params %s: %w", head.Kind, err)
	}
	p.Params = v
	return nil
}

func decodeParams[T Params](b []byte) (Params, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
