// Package tools implements the named, categorized capabilities that can be
// invoked from chat mentions or structured requests, and the registry that
// gates them behind an enable flag.
package tools

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/agentoven/agentdesk/pkg/models"
)

var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrToolDisabled  = errors.New("tool disabled")
	ErrInvalidParams = errors.New("invalid tool params")
)

// ToolExecutionError wraps a failure raised by a tool implementation.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// Tool is one capability. Implementations do their own I/O and must bound it
// themselves; the registry only measures elapsed time.
type Tool interface {
	Name() string
	Category() models.ToolCategory
	Description() string

	// Accepts lists the params variants the tool understands. Requests
	// without params are always passed to Validate.
	Accepts() []models.ParamsKind

	// Validate checks a request before execution.
	Validate(req models.ToolRequest) error

	Execute(ctx context.Context, req models.ToolRequest) (Output, error)
}

// Output is what a tool produces. Content may be set alongside an error,
// e.g. the captured output of a failed command.
type Output struct {
	Content  string
	Metadata map[string]any
}

func textOutput(content string) Output {
	return Output{Content: content, Metadata: map[string]any{}}
}

func (o Output) with(key string, v any) Output {
	if o.Metadata == nil {
		o.Metadata = map[string]any{}
	}
	o.Metadata[key] = v
	return o
}

// paramsAs extracts a typed params variant from a request.
func paramsAs[T models.Params](req models.ToolRequest) (T, bool) {
	var zero T
	if req.Params == nil || req.Params.Params == nil {
		return zero, false
	}
	v, ok := req.Params.Params.(T)
	return v, ok
}

func checkAccepts(t Tool, req models.ToolRequest) error {
	if req.Params == nil || req.Params.Params == nil {
		return nil
	}
	kind := req.Params.Kind()
	if !slices.Contains(t.Accepts(), kind) {
		return fmt.Errorf("tool %s does not accept %q params", t.Name(), kind)
	}
	return nil
}

// queryOr returns the first non-empty value.
func queryOr(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
