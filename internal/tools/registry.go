package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentoven/agentdesk/pkg/models"
)

var tracer = otel.Tracer("agentdesk/tools")

// DefaultBatchDelay is the pause between consecutive invocations of a batch.
const DefaultBatchDelay = 100 * time.Millisecond

type entry struct {
	tool    Tool
	enabled atomic.Bool
}

// Registry holds the registered tools. Membership is fixed after startup;
// only the enabled flags change.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	batchDelay time.Duration
}

type Option func(*Registry)

// WithBatchDelay overrides the pause between batch invocations.
func WithBatchDelay(d time.Duration) Option {
	return func(r *Registry) { r.batchDelay = d }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:    make(map[string]*entry),
		batchDelay: DefaultBatchDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an enabled tool. Names are case-insensitive.
func (r *Registry) Register(t Tool) error {
	name := strings.ToLower(t.Name())
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if !t.Category().Valid() {
		return fmt.Errorf("register tool %s: unknown category %q", name, t.Category())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	e := &entry{tool: t}
	e.enabled.Store(true)
	r.entries[name] = e
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[strings.ToLower(name)]
	return e, ok
}

func describe(name string, e *entry) models.Tool {
	return models.Tool{
		Name:        name,
		Category:    e.tool.Category(),
		Description: e.tool.Description(),
		Enabled:     e.enabled.Load(),
	}
}

// List returns every tool in registration order.
func (r *Registry) List() []models.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, describe(name, r.entries[name]))
	}
	return out
}

func (r *Registry) ListByCategory(c models.ToolCategory) []models.Tool {
	var out []models.Tool
	for _, t := range r.List() {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) Get(name string) (models.Tool, error) {
	e, ok := r.lookup(name)
	if !ok {
		return models.Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return describe(strings.ToLower(name), e), nil
}

// SetEnabled flips a tool's enabled flag. In-flight executions keep the
// value they observed when they started.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	e, ok := r.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if e.enabled.Swap(enabled) != enabled {
		log.Info().Str("tool", strings.ToLower(name)).Bool("enabled", enabled).Msg("Tool toggled")
	}
	return nil
}

func (r *Registry) Stats() models.ToolStats {
	s := models.ToolStats{ByCategory: make(map[models.ToolCategory]models.CategoryStat)}
	for _, c := range models.ToolCategories {
		s.ByCategory[c] = models.CategoryStat{}
	}
	for _, t := range r.List() {
		cs := s.ByCategory[t.Category]
		cs.Total++
		s.Total++
		if t.Enabled {
			cs.Enabled++
			s.Enabled++
		}
		s.ByCategory[t.Category] = cs
	}
	s.Disabled = s.Total - s.Enabled
	return s
}

// ── Execution ────────────────────────────────────────────────

// Execute runs one request. The returned result is always populated; when the
// error is non-nil the result carries the same message and Success=false.
// Metadata always includes elapsed_ms.
func (r *Registry) Execute(ctx context.Context, req models.ToolRequest) (models.ToolResult, error) {
	start := time.Now()
	name := strings.ToLower(strings.TrimSpace(req.Type))

	ctx, span := tracer.Start(ctx, "tools.execute",
		trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	res, err := r.execute(ctx, name, req)
	res.ToolName = name
	if res.Metadata == nil {
		res.Metadata = map[string]any{}
	}
	elapsed := time.Since(start).Milliseconds()
	res.Metadata["elapsed_ms"] = elapsed

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug().Err(err).Str("tool", name).Int64("elapsed_ms", elapsed).Msg("Tool execution failed")
	}
	return res, err
}

func (r *Registry) execute(ctx context.Context, name string, req models.ToolRequest) (models.ToolResult, error) {
	e, ok := r.lookup(name)
	if !ok {
		return failure(nil, fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}
	// Snapshot once; a toggle after this point does not affect this call.
	if !e.enabled.Load() {
		return failure(nil, fmt.Errorf("%w: %s", ErrToolDisabled, name))
	}
	if err := checkAccepts(e.tool, req); err != nil {
		return failure(nil, fmt.Errorf("%w: %v", ErrInvalidParams, err))
	}
	if err := e.tool.Validate(req); err != nil {
		return failure(nil, fmt.Errorf("%w: %s: %v", ErrInvalidParams, name, err))
	}

	out, err := run(ctx, e.tool, req)
	if err != nil {
		return failure(&out, &ToolExecutionError{Tool: name, Err: err})
	}
	return models.ToolResult{
		Content:  out.Content,
		Success:  true,
		Metadata: out.Metadata,
	}, nil
}

func run(ctx context.Context, t Tool, req models.ToolRequest) (out Output, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return t.Execute(ctx, req)
}

func failure(out *Output, err error) (models.ToolResult, error) {
	res := models.ToolResult{Success: false, Error: err.Error()}
	if out != nil {
		res.Content = out.Content
		res.Metadata = out.Metadata
	}
	return res, err
}

// ExecuteMultiple runs requests one after another in submission order with a
// short pause between them. A failing request does not stop the batch; every
// request gets a result.
func (r *Registry) ExecuteMultiple(ctx context.Context, reqs []models.ToolRequest) []models.ToolResult {
	results := make([]models.ToolResult, 0, len(reqs))
	for i, req := range reqs {
		if i > 0 && r.batchDelay > 0 {
			if err := sleepCtx(ctx, r.batchDelay); err != nil {
				results = append(results, cancelled(req, err))
				continue
			}
		}
		if err := ctx.Err(); err != nil {
			results = append(results, cancelled(req, err))
			continue
		}
		res, _ := r.Execute(ctx, req)
		results = append(results, res)
	}
	return results
}

func cancelled(req models.ToolRequest, err error) models.ToolResult {
	return models.ToolResult{
		ToolName: strings.ToLower(strings.TrimSpace(req.Type)),
		Success:  false,
		Error:    fmt.Sprintf("batch aborted: %v", err),
		Metadata: map[string]any{"elapsed_ms": int64(0)},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
