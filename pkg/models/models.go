// Package models holds the value types shared by the agentdesk core and the
// HTTP boundary: the provider catalogue, credentials, chat messages, tools,
// background tasks and agents.
//
// JSON field names follow the contracts the workspace UI consumes
// (camelCase), since these values cross the process boundary verbatim.
package models

import (
	"time"
)

// ── Provider Catalogue ───────────────────────────────────────

// Provider is an external AI backend exposing one or more models.
// Immutable once the catalog has been loaded.
type Provider struct {
	ID                 string  `json:"id" yaml:"id"`
	DisplayName        string  `json:"displayName" yaml:"displayName"`
	RequiresCredential bool    `json:"requiresCredential" yaml:"requiresCredential"`
	Models             []Model `json:"models" yaml:"models"`

	// Adapter is the router adapter kind serving this provider
	// ("openai", "anthropic", "google", "ollama").
	Adapter       string `json:"adapter" yaml:"adapter"`
	BaseURL       string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	CredentialEnv string `json:"credentialEnv,omitempty" yaml:"credentialEnv,omitempty"`
	Website       string `json:"website,omitempty" yaml:"website,omitempty"`
}

// Model belongs to exactly one Provider and is looked up by (providerID, modelID).
type Model struct {
	ID                         string   `json:"id" yaml:"id"`
	DisplayName                string   `json:"displayName" yaml:"displayName"`
	ContextLength              int      `json:"contextLength,omitempty" yaml:"contextLength,omitempty"`
	InputCostPerMillionTokens  *float64 `json:"inputCostPerMillionTokens,omitempty" yaml:"inputCostPerMillionTokens,omitempty"`
	OutputCostPerMillionTokens *float64 `json:"outputCostPerMillionTokens,omitempty" yaml:"outputCostPerMillionTokens,omitempty"`
	SupportsVision             bool     `json:"supportsVision" yaml:"supportsVision"`
	Description                string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Clone returns a deep copy of the provider, including its model slice.
func (p Provider) Clone() Provider {
	cp := p
	cp.Models = make([]Model, len(p.Models))
	copy(cp.Models, p.Models)
	return cp
}

// ── Credentials ──────────────────────────────────────────────

// Credential is a per-provider secret plus its validation state.
type Credential struct {
	ProviderID    string `json:"providerId"`
	Secret        string `json:"secret,omitempty"`
	Validated     bool   `json:"validated"`
	LastLatencyMs *int64 `json:"lastLatencyMs,omitempty"`
	LastError     string `json:"lastError,omitempty"`

	// Revision increments every time the secret changes. Validation results
	// are only accepted for the revision that was actually tested.
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ── Chat ─────────────────────────────────────────────────────

// Message roles understood by every adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the uniform chat contract routed to a provider adapter.
type ChatRequest struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	APIKey      string        `json:"apiKey,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"maxTokens"`
}

// ChatResponse is the opaque response unit returned by every adapter.
type ChatResponse struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	TokensUsed   *int64 `json:"tokensUsed,omitempty"`
	InputTokens  int64  `json:"inputTokens,omitempty"`
	OutputTokens int64  `json:"outputTokens,omitempty"`
	LatencyMs    int64  `json:"latencyMs"`
}

// ConnectionResult is the outcome of a single provider round-trip test.
type ConnectionResult struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// UsageSummary accumulates tokens and estimated cost per provider and model.
type UsageSummary struct {
	TotalTokens  int64              `json:"totalTokens"`
	TotalCostUSD float64            `json:"totalCostUsd"`
	Requests     int64              `json:"requests"`
	ByProvider   map[string]float64 `json:"byProvider"`
	ByModel      map[string]float64 `json:"byModel"`
}

// ── Tools ────────────────────────────────────────────────────

// ToolCategory groups tools for listing and statistics.
type ToolCategory string

const (
	ToolCategorySearch     ToolCategory = "search"
	ToolCategoryEdit       ToolCategory = "edit"
	ToolCategoryRun        ToolCategory = "run"
	ToolCategoryRemoteCall ToolCategory = "remoteCall"
	ToolCategoryAdvanced   ToolCategory = "advanced"
)

// ToolCategories lists every category in display order.
var ToolCategories = []ToolCategory{
	ToolCategorySearch,
	ToolCategoryEdit,
	ToolCategoryRun,
	ToolCategoryRemoteCall,
	ToolCategoryAdvanced,
}

// Valid reports whether c is a known category.
func (c ToolCategory) Valid() bool {
	for _, known := range ToolCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Tool describes a registered capability. Enabled is the only mutable field.
type Tool struct {
	Name        string       `json:"name"`
	Category    ToolCategory `json:"category"`
	Description string       `json:"description"`
	Enabled     bool         `json:"enabled"`
}

// ToolInvocation is one mention extracted from free text.
type ToolInvocation struct {
	ToolName     string `json:"type"`
	Query        string `json:"query"`
	SourceOffset int    `json:"position"`
}

// ToolRequest is a structured tool call. Type names the tool.
type ToolRequest struct {
	Type   string      `json:"type"`
	Query  string      `json:"query"`
	Params *ToolParams `json:"params,omitempty"`
}

// ToolResult is returned synchronously from tool execution and never stored
// centrally.
type ToolResult struct {
	ToolName string         `json:"type"`
	Content  string         `json:"content"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolStats summarises the registry by category.
type ToolStats struct {
	Total      int                           `json:"total"`
	Enabled    int                           `json:"enabled"`
	Disabled   int                           `json:"disabled"`
	ByCategory map[ToolCategory]CategoryStat `json:"byCategory"`
}

type CategoryStat struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
}

// ── Background Tasks ─────────────────────────────────────────

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Well-known task kinds offered by the workspace.
const (
	TaskKindAnalysis     = "analysis"
	TaskKindRefactor     = "refactor"
	TaskKindSearch       = "search"
	TaskKindGeneration   = "generation"
	TaskKindProviderTest = "provider-test"
)

// BackgroundTask is owned by the orchestrator while pending or running and is
// read-only once terminal.
type BackgroundTask struct {
	ID          string     `json:"id"`
	Kind        string     `json:"type"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	AgentID     string     `json:"agentId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// Clone returns a copy that shares no pointers with t.
func (t BackgroundTask) Clone() BackgroundTask {
	cp := t
	if t.StartedAt != nil {
		ts := *t.StartedAt
		cp.StartedAt = &ts
	}
	if t.FinishedAt != nil {
		ts := *t.FinishedAt
		cp.FinishedAt = &ts
	}
	return cp
}

type AgentStatus string

const (
	AgentIdle AgentStatus = "idle"
	AgentBusy AgentStatus = "busy"
)

// Agent is one worker in the orchestrator's fixed pool.
type Agent struct {
	ID                  string      `json:"id"`
	DisplayName         string      `json:"name"`
	Status              AgentStatus `json:"status"`
	CurrentTaskID       string      `json:"currentTask,omitempty"`
	TasksCompletedCount int         `json:"tasksCompleted"`
}
