package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentoven/agentdesk/internal/executor"
	"github.com/agentoven/agentdesk/internal/mention"
	"github.com/agentoven/agentdesk/internal/tools"
	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Tools ────────────────────────────────────────────────────

// ListTools lists every tool, optionally filtered by ?category=.
func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	c := r.URL.Query().Get("category")
	if c == "" {
		respondJSON(w, http.StatusOK, h.Tools.List())
		return
	}
	category := models.ToolCategory(c)
	if !category.Valid() {
		respondError(w, http.StatusBadRequest, "invalidRequest", "unknown category "+c)
		return
	}
	respondJSON(w, http.StatusOK, h.Tools.ListByCategory(category))
}

func (h *Handlers) ToolStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Tools.Stats())
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetToolEnabled toggles a tool.
// PUT /api/v1/tools/{name}
func (h *Handlers) SetToolEnabled(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req setEnabledRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "invalidRequest", "enabled is required")
		return
	}
	if err := h.Tools.SetEnabled(name, *req.Enabled); err != nil {
		respondErr(w, err)
		return
	}
	tool, err := h.Tools.Get(name)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tool)
}

// ExecuteTool runs one tool request. The result is always in the body; a
// tool that ran and failed is still a 200 with success=false.
// POST /api/v1/tools/execute
func (h *Handlers) ExecuteTool(w http.ResponseWriter, r *http.Request) {
	var req models.ToolRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Tools.Execute(r.Context(), req)
	var execErr *tools.ToolExecutionError
	if err != nil && !errors.As(err, &execErr) {
		status, _ := statusFor(err)
		respondJSON(w, status, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type batchRequest struct {
	Requests []models.ToolRequest `json:"requests"`
}

// ExecuteBatch runs requests sequentially and returns one result each.
// POST /api/v1/tools/execute-batch
func (h *Handlers) ExecuteBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, h.Tools.ExecuteMultiple(r.Context(), req.Requests))
}

type parseRequest struct {
	Text string `json:"text"`
}

// ParseMentions extracts tool mentions from free text.
// POST /api/v1/tools/parse
func (h *Handlers) ParseMentions(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decode(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, mention.Parse(req.Text))
}

// Assist runs the mention → tools → chat pipeline.
// POST /api/v1/assist
func (h *Handlers) Assist(w http.ResponseWriter, r *http.Request) {
	var req executor.AssistRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.Executor.Assist(r.Context(), req)
	if err != nil {
		if resp == nil {
			respondErr(w, err)
			return
		}
		// Tools already ran; report their results with the chat failure.
		status, kind := statusFor(err)
		respondJSON(w, status, assistFailure{AssistResponse: resp, Kind: kind})
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

type assistFailure struct {
	*executor.AssistResponse
	Kind string `json:"kind"`
}
