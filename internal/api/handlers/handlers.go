// Package handlers implements the HTTP handlers for the agentdesk server.
//
// Handlers are thin: they decode the request, call one core component, and
// map typed errors onto status codes. Every error body is {"error", "kind"}.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/internal/catalog"
	"github.com/agentoven/agentdesk/internal/credentials"
	"github.com/agentoven/agentdesk/internal/executor"
	"github.com/agentoven/agentdesk/internal/orchestrator"
	"github.com/agentoven/agentdesk/internal/router"
	"github.com/agentoven/agentdesk/internal/tools"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Catalog      *catalog.Catalog
	Router       *router.Router
	Credentials  *credentials.Store
	Tools        *tools.Registry
	Executor     *executor.Executor
	Orchestrator *orchestrator.Orchestrator
}

// New creates a Handlers instance.
func New(cat *catalog.Catalog, r *router.Router, creds *credentials.Store, reg *tools.Registry, exec *executor.Executor, orch *orchestrator.Orchestrator) *Handlers {
	return &Handlers{
		Catalog:      cat,
		Router:       r,
		Credentials:  creds,
		Tools:        reg,
		Executor:     exec,
		Orchestrator: orch,
	}
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, errorBody{Error: message, Kind: kind})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalidRequest", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps a core error onto an HTTP status and error kind.
func statusFor(err error) (int, string) {
	var pe *router.ProviderError
	switch {
	case errors.As(err, &pe):
		if pe.Kind == router.KindRateLimit {
			return http.StatusTooManyRequests, string(pe.Kind)
		}
		return http.StatusBadGateway, string(pe.Kind)
	case errors.Is(err, router.ErrMissingCredential):
		return http.StatusUnauthorized, "missingCredential"
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "notFound"
	case errors.Is(err, tools.ErrUnknownTool):
		return http.StatusNotFound, "unknownTool"
	case errors.Is(err, orchestrator.ErrTaskNotFound):
		return http.StatusNotFound, "taskNotFound"
	case errors.Is(err, tools.ErrToolDisabled):
		return http.StatusConflict, "toolDisabled"
	case errors.Is(err, tools.ErrInvalidParams),
		errors.Is(err, router.ErrInvalidRequest),
		errors.Is(err, executor.ErrEmptyRequest):
		return http.StatusBadRequest, "invalidRequest"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondErr(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	if status >= 500 && kind == "internal" {
		log.Error().Err(err).Msg("Request failed")
	}
	respondError(w, status, kind, err.Error())
}
