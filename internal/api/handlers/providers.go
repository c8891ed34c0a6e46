package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/internal/credentials"
	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Providers & Chat ─────────────────────────────────────────

func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Catalog.ListProviders())
}

func (h *Handlers) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProvider(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type chatResponse struct {
	Message    models.ChatMessage `json:"message"`
	TokensUsed *int64             `json:"tokensUsed,omitempty"`
	Provider   string             `json:"provider"`
	Model      string             `json:"model"`
	LatencyMs  int64              `json:"latencyMs"`
}

// Chat sends one chat request through the router.
// POST /api/v1/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.Router.Chat(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{
		Message:    models.ChatMessage{Role: models.RoleAssistant, Content: resp.Content},
		TokensUsed: resp.TokensUsed,
		Provider:   resp.Provider,
		Model:      resp.Model,
		LatencyMs:  resp.LatencyMs,
	})
}

func (h *Handlers) GetUsage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Router.Usage())
}

// ── Credentials ──────────────────────────────────────────────

func (h *Handlers) ListCredentials(w http.ResponseWriter, r *http.Request) {
	list := h.Credentials.List()
	for i := range list {
		list[i] = credentials.Masked(list[i])
	}
	respondJSON(w, http.StatusOK, list)
}

type setCredentialRequest struct {
	Secret string `json:"secret"`
}

// SetCredential stores a secret and resets its validation state.
// PUT /api/v1/credentials/{provider}
func (h *Handlers) SetCredential(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")
	if _, err := h.Catalog.GetProvider(providerID); err != nil {
		respondErr(w, err)
		return
	}
	var req setCredentialRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Secret) == "" {
		respondError(w, http.StatusBadRequest, "invalidRequest", "secret is required")
		return
	}

	h.Credentials.Set(providerID, strings.TrimSpace(req.Secret))
	cred, _ := h.Credentials.Get(providerID)
	log.Info().Str("provider", providerID).Msg("Credential stored")
	respondJSON(w, http.StatusOK, credentials.Masked(cred))
}

func (h *Handlers) RemoveCredential(w http.ResponseWriter, r *http.Request) {
	h.Credentials.Remove(chi.URLParam(r, "provider"))
	w.WriteHeader(http.StatusNoContent)
}

type testProviderRequest struct {
	Secret string `json:"secret,omitempty"`
	Model  string `json:"model,omitempty"`
}

type testProviderResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Success  bool   `json:"success"`
	Latency  int64  `json:"latency"`
	Error    string `json:"error,omitempty"`
}

// TestProvider runs a connection test and records the outcome on the stored
// credential. A secret in the body is stored first.
// POST /api/v1/credentials/{provider}/test
func (h *Handlers) TestProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")
	var req testProviderRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	modelID := req.Model
	if modelID == "" {
		m, err := h.Catalog.DefaultModel(providerID)
		if err != nil {
			respondErr(w, err)
			return
		}
		modelID = m.ID
	} else if _, err := h.Catalog.GetModel(providerID, modelID); err != nil {
		respondErr(w, err)
		return
	}

	if s := strings.TrimSpace(req.Secret); s != "" {
		h.Credentials.Set(providerID, s)
	}
	secret, revision, stored := h.Credentials.Secret(providerID)

	res := h.Router.TestConnection(r.Context(), providerID, modelID, secret)
	if stored {
		var err error
		if res.Success {
			err = h.Credentials.MarkValidated(providerID, revision, res.LatencyMs)
		} else {
			err = h.Credentials.MarkInvalid(providerID, revision, res.Error)
		}
		if err != nil {
			log.Debug().Err(err).Str("provider", providerID).Msg("Validation result discarded")
		}
	}

	respondJSON(w, http.StatusOK, testProviderResponse{
		Provider: res.Provider,
		Model:    res.Model,
		Success:  res.Success,
		Latency:  res.LatencyMs,
		Error:    res.Error,
	})
}

// RunTestSuite queues a background provider-test task.
// POST /api/v1/providers/test-suite
func (h *Handlers) RunTestSuite(w http.ResponseWriter, r *http.Request) {
	id := h.Orchestrator.QueueTask(models.TaskKindProviderTest, "Test all configured providers")
	respondJSON(w, http.StatusAccepted, map[string]string{"taskId": id})
}
