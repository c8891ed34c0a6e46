package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Background Tasks ─────────────────────────────────────────

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Orchestrator.GetAllTasks())
}

type queueTaskRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// QueueTask submits a background task.
// POST /api/v1/tasks
func (h *Handlers) QueueTask(w http.ResponseWriter, r *http.Request) {
	var req queueTaskRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		respondError(w, http.StatusBadRequest, "invalidRequest", "type is required")
		return
	}
	id := h.Orchestrator.QueueTask(req.Type, req.Description)
	task, err := h.Orchestrator.GetTask(id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, task)
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Orchestrator.GetTask(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (h *Handlers) ClearCompletedTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"cleared": h.Orchestrator.ClearCompletedTasks()})
}

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Orchestrator.GetAgents())
}

// sseHeartbeat keeps idle event streams open through proxies.
var sseHeartbeat = 15 * time.Second

// StreamTasks sends the full task list as a server-sent event after every
// task state change, starting with the current list.
// GET /api/v1/tasks/events
func (h *Handlers) StreamTasks(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "internal", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	updates := make(chan []models.BackgroundTask)
	unsubscribe := h.Orchestrator.AddListener(func(tasks []models.BackgroundTask) {
		select {
		case updates <- tasks:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	writeEvent := func(tasks []models.BackgroundTask) {
		data, _ := json.Marshal(tasks)
		fmt.Fprintf(w, "event: tasks\ndata: %s\n\n", data)
		flusher.Flush()
	}
	writeEvent(h.Orchestrator.GetAllTasks())

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case tasks := <-updates:
			writeEvent(tasks)
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
