package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/tasks"
)

// Trigger starts drains. [tasks.Scheduler] implements it.
type Trigger interface {
	TriggerSync(ctx context.Context, playlistID int64) (tasks.TriggerResult, error)
	TriggerAll(ctx context.Context) (map[int64]tasks.TriggerResult, error)
	Running() []int64
}

// SyncHandler serves POST /sync/{id} and POST /sync.
//
// Drains outlive the request; they stop when the daemon shuts down.
type SyncHandler struct {
	trigger Trigger
	logger  *log.Logger
}

// NewSyncHandler creates a sync trigger handler.
func NewSyncHandler(trigger Trigger, logger *log.Logger) *SyncHandler {
	return &SyncHandler{trigger: trigger, logger: logger}
}

// Routes implements [Handler].
func (h *SyncHandler) Routes() []string {
	return []string{"POST /sync/{id}", "POST /sync"}
}

type triggerResponse struct {
	PlaylistID int64  `json:"playlist_id"`
	Result     string `json:"result"`
}

// ServeHTTP answers 202 when a drain starts and 409 when one is already running.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	raw := r.PathValue("id")
	if raw == "" {
		h.triggerAll(ctx, w)
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	result, err := h.trigger.TriggerSync(ctx, id)
	if err != nil {
		h.logger.Error("failed to trigger sync", "playlist", id, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusAccepted
	if result == tasks.AlreadyRunning {
		status = http.StatusConflict
	}
	writeJSON(w, status, triggerResponse{PlaylistID: id, Result: result.String()})
}

func (h *SyncHandler) triggerAll(ctx context.Context, w http.ResponseWriter) {
	results, err := h.trigger.TriggerAll(ctx)
	if err != nil {
		h.logger.Error("failed to trigger sync", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]triggerResponse, 0, len(results))
	for id, r := range results {
		out = append(out, triggerResponse{PlaylistID: id, Result: r.String()})
	}
	writeJSON(w, http.StatusAccepted, out)
}

// HealthHandler serves GET /healthz with the playlists currently draining.
type HealthHandler struct {
	trigger Trigger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(trigger Trigger) *HealthHandler {
	return &HealthHandler{trigger: trigger}
}

// Routes implements [Handler].
func (h *HealthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "running": h.trigger.Running()})
}
