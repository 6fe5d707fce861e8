package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/user/slotwatch/internal/delivery/http/response"
	"github.com/user/slotwatch/internal/entity"
)

// StatusBoard exposes the current state of every monitored target.
type StatusBoard interface {
	Snapshots() []entity.TargetSnapshot
	Snapshot(name string) (entity.TargetSnapshot, bool)
}

type Handler struct {
	board  StatusBoard
	stream http.Handler
}

// NewHandler creates the API handler. stream serves live events and may be nil.
func NewHandler(board StatusBoard, stream http.Handler) *Handler {
	return &Handler{
		board:  board,
		stream: stream,
	}
}

func (h *Handler) HandleListTargets(w http.ResponseWriter, r *http.Request) {
	snaps := h.board.Snapshots()
	resp := response.TargetListResponse{Targets: make([]response.TargetResponse, 0, len(snaps))}
	for _, s := range snaps {
		resp.Targets = append(resp.Targets, response.FromSnapshot(s))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetTarget(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.writeJSONError(w, "Target name is required", http.StatusBadRequest)
		return
	}

	snap, ok := h.board.Snapshot(name)
	if !ok {
		h.writeJSONError(w, "Target not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromSnapshot(snap))
}

func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		h.writeJSONError(w, "Event stream disabled", http.StatusNotFound)
		return
	}
	h.stream.ServeHTTP(w, r)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	snaps := h.board.Snapshots()
	available := 0
	for _, s := range snaps {
		if s.State == entity.StateHasSlot {
			available++
		}
	}
	h.writeJSON(w, http.StatusOK, response.HealthResponse{
		Status:         "ok",
		Targets:        len(snaps),
		SlotsAvailable: available,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
