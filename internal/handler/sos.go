package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/syncare/internal/store"
	"github.com/dukerupert/syncare/internal/websocket"
)

type SOSHandler struct {
	sosStore *store.SOSStore
	hub      *websocket.Hub
	now      func() time.Time
	logger   *slog.Logger
}

func NewSOSHandler(ss *store.SOSStore, hub *websocket.Hub, now func() time.Time, logger *slog.Logger) *SOSHandler {
	if now == nil {
		now = time.Now
	}
	return &SOSHandler{sosStore: ss, hub: hub, now: now, logger: logger}
}

func (h *SOSHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type sosRequest struct {
	Patient string `json:"patient"`
}

func (h *SOSHandler) Get(w http.ResponseWriter, r *http.Request) {
	sig, err := h.sosStore.Get(r.Context())
	if err != nil {
		h.logger.Error("get sos signal", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to read sos signal")
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (h *SOSHandler) Raise(w http.ResponseWriter, r *http.Request) {
	var req sosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Patient = strings.TrimSpace(req.Patient)
	if req.Patient == "" {
		writeErr(w, http.StatusBadRequest, "patient is required")
		return
	}

	sig, err := h.sosStore.Raise(r.Context(), req.Patient, h.now())
	if err != nil {
		h.logger.Error("raise sos signal", "error", err)
		writeErr(w, http.StatusServiceUnavailable, "failed to raise sos signal")
		return
	}
	h.logger.Warn("sos raised", "patient", sig.Patient)

	h.broadcast(websocket.NewMessage("sos", "raised", 0, map[string]any{
		"patient":   sig.Patient,
		"timestamp": sig.Timestamp,
	}))
	writeJSON(w, http.StatusCreated, sig)
}

func (h *SOSHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.sosStore.Clear(r.Context()); err != nil {
		h.logger.Error("clear sos signal", "error", err)
		writeErr(w, http.StatusServiceUnavailable, "failed to clear sos signal")
		return
	}

	h.broadcast(websocket.NewMessage("sos", "cleared", 0, nil))
	w.WriteHeader(http.StatusNoContent)
}
