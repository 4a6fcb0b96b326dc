package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/syncare/internal/calendar"
	"github.com/dukerupert/syncare/internal/scheduler"
	"github.com/dukerupert/syncare/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps scheduler and store errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *scheduler.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid appointment", "fields": verr.Fields})
	case errors.Is(err, calendar.ErrInvalidKey):
		writeErr(w, http.StatusBadRequest, "invalid date key")
	case errors.Is(err, scheduler.ErrInvalidRecord):
		writeErr(w, http.StatusBadRequest, "invalid appointment")
	case errors.Is(err, scheduler.ErrNotFound):
		writeErr(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, scheduler.ErrNoDateSelected):
		writeErr(w, http.StatusConflict, "no date selected")
	case errors.Is(err, store.ErrPersistenceWrite):
		logger.Error("write-through failed", "error", err)
		writeErr(w, http.StatusServiceUnavailable, "failed to save appointments")
	default:
		logger.Error("request failed", "error", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parseDateParam(r *http.Request) (string, error) {
	key := r.PathValue("date")
	if _, err := calendar.ParseDateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
