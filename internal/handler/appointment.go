package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/syncare/internal/calendar"
	"github.com/dukerupert/syncare/internal/model"
	"github.com/dukerupert/syncare/internal/scheduler"
)

type AppointmentHandler struct {
	svc    *scheduler.Service
	now    func() time.Time
	logger *slog.Logger
}

func NewAppointmentHandler(svc *scheduler.Service, now func() time.Time, logger *slog.Logger) *AppointmentHandler {
	if now == nil {
		now = time.Now
	}
	return &AppointmentHandler{svc: svc, now: now, logger: logger}
}

// Book returns the whole book in its persisted layout.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Book())
}

// Grid renders a month. year and month (zero-based) default to today.
func (h *AppointmentHandler) Grid(w http.ResponseWriter, r *http.Request) {
	today := h.now()
	month := calendar.MonthOf(today)

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			writeErr(w, http.StatusBadRequest, "year must be between 1 and 9999")
			return
		}
		month.Year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 || m > 11 {
			writeErr(w, http.StatusBadRequest, "month must be 0-11")
			return
		}
		month.Index = m
	}

	writeJSON(w, http.StatusOK, h.svc.Grid(month, today))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	key, err := parseDateParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid date key")
		return
	}

	list := h.svc.List(key)
	if list == nil {
		list = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	key, err := parseDateParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid date key")
		return
	}

	var form scheduler.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	appt, err := h.svc.Create(r.Context(), key, form)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	key, err := parseDateParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid date key")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	var form scheduler.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	appt, err := h.svc.Update(r.Context(), key, id, form)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Delete is idempotent: an unknown id still answers 204.
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := parseDateParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid date key")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	if _, err := h.svc.Delete(r.Context(), key, id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
