package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/syncare/internal/handler"
	"github.com/dukerupert/syncare/internal/middleware"
	"github.com/dukerupert/syncare/internal/model"
	"github.com/dukerupert/syncare/internal/scheduler"
	"github.com/dukerupert/syncare/internal/sos"
	"github.com/dukerupert/syncare/internal/store"
	ws "github.com/dukerupert/syncare/internal/websocket"
)

// Options tunes the server beyond its storage backend.
type Options struct {
	SOSInterval    time.Duration
	OriginPatterns []string
	Now            func() time.Time
}

type Server struct {
	hub          *ws.Hub
	service      *scheduler.Service
	sosStore     *store.SOSStore
	poller       *sos.Poller
	appointmentH *handler.AppointmentHandler
	sosH         *handler.SOSHandler
	origins      []string
	logger       *slog.Logger
}

// New loads the appointment book from kv and wires the handlers, the
// websocket hub and the SOS poller around it.
func New(ctx context.Context, kv store.KV, opts Options, logger *slog.Logger) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	apptStore := store.NewAppointmentStore(kv, logger.With("component", "appointment_store"))
	sosStore := store.NewSOSStore(kv, logger.With("component", "sos_store"))

	svc, err := scheduler.Open(ctx, apptStore,
		scheduler.WithClock(opts.Now),
		scheduler.WithNotifier(appointmentNotifier(hub)),
		scheduler.WithLogger(logger.With("component", "scheduler")),
	)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	poller := sos.NewPoller(sosStore, opts.SOSInterval, func(sig model.SOSSignal) {
		hub.Broadcast(ws.NewMessage("sos", "active", 0, map[string]any{
			"patient":   sig.Patient,
			"timestamp": sig.Timestamp,
		}))
	}, logger.With("component", "sos"))

	return &Server{
		hub:          hub,
		service:      svc,
		sosStore:     sosStore,
		poller:       poller,
		appointmentH: handler.NewAppointmentHandler(svc, opts.Now, logger.With("component", "appointments")),
		sosH:         handler.NewSOSHandler(sosStore, hub, opts.Now, logger.With("component", "sos_handler")),
		origins:      opts.OriginPatterns,
		logger:       logger,
	}, nil
}

func appointmentNotifier(hub *ws.Hub) func(scheduler.Change) {
	return func(c scheduler.Change) {
		msg := ws.NewMessage("appointment", c.Action, c.Appointment.ID, map[string]any{
			"time":    c.Appointment.Time,
			"patient": c.Appointment.Patient,
		})
		msg.Key = c.Key
		hub.Broadcast(msg)
	}
}

// Service returns the scheduler service.
func (s *Server) Service() *scheduler.Service {
	return s.service
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// StartPoller begins watching the SOS flag.
func (s *Server) StartPoller(ctx context.Context) {
	s.poller.Start(ctx)
}

// StopPoller stops the SOS poller and waits for it to exit.
func (s *Server) StopPoller() {
	s.poller.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.origins, s.logger.With("component", "websocket")))

	mux.HandleFunc("GET /api/appointments", s.appointmentH.Book)
	mux.HandleFunc("GET /api/appointments/grid", s.appointmentH.Grid)
	mux.HandleFunc("GET /api/appointments/{date}", s.appointmentH.List)
	mux.HandleFunc("POST /api/appointments/{date}", s.appointmentH.Create)
	mux.HandleFunc("PUT /api/appointments/{date}/{id}", s.appointmentH.Update)
	mux.HandleFunc("DELETE /api/appointments/{date}/{id}", s.appointmentH.Delete)

	mux.HandleFunc("GET /api/sos", s.sosH.Get)
	mux.HandleFunc("POST /api/sos", s.sosH.Raise)
	mux.HandleFunc("DELETE /api/sos", s.sosH.Clear)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return middleware.RequestID(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}
