package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/syncare/internal/model"
)

// AppointmentsKey is the namespaced key holding the doctor's appointment book.
const AppointmentsKey = "doctorAppointments"

// ErrPersistenceWrite marks a failed write-through. Callers must not apply the
// update in memory when they see it.
var ErrPersistenceWrite = errors.New("persistence write failed")

// AppointmentStore loads and persists the whole appointment book as a single
// JSON value.
type AppointmentStore struct {
	kv     KV
	logger *slog.Logger
}

func NewAppointmentStore(kv KV, logger *slog.Logger) *AppointmentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppointmentStore{kv: kv, logger: logger}
}

// Load returns the persisted book. A missing or malformed value yields an empty
// book; only backend read failures are returned as errors.
func (s *AppointmentStore) Load(ctx context.Context) (model.Book, error) {
	raw, found, err := s.kv.Get(ctx, AppointmentsKey)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	if !found {
		return model.Book{}, nil
	}

	var book model.Book
	if err := json.Unmarshal([]byte(raw), &book); err != nil {
		s.logger.Warn("malformed persisted appointments, starting empty", "error", err)
		return model.Book{}, nil
	}
	if book == nil {
		book = model.Book{}
	}
	return book, nil
}

// Persist serializes book and writes it through.
func (s *AppointmentStore) Persist(ctx context.Context, book model.Book) error {
	if book == nil {
		book = model.Book{}
	}
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("%w: marshal appointments: %w", ErrPersistenceWrite, err)
	}
	if err := s.kv.Set(ctx, AppointmentsKey, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}
	return nil
}
