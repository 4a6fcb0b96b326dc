// Package scheduler holds the appointment book in memory, mirrors every change
// to a repository before applying it, and drives the single-editor edit surface.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/syncare/internal/calendar"
	"github.com/dukerupert/syncare/internal/model"
)

// Repository loads and persists the whole book.
type Repository interface {
	Load(ctx context.Context) (model.Book, error)
	Persist(ctx context.Context, book model.Book) error
}

// Change describes a mutation that reached the repository.
type Change struct {
	Action      string
	Key         string
	Appointment model.Appointment
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Service owns the in-memory book. Mutations are serialized and write-through:
// the repository is written first and memory only changes if that succeeds.
type Service struct {
	mu     sync.Mutex
	repo   Repository
	book   model.Book
	lastID int64

	now    func() time.Time
	notify func(Change)
	logger *slog.Logger
}

type Option func(*Service)

// WithClock overrides time.Now for id generation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier registers a callback invoked after each persisted mutation.
func WithNotifier(fn func(Change)) Option {
	return func(s *Service) { s.notify = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Open reads the book once from repo.
func Open(ctx context.Context, repo Repository, opts ...Option) (*Service, error) {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	book, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open scheduler: %w", err)
	}
	if book == nil {
		book = model.Book{}
	}
	s.book = book

	for _, list := range book {
		for _, a := range list {
			s.lastID = max(s.lastID, a.ID)
		}
	}
	return s, nil
}

// Book returns the current snapshot. Callers must treat it as read-only.
func (s *Service) Book() model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book
}

// List returns a copy of the appointments for key.
func (s *Service) List(key string) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Appointments(key)
}

// Grid renders month against the current book.
func (s *Service) Grid(month calendar.Month, today time.Time) calendar.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calendar.GenerateGrid(month, s.book, today)
}

// Create appends a new appointment to key with a fresh id.
func (s *Service) Create(ctx context.Context, key string, form Form) (model.Appointment, error) {
	form = form.normalized()
	if err := checkKey(key); err != nil {
		return model.Appointment{}, err
	}
	if err := form.Validate(); err != nil {
		return model.Appointment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appt := form.record(s.nextID())
	list := append(s.book.Appointments(key), appt)
	sortByTime(list)

	if err := s.commit(ctx, s.book.With(key, list)); err != nil {
		return model.Appointment{}, err
	}
	s.emit(Change{Action: ActionCreated, Key: key, Appointment: appt})
	return appt, nil
}

// Update replaces the fields of appointment id under key, keeping its id.
func (s *Service) Update(ctx context.Context, key string, id int64, form Form) (model.Appointment, error) {
	form = form.normalized()
	if err := checkKey(key); err != nil {
		return model.Appointment{}, err
	}
	if err := form.Validate(); err != nil {
		return model.Appointment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.book.Appointments(key)
	idx := slices.IndexFunc(list, func(a model.Appointment) bool { return a.ID == id })
	if idx < 0 {
		return model.Appointment{}, fmt.Errorf("%w: id %d on %s", ErrNotFound, id, key)
	}
	appt := form.record(id)
	list[idx] = appt
	sortByTime(list)

	if err := s.commit(ctx, s.book.With(key, list)); err != nil {
		return model.Appointment{}, err
	}
	s.emit(Change{Action: ActionUpdated, Key: key, Appointment: appt})
	return appt, nil
}

// Delete removes appointment id from key. A missing id is not an error and
// nothing is written. It reports whether a record was removed.
func (s *Service) Delete(ctx context.Context, key string, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, ok := s.book.Find(key, id)
	if !ok {
		return false, nil
	}

	list := slices.DeleteFunc(s.book.Appointments(key), func(a model.Appointment) bool { return a.ID == id })
	next := s.book.With(key, list)
	if len(list) == 0 {
		delete(next, key)
	}

	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	s.emit(Change{Action: ActionDeleted, Key: key, Appointment: removed})
	return true, nil
}

// commit must be called with mu held.
func (s *Service) commit(ctx context.Context, next model.Book) error {
	if err := s.repo.Persist(ctx, next); err != nil {
		s.logger.Error("persist appointments", "error", err)
		return fmt.Errorf("save appointments: %w", err)
	}
	s.book = next
	return nil
}

func (s *Service) emit(c Change) {
	s.logger.Debug("appointment changed", "action", c.Action, "key", c.Key, "id", c.Appointment.ID)
	if s.notify != nil {
		s.notify(c)
	}
}

// nextID returns a millisecond timestamp, bumped past the last id handed out
// so ids stay unique when two saves land in the same millisecond.
func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func checkKey(key string) error {
	if _, err := calendar.ParseDateKey(key); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

func sortByTime(list []model.Appointment) {
	slices.SortStableFunc(list, func(a, b model.Appointment) int {
		return strings.Compare(a.Time, b.Time)
	})
}
