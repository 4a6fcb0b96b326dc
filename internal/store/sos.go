package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/syncare/internal/model"
)

// SOSKey holds the patient's emergency flag.
const SOSKey = "sos_signal"

type SOSStore struct {
	kv     KV
	logger *slog.Logger
}

func NewSOSStore(kv KV, logger *slog.Logger) *SOSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SOSStore{kv: kv, logger: logger}
}

// Get returns the current flag. Absent or unreadable JSON reads as inactive.
func (s *SOSStore) Get(ctx context.Context) (model.SOSSignal, error) {
	raw, found, err := s.kv.Get(ctx, SOSKey)
	if err != nil {
		return model.SOSSignal{}, fmt.Errorf("get sos signal: %w", err)
	}
	if !found {
		return model.SOSSignal{}, nil
	}

	var sig model.SOSSignal
	if err := json.Unmarshal([]byte(raw), &sig); err != nil {
		s.logger.Warn("malformed sos signal, treating as inactive", "error", err)
		return model.SOSSignal{}, nil
	}
	return sig, nil
}

// Raise marks the flag active for patient.
func (s *SOSStore) Raise(ctx context.Context, patient string, at time.Time) (model.SOSSignal, error) {
	sig := model.SOSSignal{Active: true, Timestamp: at.UnixMilli(), Patient: patient}
	if err := s.put(ctx, sig); err != nil {
		return model.SOSSignal{}, err
	}
	return sig, nil
}

// Clear writes an inactive flag.
func (s *SOSStore) Clear(ctx context.Context) error {
	return s.put(ctx, model.SOSSignal{Active: false})
}

func (s *SOSStore) put(ctx context.Context, sig model.SOSSignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal sos signal: %w", err)
	}
	if err := s.kv.Set(ctx, SOSKey, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}
	return nil
}
