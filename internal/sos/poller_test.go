package sos

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/syncare/internal/model"
)

type fakeReader struct {
	mu  sync.Mutex
	sig model.SOSSignal
	err error
}

func (f *fakeReader) Get(context.Context) (model.SOSSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sig, f.err
}

func (f *fakeReader) set(sig model.SOSSignal, err error) {
	f.mu.Lock()
	f.sig, f.err = sig, err
	f.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTickNotifiesOnlyWhenActive(t *testing.T) {
	r := &fakeReader{}
	var got []model.SOSSignal
	p := NewPoller(r, time.Second, func(s model.SOSSignal) { got = append(got, s) }, quietLogger())

	p.tick(context.Background())
	if len(got) != 0 {
		t.Fatalf("notified while inactive: %v", got)
	}

	active := model.SOSSignal{Active: true, Timestamp: 1, Patient: "John Doe"}
	r.set(active, nil)
	p.tick(context.Background())
	p.tick(context.Background())
	if len(got) != 2 || got[0] != active {
		t.Fatalf("active flag should be reported every tick, got %v", got)
	}

	r.set(model.SOSSignal{}, errors.New("storage offline"))
	p.tick(context.Background())
	if len(got) != 2 {
		t.Errorf("read error should not notify, got %d", len(got))
	}
}

func TestPollerStartStop(t *testing.T) {
	r := &fakeReader{sig: model.SOSSignal{Active: true, Patient: "John Doe"}}
	var count atomic.Int32
	p := NewPoller(r, 5*time.Millisecond, func(model.SOSSignal) { count.Add(1) }, quietLogger())

	p.Start(context.Background())
	deadline := time.After(2 * time.Second)
	for count.Load() < 2 {
		select {
		case <-deadline:
			p.Stop()
			t.Fatalf("only %d notifications before deadline", count.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	p.Stop()

	after := count.Load()
	time.Sleep(30 * time.Millisecond)
	if count.Load() != after {
		t.Error("poller kept running after Stop")
	}
}

func TestStopWithoutStart(t *testing.T) {
	p := NewPoller(&fakeReader{}, 0, nil, nil)
	if p.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", p.interval, DefaultInterval)
	}
	// Should not block or panic
	p.Stop()
}
