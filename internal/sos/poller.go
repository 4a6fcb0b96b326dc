// Package sos watches the patient's emergency flag from the care-team side.
package sos

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/syncare/internal/model"
)

// DefaultInterval matches the dashboard refresh rate.
const DefaultInterval = 2 * time.Second

// Reader returns the current flag.
type Reader interface {
	Get(ctx context.Context) (model.SOSSignal, error)
}

// Poller reads the flag on a fixed interval and calls notify on every tick
// that finds it active. An uncleared flag is reported again each tick.
type Poller struct {
	mu       sync.RWMutex
	reader   Reader
	notify   func(model.SOSSignal)
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPoller(r Reader, interval time.Duration, notify func(model.SOSSignal), logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		reader:   r,
		notify:   notify,
		interval: interval,
		logger:   logger,
	}
}

// Start begins polling until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.RLock()
	cancel := p.cancel
	done := p.done
	p.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Poller) tick(ctx context.Context) {
	sig, err := p.reader.Get(ctx)
	if err != nil {
		p.logger.Error("read sos signal", "error", err)
		return
	}
	if !sig.Active {
		return
	}
	p.logger.Warn("sos signal active", "patient", sig.Patient, "since", time.UnixMilli(sig.Timestamp).UTC())
	if p.notify != nil {
		p.notify(sig)
	}
}
