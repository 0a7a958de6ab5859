package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Prober runs fn every interval on its own goroutine until stopped.
// Stop and Restart never wait for a running fn, so fn may stop its own prober.
type Prober struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewProber creates a stopped prober.
func NewProber(name string, interval time.Duration, fn func(ctx context.Context), logger *zap.Logger) *Prober {
	return &Prober{name: name, interval: interval, fn: fn, logger: logger}
}

// Start launches the prober unless it is already running. The first run happens one interval later.
func (p *Prober) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.startLocked()
}

// Restart stops any running loop and starts a fresh one.
func (p *Prober) Restart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	p.startLocked()
}

// Stop cancels the loop and the context of a run in progress.
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Running reports whether the loop is active.
func (p *Prober) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Prober) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.loop(ctx)
}

func (p *Prober) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Debug("Prober started", zap.String("prober", p.name), zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Prober stopped", zap.String("prober", p.name))
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.fn(ctx)
		}
	}
}
