package workflow

import (
	"context"
	"sync"
	"time"

	"atelier-backend/internal/logger"
)

// TickFunc runs once per poll interval. Returning done stops the poller;
// returning an error skips to the next tick (transient failures are the
// next tick's problem, not the caller's).
type TickFunc func(ctx context.Context) (done bool, err error)

// Poller is a cancellable interval poller. It exists so every polling loop
// in the workflow shares one teardown contract instead of ad hoc timers.
type Poller struct {
	interval time.Duration
	tick     TickFunc
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(interval time.Duration, tick TickFunc, log *logger.Logger) *Poller {
	return &Poller{
		interval: interval,
		tick:     tick,
		log:      log,
	}
}

// Start launches the polling loop. Starting an active poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx)
}

func (p *Poller) run(ctx context.Context) {
	defer func() {
		p.mu.Lock()
		if p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}
		close(p.done)
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			done, err := p.tick(ctx)
			if err != nil {
				p.log.Debug("poll tick failed, retrying next tick", "error", err)
				continue
			}
			if done {
				return
			}
		}
	}
}

// Stop cancels the loop and waits for the in-flight tick to finish.
// Stopping an inactive poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsActive reports whether the polling loop is running.
func (p *Poller) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Wait blocks until the loop has exited. Returns immediately if the
// poller never started.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
