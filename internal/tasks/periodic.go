// Package tasks runs cancellable periodic work.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/logger"
)

// Token identifies one run of a Periodic. A run ends when the task is
// stopped or restarted; work that resumes after a blocking call must check
// Alive before touching shared state.
type Token struct {
	p   *Periodic
	gen uint64
}

// Alive reports whether the run that issued the token is still current
func (t Token) Alive() bool {
	if t.p == nil {
		return false
	}
	return t.p.generation.Load() == t.gen
}

// Generation returns the run number
func (t Token) Generation() uint64 {
	return t.gen
}

// Func is the work done on each tick
type Func func(ctx context.Context, tok Token)

// run is the state of one Start..Stop cycle
type run struct {
	gen      uint64
	cancel   context.CancelFunc
	inFlight atomic.Bool
}

// Periodic calls a Func immediately on Start and then on every interval
// until Stop. Ticks that arrive while the previous call is still running
// are skipped, not queued.
type Periodic struct {
	name     string
	interval time.Duration
	fn       Func
	log      logger.Logger

	mu         sync.Mutex
	current    *run
	generation atomic.Uint64
	skipped    atomic.Int64
}

// NewPeriodic creates a stopped periodic task
func NewPeriodic(name string, interval time.Duration, log logger.Logger, fn Func) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		fn:       fn,
		log:      log,
	}
}

// Name returns the task name
func (p *Periodic) Name() string {
	return p.name
}

// Start begins a new run. Calling Start on a running task is a no-op.
func (p *Periodic) Start(parent context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	r := &run{
		gen:    p.generation.Add(1),
		cancel: cancel,
	}
	p.current = r
	p.log.Debug("Task started", "task", p.name, "generation", r.gen, "interval", p.interval)
	go p.loop(ctx, r)
}

// Stop ends the current run without waiting for an in-flight call.
// The run's token stops being Alive before Stop returns.
func (p *Periodic) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return
	}
	p.generation.Add(1)
	p.current.cancel()
	p.log.Debug("Task stopped", "task", p.name, "generation", p.current.gen)
	p.current = nil
}

// Running reports whether the task has an active run
func (p *Periodic) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Skipped returns how many ticks were dropped because a call was in flight
func (p *Periodic) Skipped() int64 {
	return p.skipped.Load()
}

func (p *Periodic) loop(ctx context.Context, r *run) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	tok := Token{p: p, gen: r.gen}
	p.tick(ctx, r, tok)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !tok.Alive() {
				return
			}
			p.tick(ctx, r, tok)
		}
	}
}

// tick starts fn in its own goroutine unless the previous call is still running
func (p *Periodic) tick(ctx context.Context, r *run, tok Token) {
	if !r.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.log.Debug("Tick skipped, previous call in flight", "task", p.name)
		return
	}
	go func() {
		defer r.inFlight.Store(false)
		defer func() {
			if rec := recover(); rec != nil {
				p.log.Error("Task panicked", "task", p.name, "panic", fmt.Sprint(rec))
			}
		}()
		p.fn(ctx, tok)
	}()
}
