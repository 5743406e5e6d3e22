// Package poller runs a function on a fixed interval until stopped.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Func is one polling run. Errors are logged and polling continues.
type Func func(ctx context.Context) error

// Poller calls Fn immediately on Start and then once per Interval. Runs
// never overlap. Stop cancels the loop and returns only after it exited.
type Poller struct {
	Name     string
	Interval time.Duration
	Fn       Func
	// OnRun is called after every run with its error, if set.
	OnRun func(err error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func New(name string, interval time.Duration, fn Func) *Poller {
	return &Poller{Name: name, Interval: interval, Fn: fn}
}

// Start launches the loop bound to ctx. Calling Start on a running or
// stopped poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil || p.stopped {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.run(ctx)
	if p.Interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *Poller) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := p.Fn(ctx)
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("poller", p.Name).Msg("Polling run failed")
	}
	if p.OnRun != nil {
		p.OnRun(err)
	}
}

// Stop cancels the loop and waits for it to exit. It is safe to call more
// than once and before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
