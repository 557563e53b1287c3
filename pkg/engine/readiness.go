package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/logging"
)

// Readiness is a one-shot ready signal. The zero value is not usable; use
// NewReadiness.
type Readiness struct {
	once  sync.Once
	ch    chan struct{}
	ready atomic.Bool
}

func NewReadiness() *Readiness {
	return &Readiness{ch: make(chan struct{})}
}

// MarkReady closes the Ready channel. Later calls are no-ops.
func (r *Readiness) MarkReady() {
	r.once.Do(func() {
		r.ready.Store(true)
		close(r.ch)
	})
}

func (r *Readiness) Ready() <-chan struct{} { return r.ch }

func (r *Readiness) IsReady() bool { return r.ready.Load() }

// WaitReady blocks until p is ready or ctx is done.
func WaitReady(ctx context.Context, p Provider) error {
	select {
	case <-p.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Probe reports whether an engine has become usable.
type Probe func() bool

// Watcher polls a Probe until it succeeds. It is the fallback for engines
// that offer no notification. At most one poll loop runs per Watcher;
// starting another while one is active is a no-op.
type Watcher struct {
	interval time.Duration
	active   atomic.Bool
	polls    atomic.Int64
	log      *zap.Logger
}

func NewWatcher(interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{interval: interval, log: logging.Logger.Named("engine.watch")}
}

// Watch starts polling probe in a goroutine and calls onReady once it
// returns true. The loop ends on success or when ctx is done. It returns
// false if a loop was already active.
func (w *Watcher) Watch(ctx context.Context, probe Probe, onReady func()) bool {
	if !w.active.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer w.active.Store(false)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			w.polls.Add(1)
			if probe() {
				w.log.Debug("engine ready", zap.Int64("polls", w.polls.Load()))
				onReady()
				return
			}
			select {
			case <-ctx.Done():
				w.log.Debug("readiness watch stopped", zap.Error(ctx.Err()))
				return
			case <-ticker.C:
			}
		}
	}()
	return true
}

// Active reports whether a poll loop is running.
func (w *Watcher) Active() bool { return w.active.Load() }

// Polls is the number of probe calls made so far.
func (w *Watcher) Polls() int64 { return w.polls.Load() }
