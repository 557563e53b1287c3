package engine

import (
	"context"
	"image"
)

// Deferred wraps a provider whose backing engine can only be probed. Until
// the probe succeeds IsReady is false and every filter call fails with
// ErrNotReady; callers never block on it.
type Deferred struct {
	*Readiness
	inner   Provider
	watcher *Watcher
	cancel  context.CancelFunc
}

// NewDeferred starts w polling probe and marks the provider ready on the
// first success.
func NewDeferred(inner Provider, probe Probe, w *Watcher) *Deferred {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Deferred{Readiness: NewReadiness(), inner: inner, watcher: w, cancel: cancel}
	w.Watch(ctx, probe, d.MarkReady)
	return d
}

func (d *Deferred) Name() string { return d.inner.Name() }

// Close stops the poll loop if it is still running.
func (d *Deferred) Close() error {
	d.cancel()
	return nil
}

func (d *Deferred) GaussianBlur(src *image.NRGBA, ksize int, sigma float64) (*image.NRGBA, error) {
	if !d.IsReady() {
		return nil, ErrNotReady
	}
	return d.inner.GaussianBlur(src, ksize, sigma)
}

func (d *Deferred) SobelEdges(src *image.NRGBA, scale float64) (*image.NRGBA, error) {
	if !d.IsReady() {
		return nil, ErrNotReady
	}
	return d.inner.SobelEdges(src, scale)
}

func (d *Deferred) Convolve(src *image.NRGBA, kernel [9]float64) (*image.NRGBA, error) {
	if !d.IsReady() {
		return nil, ErrNotReady
	}
	return d.inner.Convolve(src, kernel)
}
