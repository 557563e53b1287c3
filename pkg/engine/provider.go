// Package engine defines the contract for the external image-processing
// engine behind the gaussian, sobel and sharpen filters, and the providers
// that implement it.
//
// A provider may need time to come up (a native library, a worker). Callers
// learn about it through Ready, a channel closed once; IsReady is the
// non-blocking check the filter pipeline uses before every engine call.
// Providers that can only be probed are driven by a Watcher instead.
package engine

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"
)

var (
	ErrUnknownProvider = errors.New("unknown engine provider")
	ErrNotReady        = errors.New("engine not ready")
)

// DefaultPollInterval is the readiness probe period for probe-only providers.
const DefaultPollInterval = 100 * time.Millisecond

// Provider runs the engine-backed filters. Inputs are never modified; each
// call returns a new image of the same size.
type Provider interface {
	Name() string
	Ready() <-chan struct{}
	IsReady() bool

	GaussianBlur(src *image.NRGBA, ksize int, sigma float64) (*image.NRGBA, error)
	// SobelEdges returns the gradient magnitude of the grayscale image as
	// opaque gray RGBA.
	SobelEdges(src *image.NRGBA, scale float64) (*image.NRGBA, error)
	// Convolve applies a row-major 3x3 kernel to RGB; alpha is preserved.
	Convolve(src *image.NRGBA, kernel [9]float64) (*image.NRGBA, error)
}

// Factory builds a provider. pollInterval is only used by providers that
// need a readiness Watcher.
type Factory func(pollInterval time.Duration) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a provider available to New. Providers compiled behind
// build tags register themselves from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Available lists registered provider names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the named provider; an empty name selects "native".
func New(name string, pollInterval time.Duration) (Provider, error) {
	if name == "" {
		name = NativeName
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProvider, name, Available())
	}
	return f(pollInterval)
}
