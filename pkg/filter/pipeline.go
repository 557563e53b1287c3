// Package filter applies the named canvas filters.
//
// The two families differ. Engine filters (gaussian, sobel, sharpen) read
// the live canvas, so they compound with whatever was drawn or filtered
// before. Pointwise filters (sepia, grayscale, brightness, contrast, invert)
// first restore the baseline captured at load time and then transform it, so
// applying one after another does not stack. Reset writes the baseline back.
package filter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/engine"
	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

var (
	ErrEngineUnavailable = errors.New("image processing engine is not ready")
	ErrUnknownFilter     = stdimg.ErrUnknownFilter
	ErrInvalidIntensity  = errors.New("intensity out of range")
	ErrNoBaseline        = errors.New("no baseline image captured")
)

// Request names a filter and its 1..10 intensity.
type Request struct {
	Kind      string `json:"kind"`
	Intensity int    `json:"intensity"`
}

func (r Request) String() string { return fmt.Sprintf("%s@%d", r.Kind, r.Intensity) }

// Pipeline owns the baseline snapshot of one surface.
type Pipeline struct {
	mu       sync.Mutex
	surface  raster.Surface
	provider engine.Provider
	baseline *raster.Buffer
	frame    *raster.Frame
	log      *zap.Logger
}

func NewPipeline(s raster.Surface, p engine.Provider) *Pipeline {
	return &Pipeline{surface: s, provider: p, log: logging.Logger.Named("filter")}
}

// Capture copies the current surface into the baseline, replacing any
// previous one. Surfaces that implement raster.Framer also keep their native
// frame, which Reset restores exactly.
func (p *Pipeline) Capture() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface == nil {
		return errors.New("no surface")
	}
	p.baseline = p.surface.Pixels()
	p.frame = nil
	if f, ok := p.surface.(raster.Framer); ok {
		p.frame = f.Frame()
	}
	return nil
}

func (p *Pipeline) HasBaseline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baseline != nil
}

// Invalidate drops the baseline.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseline = nil
	p.frame = nil
}

// Baseline returns a copy of the baseline, or nil.
func (p *Pipeline) Baseline() *raster.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baseline.Clone()
}

// Reset writes the baseline back to the surface. Without a baseline it
// does nothing.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.baseline == nil {
		return nil
	}
	if p.frame != nil {
		return p.surface.(raster.Framer).RestoreFrame(p.frame)
	}
	return p.surface.SetPixels(p.baseline.Clone())
}

// Apply runs one filter. Every failure leaves the surface untouched.
func (p *Pipeline) Apply(ctx context.Context, req Request) error {
	spec, ok := stdimg.LookupFilter(req.Kind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, req.Kind)
	}
	if req.Intensity < stdimg.MinIntensity || req.Intensity > stdimg.MaxIntensity {
		return fmt.Errorf("%w: %d not in %d..%d", ErrInvalidIntensity, req.Intensity, stdimg.MinIntensity, stdimg.MaxIntensity)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface == nil || p.baseline == nil {
		return ErrNoBaseline
	}

	var err error
	if spec.Family == stdimg.FamilyEngine {
		err = p.applyEngine(req)
	} else {
		err = p.applyPointwise(req)
	}
	if err != nil {
		return err
	}
	p.log.Debug("filter applied", zap.String("filter", req.Kind), zap.Int("intensity", req.Intensity))
	return nil
}

// applyEngine reads the live surface. Callers hold p.mu.
func (p *Pipeline) applyEngine(req Request) error {
	if p.provider == nil || !p.provider.IsReady() {
		return ErrEngineUnavailable
	}
	live := p.surface.Pixels()
	src := live.NRGBA()
	i := req.Intensity

	var (
		res *image.NRGBA
		err error
	)
	switch req.Kind {
	case "gaussian":
		ksize, sigma := stdimg.GaussianParams(i)
		res, err = p.provider.GaussianBlur(src, ksize, sigma)
	case "sobel":
		res, err = p.provider.SobelEdges(src, stdimg.SobelScale(i))
	case "sharpen":
		res, err = p.provider.Convolve(src, stdimg.SharpenKernel(i))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFilter, req.Kind)
	}
	if errors.Is(err, engine.ErrNotReady) {
		return ErrEngineUnavailable
	}
	if err != nil {
		return fmt.Errorf("%s: %w", req.Kind, err)
	}
	if res == nil {
		return fmt.Errorf("%s: engine returned no image", req.Kind)
	}
	return p.surface.SetPixels(raster.BufferFromImage(res))
}

// applyPointwise transforms a copy of the baseline. Callers hold p.mu.
func (p *Pipeline) applyPointwise(req Request) error {
	f, err := stdimg.PointFilter(req.Kind, req.Intensity)
	if err != nil {
		return err
	}
	buf := p.baseline.Clone()
	stdimg.ApplyPoint(buf.NRGBA(), f)
	return p.surface.SetPixels(buf)
}
