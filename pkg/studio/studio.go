// Package studio ties one canvas to the command executor, the filter
// pipeline and background removal, and keeps those from mutating the canvas
// at the same time.
package studio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/bgremove"
	"github.com/Fepozopo/promptcanvas/pkg/command"
	"github.com/Fepozopo/promptcanvas/pkg/engine"
	"github.com/Fepozopo/promptcanvas/pkg/filter"
	"github.com/Fepozopo/promptcanvas/pkg/intent"
	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
)

var (
	ErrBusy         = errors.New("another operation is in progress")
	ErrNoImage      = errors.New("no image loaded")
	ErrEmptyCommand = errors.New("empty command")
	ErrClosed       = errors.New("studio is closed")
)

// closePoll is how often Close checks whether the gate was released.
const closePoll = 10 * time.Millisecond

// Gate admits one mutating operation at a time. A second caller is
// rejected, never queued.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire takes the gate and returns its release func, or false if it
// is held.
func (g *Gate) TryAcquire() (release func(), ok bool) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { g.busy.Store(false) }) }, true
}

func (g *Gate) Busy() bool { return g.busy.Load() }

// Options configures a Studio.
type Options struct {
	Width, Height int
	Background    color.Color
}

type Studio struct {
	gate     Gate
	canvas   *raster.Canvas
	exec     *command.Executor
	filters  *filter.Pipeline
	bg       *bgremove.Service
	history  intent.History
	bgColor  color.Color
	width    int
	height   int
	log      *zap.Logger

	mu         sync.Mutex
	closed     bool
	loaded     bool
	sourceName string
	source     image.Image
	lastMask   *bgremove.Result
}

// New creates a studio with a blank canvas. Engine filters run on provider;
// bg may be nil when background removal is not offered.
func New(opts Options, provider engine.Provider, bg *bgremove.Service) (*Studio, error) {
	if opts.Background == nil {
		opts.Background = color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	}
	c, err := raster.NewCanvas(opts.Width, opts.Height, opts.Background)
	if err != nil {
		return nil, err
	}
	return &Studio{
		canvas:  c,
		exec:    command.NewExecutor(),
		filters: filter.NewPipeline(c, provider),
		bg:      bg,
		bgColor: opts.Background,
		width:   opts.Width,
		height:  opts.Height,
		log:     logging.Logger.Named("studio"),
	}, nil
}

func (s *Studio) acquire() (func(), error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	release, ok := s.gate.TryAcquire()
	if !ok {
		return nil, ErrBusy
	}
	if s.isClosed() {
		release()
		return nil, ErrClosed
	}
	return release, nil
}

// Busy reports whether an operation holds the gate.
func (s *Studio) Busy() bool { return s.gate.Busy() }

func (s *Studio) Canvas() *raster.Canvas { return s.canvas }

// Dimensions returns the canvas size, or nil when nothing is loaded.
func (s *Studio) Dimensions() *raster.Dimensions {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil
	}
	d := raster.SizeOf(s.canvas)
	return &d
}

// Load letterboxes img into a fresh canvas of the configured size, keeps
// img itself as the source for background removal and captures the
// baseline.
func (s *Studio) Load(name string, img image.Image) error {
	if img == nil {
		return ErrNoImage
	}
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	s.filters.Invalidate()
	if err := s.canvas.Resize(s.width, s.height); err != nil {
		return err
	}
	framed := raster.Letterbox(img, s.width, s.height, s.bgColor)
	if err := s.canvas.SetPixels(raster.BufferFromImage(framed)); err != nil {
		return err
	}
	if err := s.filters.Capture(); err != nil {
		return err
	}

	s.mu.Lock()
	s.loaded = true
	s.sourceName = name
	s.source = img
	s.lastMask = nil
	s.mu.Unlock()

	b := img.Bounds()
	s.log.Info("image loaded", zap.String("name", name), zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))
	return nil
}

// Run parses text and draws it. Unparseable text yields an error wrapping
// intent.ErrUnrecognized; callers show intent.HelpMessage.
func (s *Studio) Run(ctx context.Context, text string) (intent.Intent, error) {
	if strings.TrimSpace(text) == "" {
		return intent.Intent{}, ErrEmptyCommand
	}
	if !s.isLoaded() {
		return intent.Intent{}, ErrNoImage
	}
	release, err := s.acquire()
	if err != nil {
		return intent.Intent{}, err
	}
	defer release()
	if err := ctx.Err(); err != nil {
		return intent.Intent{}, err
	}

	dims := raster.SizeOf(s.canvas)
	in, err := intent.ParseCommand(text, &dims)
	if err != nil {
		return intent.Intent{}, err
	}
	if err := s.exec.Execute(s.canvas, in); err != nil {
		return in, fmt.Errorf("Command failed: %w", err)
	}
	s.history.Add(text)
	s.log.Info("command executed", zap.String("command", text), zap.String("intent", in.Describe()))
	return in, nil
}

// ApplyFilter runs one filter through the pipeline.
func (s *Studio) ApplyFilter(ctx context.Context, req filter.Request) error {
	if !s.isLoaded() {
		return ErrNoImage
	}
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	return s.filters.Apply(ctx, req)
}

// Reset restores the baseline. It takes the gate, so it fails with ErrBusy
// while another operation is between reading and writing the canvas.
func (s *Studio) Reset() error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	return s.filters.Reset()
}

// RemoveBackground cuts the background out of the loaded source image at
// its native resolution, replaces the canvas with the result and captures it
// as the new baseline. The source itself is kept, so running it again gives
// the same cut-out.
func (s *Studio) RemoveBackground(ctx context.Context) (*bgremove.Result, error) {
	if s.bg == nil {
		return nil, errors.New("background removal is not configured")
	}
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()
	if src == nil {
		return nil, ErrNoImage
	}
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.bg.Remove(ctx, src)
	if err != nil {
		return nil, err
	}
	w, h := res.Image.Rect.Dx(), res.Image.Rect.Dy()
	if err := s.canvas.Resize(w, h); err != nil {
		return nil, err
	}
	if err := s.canvas.SetPixels(raster.BufferFromImage(res.Image)); err != nil {
		return nil, err
	}
	if err := s.filters.Capture(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastMask = res
	s.mu.Unlock()
	s.log.Info("background removed", zap.Int("width", w), zap.Int("height", h), zap.String("engine", s.bg.EngineName()))
	return res, nil
}

// Snapshot returns a copy of the canvas.
func (s *Studio) Snapshot() image.Image { return s.canvas.Image() }

// LastRemoval returns the most recent background-removal result, if any.
func (s *Studio) LastRemoval() *bgremove.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMask
}

// SourceName is the name the current image was loaded under.
func (s *Studio) SourceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceName
}

// History returns the last successfully executed commands, oldest first.
func (s *Studio) History() []string { return s.history.Entries() }

// Close rejects new operations, waits for the running one to release the
// gate and frees the canvas. The gate is never released again.
func (s *Studio) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	for {
		if _, ok := s.gate.TryAcquire(); ok {
			return s.canvas.Close()
		}
		time.Sleep(closePoll)
	}
}

func (s *Studio) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Studio) isLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
