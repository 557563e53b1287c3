// Package bgremove cuts the background out of an image with a segmentation
// engine. The engine is expensive to bring up, so a Service owns exactly one
// and initializes it once for all callers.
package bgremove

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

// ErrEngineInit is wrapped by every initialization failure.
var ErrEngineInit = errors.New("background removal engine failed to initialize")

// Pipeline stages reported by StageError.
const (
	StageInitialize = "initialize"
	StageInfer      = "infer"
	StageComposite  = "composite"
	StageEncode     = "encode"
)

// StageError tells which step of a removal failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("background removal failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Engine produces a foreground mask: 255 keeps a pixel, 0 removes it. The
// mask must have the same size as img.
type Engine interface {
	Name() string
	Init(ctx context.Context) error
	Infer(ctx context.Context, img *image.NRGBA) (*image.Alpha, error)
}

// MaskCache stores encoded masks by source digest. Get returns nil, nil on
// a miss.
type MaskCache interface {
	GetMask(ctx context.Context, key string) ([]byte, error)
	SetMask(ctx context.Context, key string, maskPNG []byte) error
}

// State is the engine lifecycle.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Result is a background-removed image plus its mask.
type Result struct {
	Key     string
	Image   *image.NRGBA
	PNG     []byte
	Mask    *image.Gray
	MaskPNG []byte
}

// initAttempt is the shared future of one initialization.
type initAttempt struct {
	done chan struct{}
	err  error
}

type Service struct {
	engine Engine
	cache  MaskCache
	log    *zap.Logger

	mu        sync.Mutex
	state     State
	attempt   *initAttempt
	ready     chan struct{}
	readyOnce sync.Once

	group singleflight.Group
}

type Option func(*Service)

// WithCache stores and reuses masks across removals.
func WithCache(c MaskCache) Option {
	return func(s *Service) { s.cache = c }
}

func NewService(e Engine, opts ...Option) *Service {
	s := &Service{
		engine: e,
		ready:  make(chan struct{}),
		log:    logging.Logger.Named("bgremove"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) EngineName() string { return s.engine.Name() }

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready is closed once the engine has initialized successfully.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// Initialize brings the engine up. The first caller starts it; callers that
// arrive while it runs wait for the same attempt and get the same error.
// After a failure the next call starts a new attempt. Cancelling ctx stops
// the wait, not the initialization.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateInitializing:
		a := s.attempt
		s.mu.Unlock()
		return wait(ctx, a)
	}
	a := &initAttempt{done: make(chan struct{})}
	s.attempt = a
	s.state = StateInitializing
	s.mu.Unlock()

	go s.run(context.WithoutCancel(ctx), a)
	return wait(ctx, a)
}

func (s *Service) run(ctx context.Context, a *initAttempt) {
	start := time.Now()
	err := s.engine.Init(ctx)

	s.mu.Lock()
	if err != nil {
		a.err = fmt.Errorf("%w: %v", ErrEngineInit, err)
		s.state = StateFailed
	} else {
		s.state = StateReady
		s.readyOnce.Do(func() { close(s.ready) })
	}
	close(a.done)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("engine init failed", zap.String("engine", s.engine.Name()), zap.Error(err))
		return
	}
	s.log.Info("engine ready", zap.String("engine", s.engine.Name()), zap.Duration("took", time.Since(start)))
}

func wait(ctx context.Context, a *initAttempt) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remove segments img at its native resolution and returns the cut-out
// with a transparent background.
func (s *Service) Remove(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, &StageError{Stage: StageInfer, Err: errors.New("no image loaded")}
	}
	if err := s.Initialize(ctx); err != nil {
		return nil, &StageError{Stage: StageInitialize, Err: err}
	}

	src := stdimg.ToNRGBA(img)
	key := Digest(src)
	mask, err := s.mask(ctx, key, src)
	if err != nil {
		return nil, &StageError{Stage: StageInfer, Err: err}
	}

	if mask.Rect.Dx() != src.Rect.Dx() || mask.Rect.Dy() != src.Rect.Dy() {
		return nil, &StageError{Stage: StageComposite, Err: fmt.Errorf("mask is %v, image is %v", mask.Rect.Size(), src.Rect.Size())}
	}
	res := &Result{
		Key:   key,
		Image: stdimg.ApplyAlphaMask(src, mask),
		Mask:  stdimg.MaskToGray(mask),
	}

	if res.PNG, err = encodePNG(res.Image); err != nil {
		return nil, &StageError{Stage: StageEncode, Err: err}
	}
	if res.MaskPNG, err = encodePNG(res.Mask); err != nil {
		return nil, &StageError{Stage: StageEncode, Err: err}
	}
	s.log.Debug("background removed", zap.String("key", key), zap.Int("width", src.Rect.Dx()), zap.Int("height", src.Rect.Dy()))
	return res, nil
}

// mask returns the foreground mask for src, sharing one inference between
// concurrent calls for the same pixels and consulting the cache first.
func (s *Service) mask(ctx context.Context, key string, src *image.NRGBA) (*image.Alpha, error) {
	v, err, shared := s.group.Do(key, func() (any, error) {
		if m := s.cached(ctx, key, src.Rect.Size()); m != nil {
			return m, nil
		}
		m, err := s.engine.Infer(ctx, src)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, errors.New("engine returned no mask")
		}
		s.store(ctx, key, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("shared inference", zap.String("key", key))
	}
	return v.(*image.Alpha), nil
}

func (s *Service) cached(ctx context.Context, key string, size image.Point) *image.Alpha {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.GetMask(ctx, key)
	if err != nil {
		s.log.Warn("mask cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}
	m, err := decodeMask(data)
	if err != nil || m.Rect.Size() != size {
		s.log.Warn("ignoring unusable cached mask", zap.String("key", key), zap.Error(err))
		return nil
	}
	return m
}

func (s *Service) store(ctx context.Context, key string, m *image.Alpha) {
	if s.cache == nil {
		return
	}
	data, err := encodePNG(stdimg.MaskToGray(m))
	if err == nil {
		err = s.cache.SetMask(ctx, key, data)
	}
	if err != nil {
		s.log.Warn("mask cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Digest identifies an image by the MD5 of its size and pixels.
func Digest(img *image.NRGBA) string {
	h := md5.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(img.Rect.Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(img.Rect.Dy()))
	h.Write(dims[:])
	w := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		i := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		h.Write(img.Pix[i : i+w])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// OutputNames returns the download names for a source file name.
func OutputNames(source string) (cutout, mask string) {
	return raster.OutputName(source, "bg-removed"), raster.OutputName(source, "mask")
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeMask(data []byte) (*image.Alpha, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Pix[y*out.Stride+x] = uint8(r >> 8)
		}
	}
	return out, nil
}
