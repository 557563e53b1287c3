package studio

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/promptcanvas/pkg/bgremove"
	"github.com/Fepozopo/promptcanvas/pkg/engine"
	"github.com/Fepozopo/promptcanvas/pkg/filter"
	"github.com/Fepozopo/promptcanvas/pkg/intent"
)

// slowEngine keeps every pixel and blocks inference until released.
type slowEngine struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (e *slowEngine) Name() string { return "slow" }

func (e *slowEngine) Init(ctx context.Context) error { return nil }

func (e *slowEngine) Infer(ctx context.Context, img *image.NRGBA) (*image.Alpha, error) {
	e.once.Do(func() { close(e.started) })
	<-e.release
	m := image.NewAlpha(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	for i := range m.Pix {
		m.Pix[i] = 255
	}
	return m, nil
}

func photo(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func newStudio(t *testing.T, bg *bgremove.Service) *Studio {
	t.Helper()
	s, err := New(Options{Width: 80, Height: 60}, engine.NewNative(), bg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGateRejectsSecondHolder(t *testing.T) {
	var g Gate
	release, ok := g.TryAcquire()
	require.True(t, ok)
	_, ok = g.TryAcquire()
	assert.False(t, ok)
	release()
	release()
	assert.False(t, g.Busy())
	_, ok = g.TryAcquire()
	assert.True(t, ok)
}

func TestOperationsNeedAnImage(t *testing.T) {
	s := newStudio(t, bgremove.NewService(bgremove.NewKeyingEngine(10, 0, 0)))
	assert.Nil(t, s.Dimensions())
	_, err := s.Run(context.Background(), "draw red circle")
	assert.ErrorIs(t, err, ErrNoImage)
	assert.ErrorIs(t, s.ApplyFilter(context.Background(), filter.Request{Kind: "sepia", Intensity: 5}), ErrNoImage)
	_, err = s.RemoveBackground(context.Background())
	assert.ErrorIs(t, err, ErrNoImage)
	assert.NoError(t, s.Reset())
}

func TestLoadLetterboxesAndCapturesBaseline(t *testing.T) {
	s := newStudio(t, nil)
	require.NoError(t, s.Load("wide.png", photo(160, 60)))
	assert.Equal(t, 80, s.Dimensions().Width)
	assert.Equal(t, "wide.png", s.SourceName())

	snap := s.Snapshot().(*image.NRGBA)
	// 160x60 fits as 80x30 with bands above and below
	assert.Equal(t, color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}, snap.NRGBAAt(40, 2))
	assert.Equal(t, uint8(128), snap.NRGBAAt(40, 30).B)

	_, err := s.Run(context.Background(), "draw red circle 10px")
	require.NoError(t, err)
	require.NoError(t, s.Reset())
	assert.Equal(t, snap.Pix, s.Snapshot().(*image.NRGBA).Pix)
}

func TestRunRecordsHistory(t *testing.T) {
	s := newStudio(t, nil)
	require.NoError(t, s.Load("p.png", photo(80, 60)))
	ctx := context.Background()

	in, err := s.Run(ctx, "draw blue rectangle 20px")
	require.NoError(t, err)
	assert.Equal(t, intent.KindDrawRectangle, in.Kind)
	assert.Equal(t, -10.0, in.Rectangle.X, "offset from the 80x60 canvas center")
	assert.Equal(t, -20.0, in.Rectangle.Y)

	_, err = s.Run(ctx, "do a backflip")
	assert.ErrorIs(t, err, intent.ErrUnrecognized)
	_, err = s.Run(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)

	for i := 0; i < 5; i++ {
		_, err = s.Run(ctx, "brighten 1%")
		require.NoError(t, err)
	}
	h := s.History()
	assert.Len(t, h, 5)
	assert.Equal(t, "brighten 1%", h[4])
	assert.NotContains(t, h, "do a backflip")
}

func TestBusyRejection(t *testing.T) {
	eng := &slowEngine{started: make(chan struct{}), release: make(chan struct{})}
	s := newStudio(t, bgremove.NewService(eng))
	require.NoError(t, s.Load("p.png", photo(40, 30)))
	before := s.Snapshot().(*image.NRGBA).Pix

	done := make(chan error, 1)
	go func() {
		_, err := s.RemoveBackground(context.Background())
		done <- err
	}()
	select {
	case <-eng.started:
	case <-time.After(2 * time.Second):
		t.Fatal("background removal did not start")
	}
	assert.True(t, s.Busy())

	ctx := context.Background()
	assert.ErrorIs(t, s.ApplyFilter(ctx, filter.Request{Kind: "invert", Intensity: 5}), ErrBusy)
	_, err := s.Run(ctx, "draw red circle")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.Load("q.png", photo(4, 4)), ErrBusy)
	_, err = s.RemoveBackground(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, before, s.Snapshot().(*image.NRGBA).Pix)

	close(eng.release)
	require.NoError(t, <-done)
	assert.False(t, s.Busy())

	// the canvas now holds the native-size cut-out
	assert.Equal(t, 40, s.Canvas().Width())
	assert.Equal(t, 30, s.Canvas().Height())
	assert.NotNil(t, s.LastRemoval())
	require.NoError(t, s.ApplyFilter(ctx, filter.Request{Kind: "invert", Intensity: 5}))
	require.NoError(t, s.Reset())
	assert.Equal(t, s.LastRemoval().Image.Pix, s.Snapshot().(*image.NRGBA).Pix)
}

func TestGateReleasedAfterFailure(t *testing.T) {
	s := newStudio(t, nil)
	require.NoError(t, s.Load("p.png", photo(8, 8)))
	err := s.ApplyFilter(context.Background(), filter.Request{Kind: "nope", Intensity: 5})
	assert.True(t, errors.Is(err, filter.ErrUnknownFilter))
	assert.False(t, s.Busy())
	_, err = s.RemoveBackground(context.Background())
	assert.Error(t, err)
	assert.False(t, s.Busy())
}

// subject is a flat light field with a dark square, which keying cuts out
// with feathered edges.
func subject(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 240, G: 240, B: 235, A: 255}
			if x >= w/4 && x < 3*w/4 && y >= h/4 && y < 3*h/4 {
				c = color.NRGBA{R: 90, G: 30, B: 20, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestResetAfterFeatheredRemoval(t *testing.T) {
	s := newStudio(t, bgremove.NewService(bgremove.NewKeyingEngine(12, 1, 1024)))
	require.NoError(t, s.Load("cat.png", subject(48, 36)))
	ctx := context.Background()

	res, err := s.RemoveBackground(ctx)
	require.NoError(t, err)
	partial := 0
	for i := 3; i < len(res.Image.Pix); i += 4 {
		if a := res.Image.Pix[i]; a > 0 && a < 255 {
			partial++
		}
	}
	require.NotZero(t, partial, "feathering leaves translucent edges")

	cut := s.Canvas().Pixels()
	require.NoError(t, s.ApplyFilter(ctx, filter.Request{Kind: "sepia", Intensity: 5}))
	require.NoError(t, s.ApplyFilter(ctx, filter.Request{Kind: "gaussian", Intensity: 2}))
	require.NoError(t, s.Reset())
	assert.True(t, cut.Equal(s.Canvas().Pixels()))
}

func TestLoadReplacesBaseline(t *testing.T) {
	s := newStudio(t, nil)
	require.NoError(t, s.Load("a.png", photo(80, 60)))
	require.NoError(t, s.Load("b.png", subject(80, 60)))
	second := s.Canvas().Pixels()

	_, err := s.Run(context.Background(), "draw green circle 15px")
	require.NoError(t, err)
	require.NoError(t, s.Reset())
	assert.True(t, second.Equal(s.Canvas().Pixels()))
}

func TestResetWaitsForGate(t *testing.T) {
	eng := &slowEngine{started: make(chan struct{}), release: make(chan struct{})}
	s := newStudio(t, bgremove.NewService(eng))
	require.NoError(t, s.Load("p.png", photo(40, 30)))

	done := make(chan error, 1)
	go func() {
		_, err := s.RemoveBackground(context.Background())
		done <- err
	}()
	<-eng.started
	assert.ErrorIs(t, s.Reset(), ErrBusy)
	close(eng.release)
	require.NoError(t, <-done)
	assert.NoError(t, s.Reset())
}

func TestCloseWaitsForRunningOperation(t *testing.T) {
	eng := &slowEngine{started: make(chan struct{}), release: make(chan struct{})}
	s, err := New(Options{Width: 40, Height: 30}, engine.NewNative(), bgremove.NewService(eng))
	require.NoError(t, err)
	require.NoError(t, s.Load("p.png", photo(40, 30)))

	done := make(chan error, 1)
	go func() {
		_, err := s.RemoveBackground(context.Background())
		done <- err
	}()
	<-eng.started

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()
	select {
	case <-closed:
		t.Fatal("Close returned while background removal was running")
	case <-time.After(50 * time.Millisecond):
	}
	assert.ErrorIs(t, s.ApplyFilter(context.Background(), filter.Request{Kind: "invert", Intensity: 5}), ErrClosed)

	close(eng.release)
	require.NoError(t, <-done)
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the gate was released")
	}
	assert.ErrorIs(t, s.Reset(), ErrClosed)
	assert.NoError(t, s.Close())
}
