package command

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/promptcanvas/pkg/intent"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
)

// recorder is a Surface that logs primitive calls instead of drawing.
type recorder struct {
	buf   *raster.Buffer
	calls []string
	args  []string
	fail  string
}

func newRecorder(w, h int) *recorder {
	return &recorder{buf: raster.NewBuffer(w, h)}
}

func (r *recorder) record(name string, args ...any) error {
	r.calls = append(r.calls, name)
	r.args = append(r.args, fmt.Sprintln(args...))
	if r.fail == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (r *recorder) Width() int { return r.buf.Width }
func (r *recorder) Height() int { return r.buf.Height }
func (r *recorder) Pixels() *raster.Buffer { return r.buf.Clone() }
func (r *recorder) SetPixels(b *raster.Buffer) error {
	if err := r.record("SetPixels"); err != nil {
		return err
	}
	r.buf = b.Clone()
	return nil
}
func (r *recorder) FillCircle(x, y, radius float64, c color.Color) error {
	return r.record("FillCircle", x, y, radius, c)
}
func (r *recorder) StrokeCircle(x, y, radius, lw float64, c color.Color) error {
	return r.record("StrokeCircle", x, y, radius, lw, c)
}
func (r *recorder) FillRect(x, y, w, h float64, c color.Color) error {
	return r.record("FillRect", x, y, w, h, c)
}
func (r *recorder) StrokeRect(x, y, w, h, lw float64, c color.Color) error {
	return r.record("StrokeRect", x, y, w, h, lw, c)
}
func (r *recorder) FillText(s string, x, y, size float64, c color.Color) error {
	return r.record("FillText", s, x, y, size, c)
}
func (r *recorder) StrokeText(s string, x, y, size, lw float64, c color.Color) error {
	return r.record("StrokeText", s, x, y, size, lw, c)
}
func (r *recorder) DrawImage(img image.Image, x, y int) error { return r.record("DrawImage") }
func (r *recorder) Resize(w, h int) error {
	r.buf = raster.NewBuffer(w, h)
	return nil
}
func (r *recorder) Image() image.Image { return r.buf.NRGBA() }

func mustParse(t *testing.T, s string) intent.Intent {
	t.Helper()
	in, ok := intent.Parse(s, &raster.Dimensions{Width: 800, Height: 600})
	require.True(t, ok, s)
	return in
}

func TestCircleFillsThenStrokes(t *testing.T) {
	r := newRecorder(4, 4)
	require.NoError(t, NewExecutor().Execute(r, mustParse(t, "draw red circle 80px")))
	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"FillCircle", "StrokeCircle"}, r.calls)
	assert.Equal(t, fmt.Sprintln(400.0, 300.0, 80.0, color.NRGBA{R: 255, A: 255}), r.args[0])
	assert.Equal(t, fmt.Sprintln(400.0, 300.0, 80.0, 2.0, shapeStroke), r.args[1])
}

func TestRectangleFillsThenStrokes(t *testing.T) {
	r := newRecorder(4, 4)
	require.NoError(t, NewExecutor().Execute(r, mustParse(t, "square")))
	assert.Equal(t, []string{"FillRect", "StrokeRect"}, r.calls)
	assert.Equal(t, fmt.Sprintln(350.0, 250.0, 100.0, 100.0, color.NRGBA{G: 0x80, A: 255}), r.args[0])
}

func TestTextStrokesThenFills(t *testing.T) {
	r := newRecorder(4, 4)
	require.NoError(t, NewExecutor().Execute(r, mustParse(t, `add text "Hi"`)))
	assert.Equal(t, []string{"StrokeText", "FillText"}, r.calls)
	assert.Equal(t, fmt.Sprintln("Hi", 400.0, 300.0, 24.0, 1.0, textStroke), r.args[0])
}

func TestBrightnessSaturates(t *testing.T) {
	r := newRecorder(2, 1)
	copy(r.buf.Pix, []uint8{250, 100, 0, 255, 10, 20, 30, 77})
	require.NoError(t, NewExecutor().Execute(r, mustParse(t, "brighten 50%")))
	// 50% is 127.49999999999999 in float64, so 0 lands on 127
	assert.Equal(t, []uint8{255, 228, 127, 255, 138, 148, 158, 77}, r.buf.Pix)

	require.NoError(t, NewExecutor().Execute(r, mustParse(t, "darken 100%")))
	assert.Equal(t, []uint8{0, 0, 0, 255, 0, 0, 0, 77}, r.buf.Pix)
}

func TestFailedPrimitiveIsWrapped(t *testing.T) {
	r := newRecorder(4, 4)
	r.fail = "StrokeCircle"
	err := NewExecutor().Execute(r, mustParse(t, "circle"))
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, intent.KindDrawCircle, execErr.Action)
	assert.Equal(t, "Failed to execute draw_circle: StrokeCircle failed", err.Error())
	// the fill already happened
	assert.Equal(t, []string{"FillCircle", "StrokeCircle"}, r.calls)
}

func TestInvalidIntent(t *testing.T) {
	r := newRecorder(4, 4)
	err := NewExecutor().Execute(r, intent.Intent{Kind: intent.KindDrawCircle})
	assert.ErrorIs(t, err, ErrUnknownIntent)
	err = NewExecutor().Execute(r, intent.Intent{Kind: "spin", Circle: &intent.Circle{}})
	assert.ErrorIs(t, err, ErrUnknownIntent)
	assert.Empty(t, r.calls)
}

func TestNilSurface(t *testing.T) {
	err := NewExecutor().Execute(nil, mustParse(t, "circle"))
	var execErr *ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestExecuteOnCanvas(t *testing.T) {
	bg := color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 255}
	c, err := raster.NewCanvas(200, 100, bg)
	require.NoError(t, err)
	defer c.Close()
	dims := raster.SizeOf(c)
	ex := NewExecutor()

	in, ok := intent.Parse("draw yellow circle 20px", &dims)
	require.True(t, ok)
	require.NoError(t, ex.Execute(c, in))
	px := c.Pixels().NRGBA().NRGBAAt(100, 50)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, A: 255}, px)
	assert.Equal(t, bg, c.Pixels().NRGBA().NRGBAAt(5, 5))

	in, ok = intent.Parse("brighten 100%", &dims)
	require.True(t, ok)
	require.NoError(t, ex.Execute(c, in))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, c.Pixels().NRGBA().NRGBAAt(5, 5))
}
