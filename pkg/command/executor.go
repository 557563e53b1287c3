// Package command executes parsed intents against a raster surface.
package command

import (
	"errors"
	"fmt"
	"image/color"

	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/intent"
	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

const (
	// ShapeStrokeWidth is the white outline drawn around every shape.
	ShapeStrokeWidth = 2
	// TextStrokeWidth is the black outline drawn under every text.
	TextStrokeWidth = 1
	// BrightnessScale maps a percentage delta onto 0..255 channel units.
	BrightnessScale = 2.55
)

var (
	shapeStroke = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	textStroke  = color.NRGBA{A: 0xff}
)

// ErrUnknownIntent is wrapped when an intent names no known action or its
// payload does not match its kind.
var ErrUnknownIntent = errors.New("unknown intent")

// ExecutionError reports which action failed and why.
type ExecutionError struct {
	Action intent.Kind
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Failed to execute %s: %v", e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Executor draws intents onto a surface. It holds no state of its own.
type Executor struct {
	log *zap.Logger
}

func NewExecutor() *Executor {
	return &Executor{log: logging.Logger.Named("command")}
}

// Execute applies in to s. The surface is only mutated through its own
// primitives, so a failed primitive leaves whatever it already drew.
func (e *Executor) Execute(s raster.Surface, in intent.Intent) error {
	if s == nil {
		return &ExecutionError{Action: in.Kind, Err: errors.New("no canvas")}
	}
	if !in.Valid() {
		return &ExecutionError{Action: in.Kind, Err: ErrUnknownIntent}
	}
	var err error
	switch in.Kind {
	case intent.KindDrawCircle:
		err = drawCircle(s, in.Circle)
	case intent.KindDrawRectangle:
		err = drawRectangle(s, in.Rectangle)
	case intent.KindAdjustBrightness:
		err = adjustBrightness(s, in.Brightness)
	case intent.KindAddText:
		err = addText(s, in.Text)
	}
	if err != nil {
		return &ExecutionError{Action: in.Kind, Err: err}
	}
	e.logger().Debug("executed", zap.String("intent", in.Describe()))
	return nil
}

func (e *Executor) logger() *zap.Logger {
	if e == nil || e.log == nil {
		return zap.NewNop()
	}
	return e.log
}

func drawCircle(s raster.Surface, c *intent.Circle) error {
	fill, err := stdimg.ParseColor(c.Color)
	if err != nil {
		return err
	}
	if err := s.FillCircle(c.X, c.Y, c.Radius, fill); err != nil {
		return err
	}
	return s.StrokeCircle(c.X, c.Y, c.Radius, ShapeStrokeWidth, shapeStroke)
}

func drawRectangle(s raster.Surface, r *intent.Rectangle) error {
	fill, err := stdimg.ParseColor(r.Color)
	if err != nil {
		return err
	}
	if err := s.FillRect(r.X, r.Y, r.Width, r.Height, fill); err != nil {
		return err
	}
	return s.StrokeRect(r.X, r.Y, r.Width, r.Height, ShapeStrokeWidth, shapeStroke)
}

// adjustBrightness shifts RGB by delta*2.55 with saturation; alpha is kept.
// It reads the live pixels, so repeated commands accumulate.
func adjustBrightness(s raster.Surface, b *intent.Brightness) error {
	buf := s.Pixels()
	if buf == nil {
		return errors.New("no pixels")
	}
	stdimg.ApplyPoint(buf.NRGBA(), stdimg.Brightness(b.Delta*BrightnessScale))
	return s.SetPixels(buf)
}

func addText(s raster.Surface, t *intent.Text) error {
	fill, err := stdimg.ParseColor(t.Color)
	if err != nil {
		return err
	}
	if err := s.StrokeText(t.Text, t.X, t.Y, t.FontSize, TextStrokeWidth, textStroke); err != nil {
		return err
	}
	return s.FillText(t.Text, t.X, t.Y, t.FontSize, fill)
}
