// Package intent turns free-text editing commands into structured canvas
// intents. It is a fixed, ordered list of keyword rules: the first rule whose
// predicate matches decides the intent, nothing is combined or backtracked.
package intent

import (
	"errors"
	"fmt"
)

// Kind names the action an Intent performs.
type Kind string

const (
	KindDrawCircle       Kind = "draw_circle"
	KindDrawRectangle    Kind = "draw_rectangle"
	KindAdjustBrightness Kind = "adjust_brightness"
	KindAddText          Kind = "add_text"
)

// HelpMessage is shown when a command matches no rule.
const HelpMessage = `Could not understand the command. Try: "draw red circle", "brighten 20%", or "add text Hello"`

// ErrUnrecognized is returned by ParseCommand when no rule matches.
var ErrUnrecognized = errors.New("unrecognized command")

// Examples are suggested commands for help screens.
var Examples = []string{
	"draw red circle",
	"draw blue rectangle 80px",
	"brighten image 30%",
	`add text "Hello World"`,
	"darken image 15%",
}

type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color"`
}

// Brightness is a percentage-like delta, roughly -100..100.
type Brightness struct {
	Delta float64 `json:"delta"`
}

type Text struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text"`
	Color    string  `json:"color"`
	FontSize float64 `json:"font_size"`
}

// Intent is a tagged variant: Kind selects which one of the payload
// pointers is set. Intents are values; nothing mutates them after Parse.
type Intent struct {
	Kind       Kind        `json:"kind"`
	Circle     *Circle     `json:"circle,omitempty"`
	Rectangle  *Rectangle  `json:"rectangle,omitempty"`
	Brightness *Brightness `json:"brightness,omitempty"`
	Text       *Text       `json:"text,omitempty"`
}

// Valid reports whether exactly the payload named by Kind is populated.
func (in Intent) Valid() bool {
	n := 0
	for _, set := range []bool{in.Circle != nil, in.Rectangle != nil, in.Brightness != nil, in.Text != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return false
	}
	switch in.Kind {
	case KindDrawCircle:
		return in.Circle != nil
	case KindDrawRectangle:
		return in.Rectangle != nil
	case KindAdjustBrightness:
		return in.Brightness != nil
	case KindAddText:
		return in.Text != nil
	}
	return false
}

// Describe renders the intent for status lines and logs.
func (in Intent) Describe() string {
	switch {
	case in.Kind == KindDrawCircle && in.Circle != nil:
		c := in.Circle
		return fmt.Sprintf("circle %s r=%g at (%g,%g)", c.Color, c.Radius, c.X, c.Y)
	case in.Kind == KindDrawRectangle && in.Rectangle != nil:
		r := in.Rectangle
		return fmt.Sprintf("rectangle %s %gx%g at (%g,%g)", r.Color, r.Width, r.Height, r.X, r.Y)
	case in.Kind == KindAdjustBrightness && in.Brightness != nil:
		return fmt.Sprintf("brightness %+g%%", in.Brightness.Delta)
	case in.Kind == KindAddText && in.Text != nil:
		t := in.Text
		return fmt.Sprintf("text %q %s %gpx at (%g,%g)", t.Text, t.Color, t.FontSize, t.X, t.Y)
	}
	return string(in.Kind)
}
