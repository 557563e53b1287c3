package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Fepozopo/promptcanvas/pkg/raster"
)

var (
	colorRe   = regexp.MustCompile(`(red|blue|green|yellow|purple|orange|black|white|pink)`)
	sizeRe    = regexp.MustCompile(`(\d+)\s*(px|pixel|pixels)`)
	percentRe = regexp.MustCompile(`(\d+)%`)
	quotedRe  = regexp.MustCompile(`"([^"]+)"`)
)

// Defaults used when the command leaves a field out.
const (
	DefaultRadius     = 50
	DefaultRectSize   = 100
	DefaultBrightness = 20
	DefaultFontSize   = 24
	DefaultText       = "Hello World"

	// FallbackWidth and FallbackHeight stand in for the canvas when the
	// parser is called without one.
	FallbackWidth  = 800
	FallbackHeight = 600
)

type rule struct {
	name  string
	match func(lc string) bool
	build func(lc, raw string, w, h float64) Intent
}

// rules are evaluated in order and the first match wins; "draw a circle
// and write text" is a circle.
var rules = []rule{
	{
		name:  "circle",
		match: func(lc string) bool { return strings.Contains(lc, "circle") },
		build: func(lc, _ string, w, h float64) Intent {
			return Intent{Kind: KindDrawCircle, Circle: &Circle{
				X:      w / 2,
				Y:      h / 2,
				Radius: sizeOr(lc, DefaultRadius),
				Color:  colorOr(lc, "blue"),
			}}
		},
	},
	{
		name: "rectangle",
		match: func(lc string) bool {
			return strings.Contains(lc, "rectangle") || strings.Contains(lc, "square")
		},
		build: func(lc, _ string, w, h float64) Intent {
			side := sizeOr(lc, DefaultRectSize)
			return Intent{Kind: KindDrawRectangle, Rectangle: &Rectangle{
				X:      w/2 - 50,
				Y:      h/2 - 50,
				Width:  side,
				Height: side,
				Color:  colorOr(lc, "green"),
			}}
		},
	},
	{
		name: "brightness",
		match: func(lc string) bool {
			return strings.Contains(lc, "bright") || strings.Contains(lc, "dark")
		},
		build: func(lc, _ string, _, _ float64) Intent {
			delta := float64(DefaultBrightness)
			if m := percentRe.FindStringSubmatch(lc); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					delta = float64(n)
				}
			}
			if strings.Contains(lc, "dark") || strings.Contains(lc, "dim") {
				delta = -delta
			}
			return Intent{Kind: KindAdjustBrightness, Brightness: &Brightness{Delta: delta}}
		},
	},
	{
		name: "text",
		match: func(lc string) bool {
			return strings.Contains(lc, "text") || strings.Contains(lc, "write")
		},
		build: func(lc, raw string, w, h float64) Intent {
			literal := DefaultText
			if m := quotedRe.FindStringSubmatch(raw); m != nil {
				literal = m[1]
			}
			return Intent{Kind: KindAddText, Text: &Text{
				X:        w / 2,
				Y:        h / 2,
				Text:     literal,
				Color:    colorOr(lc, "white"),
				FontSize: DefaultFontSize,
			}}
		},
	},
}

// Parse maps text to an Intent. dims is the current canvas size; nil means
// no canvas is loaded and the 800x600 fallback centers are used. The second
// result is false when no rule matches.
func Parse(text string, dims *raster.Dimensions) (Intent, bool) {
	raw := strings.TrimSpace(text)
	lc := strings.ToLower(raw)
	if lc == "" {
		return Intent{}, false
	}
	w, h := float64(FallbackWidth), float64(FallbackHeight)
	if dims != nil {
		w, h = float64(dims.Width), float64(dims.Height)
	}
	for _, r := range rules {
		if r.match(lc) {
			return r.build(lc, raw, w, h), true
		}
	}
	return Intent{}, false
}

// ParseCommand is Parse with an error instead of a flag.
func ParseCommand(text string, dims *raster.Dimensions) (Intent, error) {
	in, ok := Parse(text, dims)
	if !ok {
		return Intent{}, fmt.Errorf("%w: %q", ErrUnrecognized, strings.TrimSpace(text))
	}
	return in, nil
}

// sizeOr returns the first "<n>px" quantity in lc; zero counts as absent.
func sizeOr(lc string, def float64) float64 {
	m := sizeRe.FindStringSubmatch(lc)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return def
	}
	return float64(n)
}

func colorOr(lc, def string) string {
	if m := colorRe.FindStringSubmatch(lc); m != nil {
		return m[1]
	}
	return def
}
