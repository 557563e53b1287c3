package stdimg

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// namedColors holds the CSS keywords the command parser can emit plus a
// few common extras; values follow CSS Color Level 4.
var namedColors = map[string]string{
	"black":       "#000000",
	"blue":        "#0000ff",
	"cyan":        "#00ffff",
	"gray":        "#808080",
	"green":       "#008000",
	"grey":        "#808080",
	"magenta":     "#ff00ff",
	"orange":      "#ffa500",
	"pink":        "#ffc0cb",
	"purple":      "#800080",
	"red":         "#ff0000",
	"transparent": "#00000000",
	"white":       "#ffffff",
	"yellow":      "#ffff00",
}

// ParseColor accepts a CSS color keyword from the set above, #rgb, #rgba,
// #rrggbb or #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return color.NRGBA{}, fmt.Errorf("empty color")
	}
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
	}
	hex := s[1:]
	// expand short forms
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
