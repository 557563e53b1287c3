package stdimg

import (
	"image"
	"image/color"
	"testing"
)

// boxOnBackground returns a 7x7 blue image with a red 3x3 box in the middle.
func boxOnBackground() *image.NRGBA {
	img := makeSolidNRGBA(7, 7, color.NRGBA{0, 0, 255, 255})
	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 255, 0, 0
		}
	}
	return img
}

func TestBorderKeyColor(t *testing.T) {
	if got := BorderKeyColor(boxOnBackground()); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Fatalf("key = %v, want blue", got)
	}
}

func TestBackgroundMaskKeepsInterior(t *testing.T) {
	img := boxOnBackground()
	mask := BackgroundMask(img, BorderKeyColor(img), 5)
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			inside := x >= 2 && x <= 4 && y >= 2 && y <= 4
			v := mask.AlphaAt(x, y).A
			if inside && v != 255 {
				t.Fatalf("foreground %d,%d masked out", x, y)
			}
			if !inside && v != 0 {
				t.Fatalf("background %d,%d kept (%d)", x, y, v)
			}
		}
	}
}

func TestBackgroundMaskEnclosedBackgroundColorSurvives(t *testing.T) {
	// blue pixel enclosed by the red box is not connected to the border
	img := boxOnBackground()
	i := img.PixOffset(3, 3)
	img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 0, 0, 255
	mask := BackgroundMask(img, BorderKeyColor(img), 5)
	if mask.AlphaAt(3, 3).A != 255 {
		t.Fatalf("enclosed pixel should stay foreground")
	}
}

func TestApplyAlphaMaskAndGray(t *testing.T) {
	img := boxOnBackground()
	mask := BackgroundMask(img, BorderKeyColor(img), 5)
	out := ApplyAlphaMask(img, mask)
	if pixelAt(out, 0, 0).A != 0 || pixelAt(out, 3, 3).A != 255 {
		t.Fatalf("unexpected alpha after mask: %v %v", pixelAt(out, 0, 0), pixelAt(out, 3, 3))
	}
	if pixelAt(img, 0, 0).A != 255 {
		t.Fatalf("ApplyAlphaMask mutated its input")
	}
	g := MaskToGray(mask)
	if g.GrayAt(0, 0).Y != 0 || g.GrayAt(3, 3).Y != 255 {
		t.Fatalf("gray mask mismatch")
	}
}

func TestFeatherMaskSoftensEdge(t *testing.T) {
	img := boxOnBackground()
	mask := FeatherMask(BackgroundMask(img, BorderKeyColor(img), 5), 1)
	edge := mask.AlphaAt(1, 3).A
	if edge == 0 || edge == 255 {
		t.Fatalf("expected partial alpha at box edge, got %d", edge)
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"green":     {0, 128, 0, 255},
		"#fff":      {255, 255, 255, 255},
		"#1f2937":   {0x1f, 0x29, 0x37, 255},
		"#ff000080": {255, 0, 0, 128},
		" Pink ":    {255, 192, 203, 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Fatalf("ParseColor(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseColor("chartreuse-ish"); err == nil {
		t.Fatalf("expected error for unknown color")
	}
}
