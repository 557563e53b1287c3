package stdimg

import "image"

// PointFunc maps one RGB triple to another. Alpha never passes through it.
type PointFunc func(r, g, b uint8) (uint8, uint8, uint8)

// ApplyPoint runs f over every pixel of img in place.
func ApplyPoint(img *image.NRGBA, f PointFunc) {
	if img == nil {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		i := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		for x := 0; x < w; x++ {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = f(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			i += 4
		}
	}
}

// Sepia is the classic luminance-preserving sepia matrix.
func Sepia(r, g, b uint8) (uint8, uint8, uint8) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	return clampUint8(fr*0.393 + fg*0.769 + fb*0.189),
		clampUint8(fr*0.349 + fg*0.686 + fb*0.168),
		clampUint8(fr*0.272 + fg*0.534 + fb*0.131)
}

// Grayscale writes BT.601 luma to all three channels.
func Grayscale(r, g, b uint8) (uint8, uint8, uint8) {
	l := Luma(r, g, b)
	return l, l, l
}

func Invert(r, g, b uint8) (uint8, uint8, uint8) {
	return 255 - r, 255 - g, 255 - b
}

// Brightness returns a PointFunc adding delta to each channel with
// saturation at both ends.
func Brightness(delta float64) PointFunc {
	return func(r, g, b uint8) (uint8, uint8, uint8) {
		return clampUint8(float64(r) + delta),
			clampUint8(float64(g) + delta),
			clampUint8(float64(b) + delta)
	}
}

// Contrast returns a PointFunc scaling each channel's distance from 128.
func Contrast(factor float64) PointFunc {
	f := func(c uint8) uint8 { return clampUint8((float64(c)-128)*factor + 128) }
	return func(r, g, b uint8) (uint8, uint8, uint8) {
		return f(r), f(g), f(b)
	}
}
