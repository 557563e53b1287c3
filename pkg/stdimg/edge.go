package stdimg

import (
	"image"
	"math"
)

// SobelMagnitude converts src to BT.601 grayscale, takes 3x3 Sobel
// derivatives in x and y multiplied by scale, and writes the clamped
// gradient magnitude back as an opaque gray image.
func SobelMagnitude(src *image.NRGBA, scale float64) *image.NRGBA {
	if src == nil {
		return nil
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*src.Stride + x*4
			gray[y*w+x] = float64(Luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2]))
		}
	}

	// Sobel kernels
	gx := [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	gy := [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sumX := 0.0
			sumY := 0.0
			for ky := -1; ky <= 1; ky++ {
				iy := reflect101(y+ky, h)
				for kx := -1; kx <= 1; kx++ {
					lum := gray[iy*w+reflect101(x+kx, w)]
					sumX += lum * gx[ky+1][kx+1]
					sumY += lum * gy[ky+1][kx+1]
				}
			}
			m := math.Hypot(sumX*scale, sumY*scale)
			val := clampUint8(m)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = val
			out.Pix[i+1] = val
			out.Pix[i+2] = val
			out.Pix[i+3] = 255
		}
	}
	return out
}
