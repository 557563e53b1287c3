package stdimg

import (
	"image"
	"math"
	"sync"
)

// gaussianKernel1D generates a normalized 1D Gaussian kernel with the given
// size (odd) and sigma. A non-positive sigma is derived from the size the
// way OpenCV does.
func gaussianKernel1D(size int, sigma float64) []float64 {
	if size < 1 {
		size = 1
	}
	if size%2 == 0 {
		size++
	}
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	radius := size / 2
	kern := make([]float64, size)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-0.5 * (float64(i) * float64(i)) / (sigma * sigma))
		kern[i+radius] = v
		sum += v
	}
	for i := range kern {
		kern[i] /= sum
	}
	return kern
}

// GaussianBlur blurs all four channels of src with a ksize x ksize gaussian
// of the given sigma (both axes). Borders reflect without repeating the edge
// pixel. Rows and columns are processed concurrently.
func GaussianBlur(src *image.NRGBA, ksize int, sigma float64) *image.NRGBA {
	if src == nil {
		return nil
	}
	kern := gaussianKernel1D(ksize, sigma)
	radius := len(kern) / 2
	w, h := src.Rect.Dx(), src.Rect.Dy()
	tmp := make([]float64, w*h*4)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	// horizontal pass
	var wg sync.WaitGroup
	for y := 0; y < h; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			row := src.Pix[y*src.Stride:]
			for x := 0; x < w; x++ {
				var acc [4]float64
				for k := -radius; k <= radius; k++ {
					si := reflect101(x+k, w) * 4
					wgt := kern[k+radius]
					for c := 0; c < 4; c++ {
						acc[c] += float64(row[si+c]) * wgt
					}
				}
				copy(tmp[(y*w+x)*4:], acc[:])
			}
		}(y)
	}
	wg.Wait()

	// vertical pass
	for x := 0; x < w; x++ {
		wg.Add(1)
		go func(x int) {
			defer wg.Done()
			for y := 0; y < h; y++ {
				var acc [4]float64
				for k := -radius; k <= radius; k++ {
					ti := (reflect101(y+k, h)*w + x) * 4
					wgt := kern[k+radius]
					for c := 0; c < 4; c++ {
						acc[c] += tmp[ti+c] * wgt
					}
				}
				di := dst.PixOffset(x, y)
				for c := 0; c < 4; c++ {
					dst.Pix[di+c] = clampUint8(acc[c])
				}
			}
		}(x)
	}
	wg.Wait()
	return dst
}

// SeparableGaussianBlur blurs with a kernel radius of ceil(3*sigma).
func SeparableGaussianBlur(src *image.NRGBA, sigma float64) *image.NRGBA {
	if sigma <= 0 {
		return CloneNRGBA(src)
	}
	return GaussianBlur(src, 2*int(math.Ceil(3*sigma))+1, sigma)
}

// Convolve3x3 correlates the color channels of src with a row-major 3x3
// kernel. Alpha is copied through unchanged. Borders reflect as in
// GaussianBlur.
func Convolve3x3(src *image.NRGBA, kernel [9]float64) *image.NRGBA {
	if src == nil {
		return nil
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	var wg sync.WaitGroup
	for y := 0; y < h; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			for x := 0; x < w; x++ {
				var acc [3]float64
				for ky := -1; ky <= 1; ky++ {
					sy := reflect101(y+ky, h)
					for kx := -1; kx <= 1; kx++ {
						si := sy*src.Stride + reflect101(x+kx, w)*4
						wgt := kernel[(ky+1)*3+kx+1]
						acc[0] += float64(src.Pix[si+0]) * wgt
						acc[1] += float64(src.Pix[si+1]) * wgt
						acc[2] += float64(src.Pix[si+2]) * wgt
					}
				}
				di := dst.PixOffset(x, y)
				si := y*src.Stride + x*4
				dst.Pix[di+0] = clampUint8(acc[0])
				dst.Pix[di+1] = clampUint8(acc[1])
				dst.Pix[di+2] = clampUint8(acc[2])
				dst.Pix[di+3] = src.Pix[si+3]
			}
		}(y)
	}
	wg.Wait()
	return dst
}

// SharpenKernel builds the 3x3 sharpening kernel for an intensity dial:
// off-center weights -i/10, center 1+i/2.5.
func SharpenKernel(intensity int) [9]float64 {
	off := -float64(intensity) / 10
	center := 1 + float64(intensity)/2.5
	return [9]float64{
		off, off, off,
		off, center, off,
		off, off, off,
	}
}
