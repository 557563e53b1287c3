package stdimg

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// color conversion helpers: sRGB -> linear -> XYZ -> Lab
func srgbToLinear(c uint8) float64 {
	v := float64(c) / 255.0
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func linearToXyz(r, g, b float64) (x, y, z float64) {
	// sRGB D65 matrix
	x = 0.4124564*r + 0.3575761*g + 0.1804375*b
	y = 0.2126729*r + 0.7151522*g + 0.0721750*b
	z = 0.0193339*r + 0.1191920*g + 0.9503041*b
	return
}

func xyzToLab(x, y, z float64) (l, a, b float64) {
	// reference D65
	xr := x / 0.95047
	yr := y / 1.00000
	zr := z / 1.08883
	f := func(t float64) float64 {
		if t > 0.008856 {
			return math.Pow(t, 1.0/3.0)
		}
		return 7.787037*t + 16.0/116.0
	}
	fx := f(xr)
	fy := f(yr)
	fz := f(zr)
	l = 116.0*fy - 16.0
	a = 500.0 * (fx - fy)
	b = 200.0 * (fy - fz)
	return
}

type lab struct{ l, a, b float64 }

func rgbToLab(c color.NRGBA) lab {
	x, y, z := linearToXyz(srgbToLinear(c.R), srgbToLinear(c.G), srgbToLinear(c.B))
	l, a, b := xyzToLab(x, y, z)
	return lab{l, a, b}
}

func (p lab) distSq(q lab) float64 {
	dl := p.l - q.l
	da := p.a - q.a
	db := p.b - q.b
	return dl*dl + da*da + db*db
}

// BorderKeyColor returns the per-channel median of the outermost ring of
// pixels, which is taken as the background color.
func BorderKeyColor(src *image.NRGBA) color.NRGBA {
	b := src.Bounds()
	var rs, gs, bs []int
	add := func(x, y int) {
		c := samplePixelClamped(src, x, y)
		rs = append(rs, int(c.R))
		gs = append(gs, int(c.G))
		bs = append(bs, int(c.B))
	}
	for x := b.Min.X; x < b.Max.X; x++ {
		add(x, b.Min.Y)
		add(x, b.Max.Y-1)
	}
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		add(b.Min.X, y)
		add(b.Max.X-1, y)
	}
	median := func(v []int) uint8 {
		sort.Ints(v)
		return uint8(v[len(v)/2])
	}
	return color.NRGBA{median(rs), median(gs), median(bs), 255}
}

// BackgroundMask keys out the region connected to the image border whose
// color lies within fuzz (Lab Delta-E) of key. The returned mask is 0 for
// background and 255 for foreground, at src's resolution.
func BackgroundMask(src *image.NRGBA, key color.NRGBA, fuzz float64) *image.Alpha {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	if w == 0 || h == 0 {
		return mask
	}

	// clamp fuzz (interpreted as Lab Delta-E units)
	fuzz = math.Max(0, math.Min(fuzz, 200))
	fuzzSq := fuzz * fuzz
	keyLab := rgbToLab(key)

	// visited bitset, 1 bit per pixel
	visited := make([]byte, (w*h+7)/8)
	seen := func(i int) bool { return visited[i>>3]&(1<<(uint(i)&7)) != 0 }
	mark := func(i int) { visited[i>>3] |= 1 << (uint(i) & 7) }

	matches := func(x, y int) bool {
		c := samplePixelClamped(src, b.Min.X+x, b.Min.Y+y)
		if c.A == 0 {
			return true
		}
		return rgbToLab(c).distSq(keyLab) <= fuzzSq
	}

	// Scanline flood fill (4-way) seeded from every border pixel.
	type seed struct{ x, y int }
	stack := make([]seed, 0, 2*(w+h))
	for x := 0; x < w; x++ {
		stack = append(stack, seed{x, 0}, seed{x, h - 1})
	}
	for y := 1; y < h-1; y++ {
		stack = append(stack, seed{0, y}, seed{w - 1, y})
	}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i0 := s.y*w + s.x
		if seen(i0) {
			continue
		}
		if !matches(s.x, s.y) {
			mark(i0)
			continue
		}
		// expand left
		xl := s.x
		for xl-1 >= 0 && !seen(s.y*w+xl-1) && matches(xl-1, s.y) {
			xl--
		}
		// expand right
		xr := s.x
		for xr+1 < w && !seen(s.y*w+xr+1) && matches(xr+1, s.y) {
			xr++
		}
		for xi := xl; xi <= xr; xi++ {
			mark(s.y*w + xi)
			mask.Pix[s.y*mask.Stride+xi] = 0
		}
		for _, adjY := range [2]int{s.y - 1, s.y + 1} {
			if adjY < 0 || adjY >= h {
				continue
			}
			for x := xl; x <= xr; x++ {
				if !seen(adjY*w + x) {
					stack = append(stack, seed{x, adjY})
				}
			}
		}
	}
	return mask
}

// FeatherMask softens mask edges with a gaussian of the given sigma.
func FeatherMask(mask *image.Alpha, sigma float64) *image.Alpha {
	if mask == nil || sigma <= 0 {
		return mask
	}
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	tmp := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := mask.Pix[y*mask.Stride+x]
			i := tmp.PixOffset(x, y)
			tmp.Pix[i], tmp.Pix[i+1], tmp.Pix[i+2], tmp.Pix[i+3] = v, v, v, 255
		}
	}
	blurred := SeparableGaussianBlur(tmp, sigma)
	out := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = blurred.Pix[blurred.PixOffset(x, y)]
		}
	}
	return out
}

// ApplyAlphaMask returns a copy of src whose alpha is multiplied by mask.
// mask must have the same dimensions as src.
func ApplyAlphaMask(src *image.NRGBA, mask *image.Alpha) *image.NRGBA {
	out := ToNRGBA(src)
	w, h := out.Rect.Dx(), out.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := out.PixOffset(x, y)
			m := uint32(mask.Pix[y*mask.Stride+x])
			out.Pix[i+3] = uint8((uint32(out.Pix[i+3])*m + 127) / 255)
		}
	}
	return out
}

// MaskToGray renders an alpha mask as a grayscale image for download.
func MaskToGray(mask *image.Alpha) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, mask.Rect.Dx(), mask.Rect.Dy()))
	for y := 0; y < out.Rect.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+out.Rect.Dx()], mask.Pix[y*mask.Stride:])
	}
	return out
}
