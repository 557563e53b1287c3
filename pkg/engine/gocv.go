//go:build gocv

package engine

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

const GocvName = "gocv"

func init() {
	Register(GocvName, func(poll time.Duration) (Provider, error) {
		return NewDeferred(&Gocv{}, gocvProbe, NewWatcher(poll)), nil
	})
}

// gocvProbe succeeds once OpenCV can allocate and run a trivial blur.
func gocvProbe() bool {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV8UC1)
	defer m.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(m, &dst, image.Pt(3, 3), 1, 1, gocv.BorderDefault)
	return !dst.Empty()
}

// Gocv runs the engine filters through OpenCV. It carries no readiness of
// its own; NewDeferred provides it.
type Gocv struct{}

func (g *Gocv) Name() string { return GocvName }

func (g *Gocv) Ready() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (g *Gocv) IsReady() bool { return true }

func matFromNRGBA(src *image.NRGBA) (gocv.Mat, error) {
	if src == nil {
		return gocv.NewMat(), fmt.Errorf("nil image")
	}
	img := stdimg.ToNRGBA(src)
	return gocv.NewMatFromBytes(img.Rect.Dy(), img.Rect.Dx(), gocv.MatTypeCV8UC4, img.Pix)
}

// nrgbaFromMat copies an 8-bit RGBA or single channel Mat into an NRGBA.
func nrgbaFromMat(m gocv.Mat) (*image.NRGBA, error) {
	rgba := m
	if m.Channels() == 1 {
		rgba = gocv.NewMat()
		defer rgba.Close()
		gocv.CvtColor(m, &rgba, gocv.ColorGrayToRGBA)
	}
	b, err := rgba.DataPtrUint8()
	if err != nil {
		return nil, err
	}
	out := image.NewNRGBA(image.Rect(0, 0, rgba.Cols(), rgba.Rows()))
	copy(out.Pix, b)
	return out, nil
}

func (g *Gocv) GaussianBlur(src *image.NRGBA, ksize int, sigma float64) (*image.NRGBA, error) {
	m, err := matFromNRGBA(src)
	if err != nil {
		return nil, fmt.Errorf("gaussian: %w", err)
	}
	defer m.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(m, &dst, image.Pt(ksize, ksize), sigma, sigma, gocv.BorderDefault)
	return nrgbaFromMat(dst)
}

func (g *Gocv) SobelEdges(src *image.NRGBA, scale float64) (*image.NRGBA, error) {
	m, err := matFromNRGBA(src)
	if err != nil {
		return nil, fmt.Errorf("sobel: %w", err)
	}
	defer m.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(m, &gray, gocv.ColorRGBAToGray)

	dx := gocv.NewMat()
	defer dx.Close()
	dy := gocv.NewMat()
	defer dy.Close()
	gocv.Sobel(gray, &dx, gocv.MatTypeCV64F, 1, 0, 3, scale, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &dy, gocv.MatTypeCV64F, 0, 1, 3, scale, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(dx, dy, &mag)

	mag8 := gocv.NewMat()
	defer mag8.Close()
	mag.ConvertTo(&mag8, gocv.MatTypeCV8U)
	return nrgbaFromMat(mag8)
}

func (g *Gocv) Convolve(src *image.NRGBA, kernel [9]float64) (*image.NRGBA, error) {
	m, err := matFromNRGBA(src)
	if err != nil {
		return nil, fmt.Errorf("convolve: %w", err)
	}
	defer m.Close()

	k := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer k.Close()
	for i, v := range kernel {
		k.SetDoubleAt(i/3, i%3, v)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(m, &rgb, gocv.ColorRGBAToRGB)
	filtered := gocv.NewMat()
	defer filtered.Close()
	gocv.Filter2D(rgb, &filtered, -1, k, image.Pt(-1, -1), 0, gocv.BorderDefault)

	out, err := nrgbaFromMat(m)
	if err != nil {
		return nil, err
	}
	fb, err := filtered.DataPtrUint8()
	if err != nil {
		return nil, err
	}
	// alpha stays from the source
	for i, j := 0, 0; j+2 < len(fb); i, j = i+4, j+3 {
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = fb[j], fb[j+1], fb[j+2]
	}
	return out, nil
}
