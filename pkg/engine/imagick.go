//go:build imagick

package engine

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"gopkg.in/gographics/imagick.v3/imagick"

	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

const ImagickName = "imagick"

var imagickOnce sync.Once

func init() {
	Register(ImagickName, func(poll time.Duration) (Provider, error) {
		return NewDeferred(&Imagick{}, imagickProbe, NewWatcher(poll)), nil
	})
}

func imagickProbe() bool {
	imagickOnce.Do(imagick.Initialize)
	mw := imagick.NewMagickWand()
	defer mw.Destroy()
	return mw.IsVerified()
}

// Imagick runs the engine filters through ImageMagick's MagickWand API.
// ImageMagick has no Sobel magnitude operator, so SobelEdges uses stdimg.
type Imagick struct{}

func (m *Imagick) Name() string { return ImagickName }

func (m *Imagick) Ready() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (m *Imagick) IsReady() bool { return true }

func wandFromNRGBA(src *image.NRGBA) (*imagick.MagickWand, error) {
	if src == nil {
		return nil, fmt.Errorf("nil image")
	}
	img := stdimg.ToNRGBA(src)
	mw := imagick.NewMagickWand()
	w, h := uint(img.Rect.Dx()), uint(img.Rect.Dy())
	if err := mw.ConstituteImage(w, h, "RGBA", imagick.PIXEL_CHAR, img.Pix); err != nil {
		mw.Destroy()
		return nil, err
	}
	return mw, nil
}

func nrgbaFromWand(mw *imagick.MagickWand) (*image.NRGBA, error) {
	w, h := mw.GetImageWidth(), mw.GetImageHeight()
	px, err := mw.ExportImagePixels(0, 0, w, h, "RGBA", imagick.PIXEL_CHAR)
	if err != nil {
		return nil, err
	}
	b, ok := px.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected pixel storage %T", px)
	}
	out := image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
	copy(out.Pix, b)
	return out, nil
}

func (m *Imagick) GaussianBlur(src *image.NRGBA, ksize int, sigma float64) (*image.NRGBA, error) {
	mw, err := wandFromNRGBA(src)
	if err != nil {
		return nil, fmt.Errorf("gaussian: %w", err)
	}
	defer mw.Destroy()
	if err := mw.GaussianBlurImage(float64(ksize/2), sigma); err != nil {
		return nil, fmt.Errorf("gaussian: %w", err)
	}
	return nrgbaFromWand(mw)
}

func (m *Imagick) SobelEdges(src *image.NRGBA, scale float64) (*image.NRGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("sobel: nil image")
	}
	return stdimg.SobelMagnitude(src, scale), nil
}

func (m *Imagick) Convolve(src *image.NRGBA, kernel [9]float64) (*image.NRGBA, error) {
	mw, err := wandFromNRGBA(src)
	if err != nil {
		return nil, fmt.Errorf("convolve: %w", err)
	}
	defer mw.Destroy()

	vals := make([]string, len(kernel))
	for i, v := range kernel {
		vals[i] = fmt.Sprintf("%g", v)
	}
	ki, err := imagick.NewKernelInfo("3x3:" + strings.Join(vals, ","))
	if err != nil {
		return nil, fmt.Errorf("convolve: %w", err)
	}
	if err := mw.ConvolveImage(ki); err != nil {
		return nil, fmt.Errorf("convolve: %w", err)
	}
	out, err := nrgbaFromWand(mw)
	if err != nil {
		return nil, err
	}
	// alpha stays from the source
	base := stdimg.ToNRGBA(src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = base.Pix[i]
	}
	return out, nil
}
