package engine

import (
	"fmt"
	"image"
	"time"

	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

const NativeName = "native"

func init() {
	Register(NativeName, func(time.Duration) (Provider, error) { return NewNative(), nil })
}

// Native runs the engine filters with the pure-Go code in stdimg. It is
// ready as soon as it is built.
type Native struct {
	*Readiness
}

func NewNative() *Native {
	n := &Native{Readiness: NewReadiness()}
	n.MarkReady()
	return n
}

func (n *Native) Name() string { return NativeName }

func (n *Native) GaussianBlur(src *image.NRGBA, ksize int, sigma float64) (*image.NRGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("gaussian: nil image")
	}
	if ksize < 1 || ksize%2 == 0 {
		return nil, fmt.Errorf("gaussian: kernel size %d must be odd and positive", ksize)
	}
	return stdimg.GaussianBlur(src, ksize, sigma), nil
}

func (n *Native) SobelEdges(src *image.NRGBA, scale float64) (*image.NRGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("sobel: nil image")
	}
	return stdimg.SobelMagnitude(src, scale), nil
}

func (n *Native) Convolve(src *image.NRGBA, kernel [9]float64) (*image.NRGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("convolve: nil image")
	}
	return stdimg.Convolve3x3(src, kernel), nil
}
