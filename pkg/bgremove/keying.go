package bgremove

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

const KeyingName = "keying"

// KeyingEngine removes a roughly uniform backdrop: it takes the median
// border color as the key and clears every pixel connected to the border
// whose Lab distance to it is within Tolerance.
type KeyingEngine struct {
	Tolerance float64 // Delta-E
	Feather   float64 // gaussian sigma applied to the mask edge
	MaxSide   int     // images are keyed at most this large, 0 for native
}

func NewKeyingEngine(tolerance, feather float64, maxSide int) *KeyingEngine {
	return &KeyingEngine{Tolerance: tolerance, Feather: feather, MaxSide: maxSide}
}

func (k *KeyingEngine) Name() string { return KeyingName }

func (k *KeyingEngine) Init(ctx context.Context) error {
	if k.Tolerance < 0 || k.Tolerance > 200 {
		return fmt.Errorf("tolerance %v out of range 0..200", k.Tolerance)
	}
	if k.Feather < 0 {
		return fmt.Errorf("negative feather %v", k.Feather)
	}
	return ctx.Err()
}

func (k *KeyingEngine) Infer(ctx context.Context, img *image.NRGBA) (*image.Alpha, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image")
	}

	work := img
	if k.MaxSide > 0 && (w > k.MaxSide || h > k.MaxSide) {
		work = imaging.Fit(img, k.MaxSide, k.MaxSide, imaging.Box)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := stdimg.BorderKeyColor(work)
	mask := stdimg.BackgroundMask(work, key, k.Tolerance)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mask = stdimg.FeatherMask(mask, k.Feather)

	if work != img {
		mask = resizeMask(mask, w, h)
	}
	return mask, nil
}

// resizeMask scales a mask to w x h with linear filtering.
func resizeMask(m *image.Alpha, w, h int) *image.Alpha {
	scaled := imaging.Resize(stdimg.MaskToGray(m), w, h, imaging.Linear)
	out := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = scaled.Pix[scaled.PixOffset(x, y)]
		}
	}
	return out
}
