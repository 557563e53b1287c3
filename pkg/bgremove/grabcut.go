//go:build gocv

package bgremove

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const GrabCutName = "grabcut"

// GrabCutEngine segments with OpenCV GrabCut seeded by a rectangle inset
// from the image border. Large images are downscaled for the cut and the
// mask is scaled back.
type GrabCutEngine struct {
	Iterations int
	BorderSize int
	MaxSide    int
}

func NewGrabCutEngine(iterations, borderSize, maxSide int) *GrabCutEngine {
	return &GrabCutEngine{Iterations: iterations, BorderSize: borderSize, MaxSide: maxSide}
}

func (g *GrabCutEngine) Name() string { return GrabCutName }

func (g *GrabCutEngine) Init(ctx context.Context) error {
	if g.Iterations < 1 {
		return fmt.Errorf("grabcut needs at least one iteration, got %d", g.Iterations)
	}
	m := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer m.Close()
	if m.Empty() {
		return fmt.Errorf("opencv could not allocate a matrix")
	}
	return ctx.Err()
}

func (g *GrabCutEngine) Infer(ctx context.Context, img *image.NRGBA) (*image.Alpha, error) {
	rgba, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, err
	}
	defer rgba.Close()
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	width, height := bgr.Cols(), bgr.Rows()
	scaled, _ := g.smartResize(&bgr)
	defer scaled.Close()
	sw, sh := scaled.Cols(), scaled.Rows()

	border := g.BorderSize
	if border < 10 {
		border = int(float64(sw) * 0.05)
	}
	if 2*border >= sw || 2*border >= sh {
		border = 1
	}
	rect := image.Rect(border, border, sw-border, sh-border)

	mask := gocv.NewMat()
	defer mask.Close()
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gocv.GrabCut(scaled, &mask, rect, &bgdModel, &fgdModel, g.Iterations, gocv.GCInitWithRect)

	// definite (1) and probable (3) foreground
	fg := gocv.Zeros(sh, sw, gocv.MatTypeCV8U)
	defer fg.Close()
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			if v := mask.GetUCharAt(y, x); v == 1 || v == 3 {
				fg.SetUCharAt(y, x, 255)
			}
		}
	}

	if sw != width || sh != height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(fg, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		return alphaFromMat(resized), nil
	}
	return alphaFromMat(fg), nil
}

func (g *GrabCutEngine) smartResize(img *gocv.Mat) (gocv.Mat, float64) {
	width, height := img.Cols(), img.Rows()
	maxDim := max(width, height)
	if g.MaxSide <= 0 || maxDim <= g.MaxSide {
		return img.Clone(), 1.0
	}
	scale := float64(g.MaxSide) / float64(maxDim)
	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Pt(int(float64(width)*scale), int(float64(height)*scale)), 0, 0, gocv.InterpolationArea)
	return resized, scale
}

func alphaFromMat(m gocv.Mat) *image.Alpha {
	out := image.NewAlpha(image.Rect(0, 0, m.Cols(), m.Rows()))
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			out.Pix[y*out.Stride+x] = m.GetUCharAt(y, x)
		}
	}
	return out
}

func init() {
	registerEngine(GrabCutName, func(o EngineOptions) Engine {
		return NewGrabCutEngine(o.Iterations, o.BorderSize, o.MaxSide)
	})
}
