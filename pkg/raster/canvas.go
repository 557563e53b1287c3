package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// Canvas is a Surface backed by a gg software context. The gg pixmap keeps
// premultiplied RGBA; Pixels and SetPixels convert to and from the
// straight-alpha Buffer layout. All methods are safe for concurrent use.
type Canvas struct {
	mu    sync.Mutex
	dc    *gg.Context
	font  *text.FontSource
	faces map[float64]text.Face
}

// NewCanvas creates a width x height canvas filled with bg.
func NewCanvas(width, height int, bg color.Color) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	c := &Canvas{
		dc:    gg.NewContext(width, height),
		font:  src,
		faces: make(map[float64]text.Face),
	}
	if bg != nil {
		c.dc.ClearWithColor(gg.FromColor(bg))
	}
	return c, nil
}

func (c *Canvas) Width() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.Width()
}

func (c *Canvas) Height() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.Height()
}

func (c *Canvas) Pixels() *Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.dc.FlushGPU()
	premul := c.dc.Image()
	b := premul.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), premul, b.Min, draw.Src)
	return &Buffer{Width: b.Dx(), Height: b.Dy(), Pix: out.Pix}
}

func (c *Canvas) SetPixels(buf *Buffer) error {
	if err := buf.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if buf.Width != c.dc.Width() || buf.Height != c.dc.Height() {
		return fmt.Errorf("%w: %dx%d into %dx%d", ErrSizeMismatch, buf.Width, buf.Height, c.dc.Width(), c.dc.Height())
	}
	_ = c.dc.FlushGPU()
	dst := c.dc.ResizeTarget().Data()
	for i := 0; i < len(buf.Pix); i += 4 {
		a := uint32(buf.Pix[i+3])
		if a == 255 {
			copy(dst[i:i+4], buf.Pix[i:i+4])
			continue
		}
		dst[i+0] = uint8((uint32(buf.Pix[i+0])*a + 127) / 255)
		dst[i+1] = uint8((uint32(buf.Pix[i+1])*a + 127) / 255)
		dst[i+2] = uint8((uint32(buf.Pix[i+2])*a + 127) / 255)
		dst[i+3] = uint8(a)
	}
	return nil
}

// Frame copies the premultiplied pixmap.
func (c *Canvas) Frame() *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.dc.FlushGPU()
	pm := c.dc.ResizeTarget()
	data := make([]uint8, len(pm.Data()))
	copy(data, pm.Data())
	return &Frame{Width: pm.Width(), Height: pm.Height(), data: data}
}

// RestoreFrame writes f back into the pixmap byte for byte.
func (c *Canvas) RestoreFrame(f *Frame) error {
	if f == nil {
		return fmt.Errorf("nil frame")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.Width != c.dc.Width() || f.Height != c.dc.Height() {
		return fmt.Errorf("%w: %dx%d into %dx%d", ErrSizeMismatch, f.Width, f.Height, c.dc.Width(), c.dc.Height())
	}
	_ = c.dc.FlushGPU()
	copy(c.dc.ResizeTarget().Data(), f.data)
	return nil
}

func (c *Canvas) FillCircle(x, y, radius float64, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetColor(col)
	c.dc.DrawCircle(x, y, radius)
	return c.dc.Fill()
}

func (c *Canvas) StrokeCircle(x, y, radius, lineWidth float64, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetColor(col)
	c.dc.SetLineWidth(lineWidth)
	c.dc.DrawCircle(x, y, radius)
	return c.dc.Stroke()
}

func (c *Canvas) FillRect(x, y, w, h float64, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetColor(col)
	c.dc.DrawRectangle(x, y, w, h)
	return c.dc.Fill()
}

func (c *Canvas) StrokeRect(x, y, w, h, lineWidth float64, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetColor(col)
	c.dc.SetLineWidth(lineWidth)
	c.dc.DrawRectangle(x, y, w, h)
	return c.dc.Stroke()
}

// face returns a cached face for size. Callers hold c.mu.
func (c *Canvas) face(size float64) (text.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	if f, ok := c.faces[size]; ok {
		return f, nil
	}
	if c.font == nil {
		return nil, ErrNoFont
	}
	f := c.font.Face(size)
	c.faces[size] = f
	return f, nil
}

func (c *Canvas) FillText(s string, x, y, size float64, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := c.face(size)
	if err != nil {
		return err
	}
	c.dc.SetFont(f)
	c.dc.SetColor(col)
	c.dc.DrawStringAnchored(s, x, y, 0.5, 0.5)
	return nil
}

// StrokeText outlines s by stamping it at every offset within lineWidth
// of the anchor; gg has no glyph stroking.
func (c *Canvas) StrokeText(s string, x, y, size, lineWidth float64, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := c.face(size)
	if err != nil {
		return err
	}
	c.dc.SetFont(f)
	c.dc.SetColor(col)
	r := int(lineWidth + 0.5)
	if r < 1 {
		r = 1
	}
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			c.dc.DrawStringAnchored(s, x+float64(dx), y+float64(dy), 0.5, 0.5)
		}
	}
	return nil
}

func (c *Canvas) DrawImage(img image.Image, x, y int) error {
	if img == nil {
		return fmt.Errorf("nil image")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := gg.ImageBufFromImage(img)
	if buf == nil {
		return fmt.Errorf("unsupported image type %T", img)
	}
	c.dc.DrawImage(buf, float64(x), float64(y))
	return nil
}

func (c *Canvas) Resize(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if width == c.dc.Width() && height == c.dc.Height() {
		// gg keeps the pixmap on a same-size resize
		c.dc.Clear()
		return nil
	}
	return c.dc.Resize(width, height)
}

// Image returns a straight-alpha copy of the current frame.
func (c *Canvas) Image() image.Image {
	return c.Pixels().NRGBA()
}

// EncodePNG writes the current frame as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.dc.FlushGPU()
	return c.dc.EncodePNG(w)
}

func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.Close()
}
