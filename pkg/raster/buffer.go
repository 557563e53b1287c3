// Package raster owns the drawing surface: a straight-alpha RGBA pixel
// buffer plus circle, rectangle, text and image primitives.
package raster

import (
	"bytes"
	"fmt"
	"image"

	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

// Buffer is a row-major RGBA pixel buffer, one byte per channel, alpha not
// premultiplied. Pix has exactly 4*Width*Height bytes.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewBuffer(width, height int) *Buffer {
	return &Buffer{Width: width, Height: height, Pix: make([]uint8, 4*width*height)}
}

// BufferFromImage copies img into a new Buffer.
func BufferFromImage(img image.Image) *Buffer {
	n := stdimg.ToNRGBA(img)
	return &Buffer{Width: n.Rect.Dx(), Height: n.Rect.Dy(), Pix: n.Pix}
}

func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// NRGBA returns an image view sharing b's pixels. Writes through the view
// mutate b.
func (b *Buffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: b.Pix, Stride: 4 * b.Width, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Equal reports whether both buffers have the same size and bytes.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.Width == o.Width && b.Height == o.Height && bytes.Equal(b.Pix, o.Pix)
}

func (b *Buffer) validate() error {
	if b == nil {
		return fmt.Errorf("nil buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid buffer size %dx%d", b.Width, b.Height)
	}
	if len(b.Pix) != 4*b.Width*b.Height {
		return fmt.Errorf("buffer has %d bytes, want %d", len(b.Pix), 4*b.Width*b.Height)
	}
	return nil
}
