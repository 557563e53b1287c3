package raster

import (
	"errors"
	"image"
	"image/color"
)

var (
	ErrSizeMismatch = errors.New("buffer size does not match surface")
	ErrNoFont       = errors.New("no font face available")
)

// Dimensions is a canvas size in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// Surface is the raster state every editing operation mutates. Text
// primitives anchor at the horizontal center and vertical middle of the
// string.
type Surface interface {
	Width() int
	Height() int

	// Pixels returns a copy of the whole buffer.
	Pixels() *Buffer
	// SetPixels replaces the whole buffer; sizes must match.
	SetPixels(buf *Buffer) error

	FillCircle(x, y, radius float64, c color.Color) error
	StrokeCircle(x, y, radius, lineWidth float64, c color.Color) error
	FillRect(x, y, w, h float64, c color.Color) error
	StrokeRect(x, y, w, h, lineWidth float64, c color.Color) error
	FillText(s string, x, y, size float64, c color.Color) error
	StrokeText(s string, x, y, size, lineWidth float64, c color.Color) error
	DrawImage(img image.Image, x, y int) error

	// Resize reallocates the surface; content becomes transparent.
	Resize(width, height int) error
	Image() image.Image
}

// Frame is a copy of a surface's native pixel storage. Restoring a Frame
// gives back exactly the pixels it was taken from.
type Frame struct {
	Width, Height int
	data          []uint8
}

// Framer is implemented by surfaces whose storage is not the straight-alpha
// Buffer layout. For those, SetPixels(Pixels()) can move semi-transparent
// pixels by a unit, so exact restores go through a Frame.
type Framer interface {
	Frame() *Frame
	RestoreFrame(f *Frame) error
}

// SizeOf returns the dimensions of s.
func SizeOf(s Surface) Dimensions {
	return Dimensions{Width: s.Width(), Height: s.Height()}
}
