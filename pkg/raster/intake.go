package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// MaxUploadSize is the default file size ceiling.
	MaxUploadSize = 10 * 1024 * 1024
	// MaxUploadPixels is the default ceiling on declared width*height.
	MaxUploadPixels = 40_000_000
)

var (
	ErrUnsupportedFormat = errors.New("please select a valid image file (JPG, PNG, WebP)")
	ErrTooLarge          = errors.New("image file must be smaller than 10MB")
	ErrTooManyPixels     = errors.New("image dimensions are too large")
)

// Format is a sniffed image container.
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
)

// Intake validates and decodes user-supplied image files.
type Intake struct {
	MaxSize      int64
	MaxPixels    int64 // 0 disables the check
	AllowedTypes []string
}

func DefaultIntake() Intake {
	return Intake{MaxSize: MaxUploadSize, MaxPixels: MaxUploadPixels, AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"}}
}

// Validate checks declared metadata before any bytes are decoded.
// contentType may be empty, in which case the file extension decides.
func (in Intake) Validate(name string, size int64, contentType string) error {
	if size > in.MaxSize {
		return ErrTooLarge
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = typeFromExt(name)
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	for _, t := range in.AllowedTypes {
		if strings.EqualFold(t, ct) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ct)
}

// Decode checks size and magic bytes, reads the header to reject images
// declaring more than MaxPixels, decodes the image and applies EXIF
// orientation for JPEG.
func (in Intake) Decode(data []byte) (image.Image, Format, error) {
	if int64(len(data)) > in.MaxSize {
		return nil, FormatUnknown, ErrTooLarge
	}
	format := Sniff(data)
	if format == FormatUnknown {
		return nil, FormatUnknown, ErrUnsupportedFormat
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("failed to load image: %w", err)
	}
	if in.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > in.MaxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, in.MaxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("failed to load image: %w", err)
	}
	if format == FormatJPEG {
		if o, err := jpegOrientation(data); err == nil && o != 1 {
			img = Orient(img, o)
		}
	}
	return img, format, nil
}

// Sniff identifies JPEG, PNG and WebP by their signatures.
func Sniff(b []byte) Format {
	switch {
	case len(b) >= 3 && bytes.Equal(b[:3], []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case len(b) >= 8 && bytes.Equal(b[:8], []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP":
		return FormatWebP
	}
	return FormatUnknown
}

func typeFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return ""
}

// OutputName derives an export file name such as "photo-edited.png" from
// a source name.
func OutputName(source, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	return base + "-" + suffix + ".png"
}

// FitRect returns the largest rectangle with img's aspect ratio that fits a
// width x height frame, centered in it.
func FitRect(srcW, srcH, width, height int) image.Rectangle {
	canvasAspect := float64(width) / float64(height)
	imageAspect := float64(srcW) / float64(srcH)
	var dw, dh, ox, oy float64
	if imageAspect > canvasAspect {
		dw = float64(width)
		dh = float64(width) / imageAspect
		oy = (float64(height) - dh) / 2
	} else {
		dh = float64(height)
		dw = float64(height) * imageAspect
		ox = (float64(width) - dw) / 2
	}
	x0, y0 := int(math.Round(ox)), int(math.Round(oy))
	w, h := int(math.Round(dw)), int(math.Round(dh))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Rect(x0, y0, x0+w, y0+h)
}

// Letterbox scales img to fit a width x height frame filled with bg,
// preserving aspect ratio and centering it.
func Letterbox(img image.Image, width, height int, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	r := FitRect(b.Dx(), b.Dy(), width, height)
	scaled := imaging.Resize(img, r.Dx(), r.Dy(), imaging.Lanczos)
	frame := imaging.New(width, height, bg)
	return imaging.Overlay(frame, scaled, r.Min, 1.0)
}
