package cli

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fepozopo/promptcanvas/pkg/raster"
)

// LoadImage reads and decodes an image file under the intake rules.
func LoadImage(path string, in raster.Intake) (image.Image, raster.Format, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, raster.FormatUnknown, err
	}
	if st.IsDir() {
		return nil, raster.FormatUnknown, fmt.Errorf("%s is a directory", path)
	}
	if err := in.Validate(path, st.Size(), ""); err != nil {
		return nil, raster.FormatUnknown, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, raster.FormatUnknown, err
	}
	return in.Decode(b)
}

// SaveImage writes img with the format implied by the extension. Anything
// but .jpg/.jpeg is written as PNG, which keeps transparency.
func SaveImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 92})
	default:
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ImageInfo is a one-line size summary.
func ImageInfo(img image.Image, format raster.Format) string {
	if img == nil {
		return "no image"
	}
	b := img.Bounds()
	name := strings.ToUpper(string(format))
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("Format: %s, Width: %d, Height: %d", name, b.Dx(), b.Dy())
}
