package stdimg

import (
	"errors"
	"fmt"
)

// ErrUnknownFilter is returned for names missing from Filters.
var ErrUnknownFilter = errors.New("unknown filter")

// GaussianParams maps the intensity dial to an odd kernel size and sigma.
func GaussianParams(intensity int) (ksize int, sigma float64) {
	ksize = 2*intensity + 1
	if ksize < 1 {
		ksize = 1
	}
	return ksize, float64(intensity)
}

// SobelScale maps the intensity dial to the derivative scale.
func SobelScale(intensity int) float64 {
	return float64(intensity) / 5
}

// PointFilter returns the per-pixel transform for a pointwise filter.
func PointFilter(name string, intensity int) (PointFunc, error) {
	switch name {
	case "sepia":
		return Sepia, nil
	case "grayscale":
		return Grayscale, nil
	case "brightness":
		return Brightness(float64((intensity - 5) * 10)), nil
	case "contrast":
		f := float64(intensity) / 5
		return Contrast(f * f), nil
	case "invert":
		return Invert, nil
	default:
		if spec, ok := LookupFilter(name); ok {
			return nil, fmt.Errorf("%s is not a pointwise filter", spec.Name)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}
}
