// Package stdimg: authoritative registry of canvas filters.
//
// The filter pipeline in pkg/filter dispatches on these names. Keep this list
// in sync with it so callers (CLI, HTTP, help text) can read a single source
// of truth.

package stdimg

import "strings"

// Family tells whether a filter reads the live canvas through an external
// engine or restores the baseline and runs inline pixel math.
type Family string

const (
	FamilyEngine    Family = "engine"
	FamilyPointwise Family = "pointwise"
)

const (
	MinIntensity     = 1
	MaxIntensity     = 10
	DefaultIntensity = 5
)

// FilterSpec defines a single filter and how its intensity dial is mapped.
type FilterSpec struct {
	Name        string
	Label       string
	Family      Family
	Intensity   string // how the 1..10 dial maps to parameters (help only)
	Description string
}

// Filters is the authoritative list of filters, in menu order.
var Filters = []FilterSpec{
	{
		Name:        "gaussian",
		Label:       "Gaussian Blur",
		Family:      FamilyEngine,
		Intensity:   "kernel 2i+1, sigma i",
		Description: "Gaussian blur of the current canvas.",
	},
	{
		Name:        "sobel",
		Label:       "Sobel Edge",
		Family:      FamilyEngine,
		Intensity:   "gradient scale i/5",
		Description: "Gradient magnitude of the grayscale canvas.",
	},
	{
		Name:        "sharpen",
		Label:       "Sharpen",
		Family:      FamilyEngine,
		Intensity:   "3x3 kernel, edges -i/10, center 1+i/2.5",
		Description: "3x3 sharpening convolution of the current canvas.",
	},
	{
		Name:        "sepia",
		Label:       "Sepia",
		Family:      FamilyPointwise,
		Intensity:   "unused",
		Description: "Sepia tone from the original image.",
	},
	{
		Name:        "grayscale",
		Label:       "Grayscale",
		Family:      FamilyPointwise,
		Intensity:   "unused",
		Description: "BT.601 luma from the original image.",
	},
	{
		Name:        "brightness",
		Label:       "Brightness",
		Family:      FamilyPointwise,
		Intensity:   "add (i-5)*10 per channel",
		Description: "Brighten or darken the original image.",
	},
	{
		Name:        "contrast",
		Label:       "Contrast",
		Family:      FamilyPointwise,
		Intensity:   "factor (i/5)^2 around 128",
		Description: "Stretch or flatten contrast of the original image.",
	},
	{
		Name:        "invert",
		Label:       "Invert",
		Family:      FamilyPointwise,
		Intensity:   "unused",
		Description: "Negative of the original image.",
	},
}

// LookupFilter finds a filter by case-insensitive name.
func LookupFilter(name string) (FilterSpec, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, f := range Filters {
		if f.Name == n {
			return f, true
		}
	}
	return FilterSpec{}, false
}
