package intent

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/promptcanvas/pkg/raster"
)

func TestParseCircle(t *testing.T) {
	in, ok := Parse("draw red circle 80px", &raster.Dimensions{Width: 800, Height: 600})
	require.True(t, ok)
	require.True(t, in.Valid())
	assert.Equal(t, KindDrawCircle, in.Kind)
	assert.Equal(t, &Circle{X: 400, Y: 300, Radius: 80, Color: "red"}, in.Circle)
}

func TestParseCircleDefaults(t *testing.T) {
	in, ok := Parse("  write a dark CIRCLE ", nil)
	require.True(t, ok)
	assert.Equal(t, KindDrawCircle, in.Kind, "circle rule outranks brightness and text")
	assert.Equal(t, &Circle{X: 400, Y: 300, Radius: DefaultRadius, Color: "blue"}, in.Circle)
}

func TestParseCircleCentersOnCanvas(t *testing.T) {
	in, ok := Parse("circle", &raster.Dimensions{Width: 301, Height: 100})
	require.True(t, ok)
	assert.Equal(t, 150.5, in.Circle.X)
	assert.Equal(t, 50.0, in.Circle.Y)
}

func TestParseRectangle(t *testing.T) {
	tests := []struct {
		text string
		want Rectangle
	}{
		{"draw blue rectangle 80px", Rectangle{X: 350, Y: 250, Width: 80, Height: 80, Color: "blue"}},
		{"a square", Rectangle{X: 350, Y: 250, Width: 100, Height: 100, Color: "green"}},
		{"square 0 px", Rectangle{X: 350, Y: 250, Width: 100, Height: 100, Color: "green"}},
		{"rectangle 12 pixels pink", Rectangle{X: 350, Y: 250, Width: 12, Height: 12, Color: "pink"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			in, ok := Parse(tt.text, &raster.Dimensions{Width: 800, Height: 600})
			require.True(t, ok)
			require.Equal(t, KindDrawRectangle, in.Kind)
			assert.Equal(t, tt.want, *in.Rectangle)
		})
	}
}

func TestParseBrightness(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"brighten image 30%", 30},
		{"darken 15%", -15},
		{"darken image", -20},
		{"brighter", 20},
		{"bright but dim 40%", -40},
		{"bright 0%", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			in, ok := Parse(tt.text, nil)
			require.True(t, ok)
			require.Equal(t, KindAdjustBrightness, in.Kind)
			assert.Equal(t, tt.want, in.Brightness.Delta)
		})
	}
}

func TestParseText(t *testing.T) {
	in, ok := Parse(`add text "Hi"`, nil)
	require.True(t, ok)
	require.Equal(t, KindAddText, in.Kind)
	assert.Equal(t, &Text{X: 400, Y: 300, Text: "Hi", Color: "white", FontSize: 24}, in.Text)

	in, ok = Parse("write something in yellow", &raster.Dimensions{Width: 200, Height: 100})
	require.True(t, ok)
	assert.Equal(t, &Text{X: 100, Y: 50, Text: DefaultText, Color: "yellow", FontSize: 24}, in.Text)
}

func TestParseUnrecognized(t *testing.T) {
	for _, s := range []string{"do a backflip", "", "   "} {
		_, ok := Parse(s, nil)
		assert.False(t, ok, s)
		_, err := ParseCommand(s, nil)
		assert.ErrorIs(t, err, ErrUnrecognized)
	}
}

func TestExamplesParse(t *testing.T) {
	for _, ex := range Examples {
		in, ok := Parse(ex, nil)
		assert.True(t, ok, ex)
		assert.True(t, in.Valid(), ex)
	}
}

func TestDescribe(t *testing.T) {
	in, _ := Parse("darken 15%", nil)
	assert.Equal(t, "brightness -15%", in.Describe())
	in, _ = Parse("red circle", nil)
	assert.Equal(t, "circle red r=50 at (400,300)", in.Describe())
}

func TestHistoryKeepsLastFive(t *testing.T) {
	var h History
	for i := 0; i < 7; i++ {
		h.Add(fmt.Sprintf("cmd %d", i))
	}
	assert.Equal(t, []string{"cmd 2", "cmd 3", "cmd 4", "cmd 5", "cmd 6"}, h.Entries())

	h.Add("cmd 6")
	assert.Equal(t, "cmd 6", h.Entries()[HistorySize-1])
	assert.Equal(t, "cmd 6", h.Entries()[HistorySize-2])
}

func TestHistoryConcurrentAdd(t *testing.T) {
	var h History
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Add(fmt.Sprint(i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, HistorySize, h.Len())
}
