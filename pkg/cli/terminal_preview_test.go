package cli

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDetectBackend(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want Backend
	}{
		{map[string]string{"TERM_PROGRAM": "WezTerm", "TERM": "xterm-256color"}, BackendInline},
		{map[string]string{"ITERM_SESSION_ID": "w0t0p0"}, BackendInline},
		{map[string]string{"KITTY_WINDOW_ID": "1"}, BackendKitty},
		{map[string]string{"TERM": "xterm-ghostty"}, BackendKitty},
		{map[string]string{"TERM": "foot"}, BackendSixel},
		{map[string]string{"PREVIEW_BACKEND": "kitty", "TERM_PROGRAM": "WezTerm"}, BackendKitty},
		{map[string]string{"PREVIEW_BACKEND": "off", "TERM_PROGRAM": "WezTerm"}, BackendNone},
		{map[string]string{"NO_CHAFA": "1"}, BackendNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectBackend(envOf(tc.env)), "%v", tc.env)
	}
}

func TestComputePreviewSize(t *testing.T) {
	s := computePreviewSize(800, 600)
	assert.Equal(t, 80, s.Cols)
	assert.Equal(t, 30, s.Rows)

	// never scales up, but keeps a minimum placement
	s = computePreviewSize(2, 2)
	assert.Equal(t, minCols, s.Cols)
	assert.Equal(t, minRows, s.Rows)
}

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	return img
}

func TestPreviewInlineSequence(t *testing.T) {
	var out bytes.Buffer
	p := &Previewer{Out: &out, Backend: BackendInline}
	require.NoError(t, p.Show(testImage()))

	s := out.String()
	require.True(t, strings.HasPrefix(s, "\x1b]1337;File="), "%q", s)
	payload := s[strings.Index(s, ":")+1 : strings.Index(s, "\a")]
	data, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestPreviewKittyChunks(t *testing.T) {
	// noise defeats PNG compression so the payload spans several chunks
	img := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7919 % 251)
	}
	var out bytes.Buffer
	p := &Previewer{Out: &out, Backend: BackendKitty}
	require.NoError(t, p.Show(img))

	s := out.String()
	assert.True(t, strings.HasPrefix(s, "\x1b_Ga=T,f=100,"))
	assert.Contains(t, s, "m=1;")
	assert.Contains(t, s, "\x1b_Gm=0;")
}

func TestPreviewDisabled(t *testing.T) {
	p := &Previewer{Out: &bytes.Buffer{}, Backend: BackendNone}
	assert.False(t, p.Enabled())
	assert.Error(t, p.Show(testImage()))
	var nilPreviewer *Previewer
	assert.False(t, nilPreviewer.Enabled())
}
