package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/promptcanvas/pkg/config"
	"github.com/Fepozopo/promptcanvas/pkg/intent"
	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
	"github.com/Fepozopo/promptcanvas/pkg/studio"
)

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			c := color.NRGBA{R: 250, G: 250, B: 250, A: 255}
			if x >= 10 && x < 30 && y >= 8 && y < 22 {
				c = color.NRGBA{B: 200, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func runScript(t *testing.T, script string) (*REPL, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Canvas.Width, cfg.Canvas.Height = 80, 60
	env, err := studio.Setup(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })

	var out bytes.Buffer
	r, err := NewREPL(env, strings.NewReader(script), &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Run(context.Background()))
	return r, out.String()
}

func TestREPLSession(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "cat.png")
	saved := filepath.Join(dir, "out.png")

	script := strings.Join([]string{
		"o " + src,
		":draw red circle 10px",
		":make it sparkle",
		"/sepia",
		"",
		"/gau 3",
		"l",
		"r",
		"s " + saved,
		"q",
		":never reached",
	}, "\n") + "\n"

	r, out := runScript(t, script)
	assert.Contains(t, out, "Opened "+src)
	assert.Contains(t, out, "Format: PNG, Width: 40, Height: 30")
	assert.Contains(t, out, "Executed: circle red r=10 at (40,30)")
	assert.Contains(t, out, intent.HelpMessage)
	assert.Contains(t, out, "Applied sepia@5")
	assert.Contains(t, out, "Applied gaussian@3")
	assert.Contains(t, out, "  1) draw red circle 10px")
	assert.Contains(t, out, "Reset to original")
	assert.Contains(t, out, "Exiting...")
	assert.Equal(t, []string{"draw red circle 10px"}, r.Studio().History())

	img, _, err := LoadImage(saved, r.env.Intake)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 60), img.Bounds())
}

func TestREPLWithoutImage(t *testing.T) {
	_, out := runScript(t, "/sepia 5\n:draw red circle\nm\nzz\n")
	assert.Contains(t, out, "No image loaded")
	assert.Contains(t, out, "No mask yet")
	assert.Contains(t, out, "unknown key 'z'")
}

func TestREPLBackgroundRemoval(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "shot.png")
	mask := filepath.Join(dir, "m.png")
	cut := filepath.Join(dir, "c.png")

	r, out := runScript(t, "o "+src+"\nb\nm "+mask+"\ns "+cut+"\nq\n")
	assert.Contains(t, out, "Background removed: 40x30")
	assert.Contains(t, out, "shot-bg-removed.png")
	assert.Contains(t, out, "Saved mask to "+mask)
	assert.NotNil(t, r.Studio().LastRemoval())
	assert.Equal(t, "shot-bg-removed.png", r.defaultSaveName())

	f, err := os.Open(cut)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
	_, err = os.Stat(mask)
	assert.NoError(t, err)
}

func TestFilterStoreResolve(t *testing.T) {
	fs := NewFilterStore(stdimg.Filters)

	name, err := fs.Resolve("1")
	require.NoError(t, err)
	assert.Equal(t, "gaussian", name)
	name, err = fs.Resolve("INV")
	require.NoError(t, err)
	assert.Equal(t, "invert", name)
	_, err = fs.Resolve("s")
	assert.ErrorContains(t, err, "ambiguous")
	_, err = fs.Resolve("99")
	assert.Error(t, err)
	_, err = fs.Resolve("oilpaint")
	assert.Error(t, err)

	tip, err := fs.Tooltip("sobel")
	require.NoError(t, err)
	assert.Contains(t, tip, "Sobel Edge")
	assert.Contains(t, tip, "current canvas")
}

func TestParseIntensity(t *testing.T) {
	v, err := ParseIntensity("")
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	v, err = ParseIntensity(" 10 ")
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	_, err = ParseIntensity("11")
	assert.Error(t, err)
	_, err = ParseIntensity("lots")
	assert.Error(t, err)
}
