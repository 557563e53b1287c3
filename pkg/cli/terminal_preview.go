package cli

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
)

// Terminal preview of the canvas. Backends, in detection order:
//   - inline: iTerm2-style OSC 1337 (iTerm2, WezTerm, Warp, VSCode, ...)
//   - kitty: kitty graphics protocol, chunked base64 in ESC _G ... ESC \
//   - sixel: piped through img2sixel
//   - chafa: block-symbol approximation for anything else
//
// PREVIEW_BACKEND forces a backend; PREVIEW_DEBUG=1 traces decisions.

type Backend string

const (
	BackendNone   Backend = ""
	BackendInline Backend = "inline"
	BackendKitty  Backend = "kitty"
	BackendSixel  Backend = "sixel"
	BackendChafa  Backend = "chafa"
)

var previewDebug bool

func init() {
	debug := os.Getenv("PREVIEW_DEBUG")
	previewDebug = debug == "1" || debug == "true"
}

func debugf(format string, args ...interface{}) {
	if previewDebug {
		fmt.Fprintf(os.Stderr, "promptcanvas-preview: "+format+"\n", args...)
	}
}

// DetectBackend picks a preview backend from environment variables as
// returned by getenv.
func DetectBackend(getenv func(string) string) Backend {
	switch strings.ToLower(getenv("PREVIEW_BACKEND")) {
	case "inline", "iterm", "wezterm":
		return BackendInline
	case "kitty":
		return BackendKitty
	case "sixel":
		return BackendSixel
	case "chafa":
		return BackendChafa
	case "none", "off":
		return BackendNone
	}

	term := strings.ToLower(getenv("TERM"))
	switch getenv("TERM_PROGRAM") {
	case "iTerm.app", "WezTerm", "Warp", "Hyper", "vscode", "VSCode", "Tabby", "Bobcat":
		return BackendInline
	}
	if getenv("ITERM_SESSION_ID") != "" || strings.Contains(term, "wezterm") || strings.Contains(term, "vscode") {
		return BackendInline
	}
	// ghostty speaks the kitty protocol
	if getenv("KITTY_WINDOW_ID") != "" || strings.Contains(term, "kitty") || strings.Contains(term, "ghostty") || getenv("KONSOLE_VERSION") != "" {
		return BackendKitty
	}
	if getenv("SIXEL_PREVIEW") == "1" || strings.Contains(term, "foot") || getenv("WT_SESSION") != "" {
		return BackendSixel
	}
	if getenv("NO_CHAFA") != "1" {
		if _, err := exec.LookPath("chafa"); err == nil {
			return BackendChafa
		}
	}
	return BackendNone
}

// PreviewSize is a placement in terminal cells.
type PreviewSize struct {
	Cols        int
	Rows        int
	PixelWidth  int
	PixelHeight int
}

const (
	cellW   = 8
	cellH   = 16
	minCols = 6
	minRows = 3
	maxCols = 80
	maxRows = 40
)

// computePreviewSize fits w x h into at most maxCols x maxRows cells,
// never scaling up.
func computePreviewSize(w, h int) PreviewSize {
	scale := math.Min(1, math.Min(float64(maxCols*cellW)/float64(w), float64(maxRows*cellH)/float64(h)))
	cols := clamp(int(math.Round(float64(w)*scale/cellW)), minCols, maxCols)
	rows := clamp(int(math.Round(float64(h)*scale/cellH)), minRows, maxRows)
	return PreviewSize{Cols: cols, Rows: rows, PixelWidth: cols * cellW, PixelHeight: rows * cellH}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Previewer renders images to a terminal.
type Previewer struct {
	Out     io.Writer
	Backend Backend
}

// NewPreviewer writes to stdout with the detected backend.
func NewPreviewer() *Previewer {
	b := DetectBackend(os.Getenv)
	debugf("backend %q", b)
	return &Previewer{Out: os.Stdout, Backend: b}
}

func (p *Previewer) Enabled() bool { return p != nil && p.Backend != BackendNone }

// Show renders img. The image is downscaled to the placement size first so
// large canvases don't flood the terminal with base64.
func (p *Previewer) Show(img image.Image) error {
	if img == nil {
		return fmt.Errorf("nil image")
	}
	if !p.Enabled() {
		return fmt.Errorf("no preview backend available")
	}
	b := img.Bounds()
	size := computePreviewSize(b.Dx(), b.Dy())
	small := imaging.Fit(img, size.PixelWidth, size.PixelHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, small); err != nil {
		return fmt.Errorf("png encode failed: %w", err)
	}
	debugf("sending %d bytes via %s (%dx%d cells)", buf.Len(), p.Backend, size.Cols, size.Rows)

	switch p.Backend {
	case BackendInline:
		return p.inline(buf.Bytes(), size)
	case BackendKitty:
		return p.kitty(buf.Bytes(), size)
	case BackendSixel:
		if err := p.pipe(buf.Bytes(), "img2sixel", "-"); err == nil {
			return nil
		}
		return p.chafa(buf.Bytes(), size)
	default:
		return p.chafa(buf.Bytes(), size)
	}
}

func (p *Previewer) inline(data []byte, size PreviewSize) error {
	enc := base64.StdEncoding.EncodeToString(data)
	_, err := fmt.Fprintf(p.Out, "\x1b]1337;File=name=preview.png;inline=1;size=%d;width=%dpx;height=%dpx;:%s\a\n",
		len(data), size.PixelWidth, size.PixelHeight, enc)
	return err
}

// kitty sends at most 4096 base64 bytes per escape; m=1 marks more chunks.
func (p *Previewer) kitty(data []byte, size PreviewSize) error {
	const chunkSize = 4096
	enc := base64.StdEncoding.EncodeToString(data)
	for pos := 0; pos < len(enc); pos += chunkSize {
		end := min(pos+chunkSize, len(enc))
		more := 0
		if end < len(enc) {
			more = 1
		}
		var err error
		if pos == 0 {
			_, err = fmt.Fprintf(p.Out, "\x1b_Ga=T,f=100,t=d,q=2,c=%d,r=%d,m=%d;%s\x1b\\", size.Cols, size.Rows, more, enc[pos:end])
		} else {
			_, err = fmt.Fprintf(p.Out, "\x1b_Gm=%d;%s\x1b\\", more, enc[pos:end])
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(p.Out)
	return err
}

func (p *Previewer) chafa(data []byte, size PreviewSize) error {
	if os.Getenv("NO_CHAFA") == "1" {
		return fmt.Errorf("chafa usage disabled via NO_CHAFA=1")
	}
	return p.pipe(data, "chafa", "--fill=block", "--symbols=block", "-s", fmt.Sprintf("%dx%d", size.Cols, size.Rows), "-")
}

func (p *Previewer) pipe(data []byte, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = p.Out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}
