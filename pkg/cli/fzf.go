package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
)

// SelectFilterWithFzf lists filters in fzf and returns the chosen name.
func SelectFilterWithFzf(filters []stdimg.FilterSpec) (string, error) {
	var b strings.Builder
	for _, f := range filters {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Description)
	}

	cmd := exec.Command("fzf", "--prompt=Filter> ")
	cmd.Stdin = strings.NewReader(b.String())
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("error running fzf: %w", err)
	}

	name, _, _ := strings.Cut(strings.TrimSpace(out.String()), ":")
	if name = strings.TrimSpace(name); name == "" {
		return "", fmt.Errorf("no filter selected")
	}
	return name, nil
}

// previewCommand is the fzf --preview renderer for the given backend. Each
// chain falls back to chafa.
func previewCommand(b Backend) string {
	const chafa = "chafa --fill=block --symbols=block -s 80x40 {} 2>/dev/null"
	switch b {
	case BackendKitty:
		return `printf "\x1b_Ga=d\x1b\\"; kitty +kitten icat --silent {} 2>/dev/null || ` + chafa
	case BackendInline:
		return "imgcat {} 2>/dev/null || " + chafa
	case BackendSixel:
		return "img2sixel {} 2>/dev/null || " + chafa
	default:
		return chafa
	}
}

// SelectFileWithFzf pipes image files under startDir into fzf. It needs
// find, bash and fzf on PATH.
func SelectFileWithFzf(startDir string, backend Backend) (string, error) {
	cmdStr := fmt.Sprintf(
		"find %s -type f \\( -iname '*.jpg' -o -iname '*.jpeg' -o -iname '*.png' -o -iname '*.webp' \\) | fzf --height 100%% --border --prompt='Files> ' --ansi --preview=%q --preview-window='right:60%%'",
		strconv.Quote(startDir),
		previewCommand(backend),
	)
	cmd := exec.Command("bash", "-lc", cmdStr)
	var out bytes.Buffer
	cmd.Stdout = &out

	err := cmd.Run()
	if backend == BackendKitty {
		clearKittyImages()
	}
	if err != nil {
		return "", fmt.Errorf("error running fzf for files: %w", err)
	}

	selection := strings.TrimSpace(out.String())
	if selection == "" {
		return "", fmt.Errorf("no file selected")
	}
	return selection, nil
}

// clearKittyImages deletes images the fzf previewer left on screen.
func clearKittyImages() {
	fmt.Fprint(os.Stdout, "\x1b_Ga=d\x1b\\")
}
