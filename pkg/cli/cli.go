package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Fepozopo/promptcanvas/pkg/bgremove"
	"github.com/Fepozopo/promptcanvas/pkg/filter"
	"github.com/Fepozopo/promptcanvas/pkg/intent"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
	"github.com/Fepozopo/promptcanvas/pkg/studio"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "Commands available:")
	fmt.Fprintln(w, "  /  - select and apply a filter (/name [intensity])")
	fmt.Fprintln(w, "  :  - draw with a command, e.g. :draw red circle 40px")
	fmt.Fprintln(w, "  r  - reset to the original image")
	fmt.Fprintln(w, "  b  - remove the background")
	fmt.Fprintln(w, "  o  - open another image")
	fmt.Fprintln(w, "  s  - save current image")
	fmt.Fprintln(w, "  m  - save the background mask")
	fmt.Fprintln(w, "  l  - list recent commands")
	fmt.Fprintln(w, "  u  - check for updates")
	fmt.Fprintln(w, "  h  - show this help message")
	fmt.Fprintln(w, "  q  - quit")
}

// REPL is the interactive terminal editor. Each input line starts with a
// command key; the rest of the line, if any, is its argument.
type REPL struct {
	env     *studio.Env
	studio  *studio.Studio
	filters *FilterStore
	in      *bufio.Reader
	out     io.Writer

	// Preview, Fzf and Updater are optional.
	Preview *Previewer
	Fzf     bool
	Updater *Updater

	path   string
	format raster.Format
}

func NewREPL(env *studio.Env, in io.Reader, out io.Writer) (*REPL, error) {
	st, err := env.NewStudio()
	if err != nil {
		return nil, err
	}
	return &REPL{
		env:     env,
		studio:  st,
		filters: NewFilterStore(stdimg.Filters),
		in:      bufio.NewReader(in),
		out:     out,
	}, nil
}

// RunCLI runs the REPL on the terminal, opening args[0] first if given.
func RunCLI(ctx context.Context, env *studio.Env, args []string) error {
	r, err := NewREPL(env, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer r.Close()
	r.Preview = NewPreviewer()
	r.Fzf = true
	r.Updater = NewUpdater()

	if len(args) > 0 && args[0] != "" {
		if err := r.Open(args[0]); err != nil {
			return fmt.Errorf("failed to read image %s: %w", args[0], err)
		}
	}
	return r.Run(ctx)
}

func (r *REPL) Close() error { return r.studio.Close() }

func (r *REPL) Studio() *studio.Studio { return r.studio }

func (r *REPL) printf(format string, args ...any) { fmt.Fprintf(r.out, format, args...) }

// prompt reads one trimmed line.
func (r *REPL) prompt(label string) (string, error) {
	r.printf("%s", label)
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Run reads commands until q, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	r.printf("Prompt Canvas\n")
	usage(r.out)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.prompt("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input error: %w", err)
		}
		if line == "" {
			continue
		}
		key, arg := []rune(line)[0], strings.TrimSpace(string([]rune(line)[1:]))
		if key == 'q' {
			r.printf("Exiting...\n")
			return nil
		}
		if err := r.dispatch(ctx, key, arg); err != nil {
			r.report(err)
		}
	}
}

func (r *REPL) dispatch(ctx context.Context, key rune, arg string) error {
	switch key {
	case '/':
		return r.applyFilter(ctx, arg)
	case ':':
		return r.command(ctx, arg)
	case 'r':
		if err := r.studio.Reset(); err != nil {
			return err
		}
		r.printf("Reset to original\n")
		r.show()
	case 'b':
		return r.removeBackground(ctx)
	case 'o':
		return r.open(arg)
	case 's':
		return r.save(arg)
	case 'm':
		return r.saveMask(arg)
	case 'l':
		h := r.studio.History()
		if len(h) == 0 {
			r.printf("No commands yet\n")
		}
		for i, c := range h {
			r.printf("  %d) %s\n", i+1, c)
		}
	case 'u':
		return r.update(ctx)
	case 'h':
		usage(r.out)
		r.printf("Try:\n")
		for _, e := range intent.Examples {
			r.printf("  :%s\n", e)
		}
	default:
		r.printf("unknown key %q, press h for help\n", key)
	}
	return nil
}

func (r *REPL) report(err error) {
	switch {
	case errors.Is(err, intent.ErrUnrecognized):
		r.printf("%s\n", intent.HelpMessage)
	case errors.Is(err, studio.ErrNoImage):
		r.printf("No image loaded. Press 'o' to open an image first, or provide an image path as the first argument.\n")
	case errors.Is(err, filter.ErrEngineUnavailable):
		r.printf("Image processing engine not ready, try again shortly\n")
	default:
		r.printf("error: %v\n", err)
	}
}

func (r *REPL) show() {
	if !r.Preview.Enabled() {
		return
	}
	if err := r.Preview.Show(r.studio.Snapshot()); err != nil {
		debugf("preview failed: %v", err)
	}
}

// Open loads path into the studio.
func (r *REPL) Open(path string) error {
	img, format, err := LoadImage(path, r.env.Intake)
	if err != nil {
		return err
	}
	if err := r.studio.Load(path, img); err != nil {
		return err
	}
	r.path, r.format = path, format
	r.printf("Opened %s\n", path)
	r.printf("%s\n", ImageInfo(img, format))
	r.show()
	return nil
}

func (r *REPL) open(arg string) error {
	path := arg
	if path == "" && r.Fzf {
		if sel, err := SelectFileWithFzf(".", r.backend()); err == nil {
			path = sel
		}
	}
	if path == "" {
		var err error
		if path, err = r.prompt("Enter path to image to open (leave empty to cancel): "); err != nil {
			return err
		}
		if path == "" {
			r.printf("open cancelled\n")
			return nil
		}
	}
	return r.Open(path)
}

func (r *REPL) backend() Backend {
	if r.Preview == nil {
		return BackendNone
	}
	return r.Preview.Backend
}

// applyFilter accepts "/name [intensity]" or asks for both.
func (r *REPL) applyFilter(ctx context.Context, arg string) error {
	if r.studio.Dimensions() == nil {
		return studio.ErrNoImage
	}
	fields := strings.Fields(arg)
	var name string
	if len(fields) > 0 {
		var err error
		if name, err = r.filters.Resolve(fields[0]); err != nil {
			return err
		}
	} else {
		var err error
		if name, err = r.chooseFilter(); err != nil || name == "" {
			return err
		}
	}

	var raw string
	if len(fields) > 1 {
		raw = fields[1]
	} else {
		tip, _ := r.filters.Tooltip(name)
		r.printf("\n%s\n\n", tip)
		var err error
		if raw, err = r.prompt(fmt.Sprintf("intensity (%d..%d, enter for %d): ", stdimg.MinIntensity, stdimg.MaxIntensity, stdimg.DefaultIntensity)); err != nil {
			return err
		}
	}
	intensity, err := ParseIntensity(raw)
	if err != nil {
		return err
	}

	req := filter.Request{Kind: name, Intensity: intensity}
	if err := r.studio.ApplyFilter(ctx, req); err != nil {
		return err
	}
	r.printf("Applied %s\n", req)
	r.show()
	return nil
}

func (r *REPL) chooseFilter() (string, error) {
	if r.Fzf {
		if name, err := SelectFilterWithFzf(r.filters.Filters); err == nil {
			return name, nil
		}
	}
	r.printf("Filter selection:\n")
	for i, f := range r.filters.Filters {
		r.printf("  %d) %s - %s\n", i+1, f.Name, f.Description)
	}
	sel, err := r.prompt("Enter number or filter name (leave empty to cancel): ")
	if err != nil {
		return "", err
	}
	if sel == "" {
		r.printf("selection cancelled\n")
		return "", nil
	}
	return r.filters.Resolve(sel)
}

func (r *REPL) command(ctx context.Context, text string) error {
	if text == "" {
		var err error
		if text, err = r.prompt("Command: "); err != nil {
			return err
		}
		if text == "" {
			return nil
		}
	}
	in, err := r.studio.Run(ctx, text)
	if err != nil {
		return err
	}
	r.printf("Executed: %s\n", in.Describe())
	r.show()
	return nil
}

func (r *REPL) removeBackground(ctx context.Context) error {
	r.printf("Removing background (%s)...\n", r.env.Background.EngineName())
	res, err := r.studio.RemoveBackground(ctx)
	if err != nil {
		return err
	}
	cutout, mask := bgremove.OutputNames(r.studio.SourceName())
	r.printf("Background removed: %dx%d. Press s to save %s or m to save %s\n",
		res.Image.Rect.Dx(), res.Image.Rect.Dy(), cutout, mask)
	r.show()
	return nil
}

func (r *REPL) defaultSaveName() string {
	if r.studio.LastRemoval() != nil {
		cutout, _ := bgremove.OutputNames(r.studio.SourceName())
		return cutout
	}
	return raster.OutputName(r.studio.SourceName(), "edited")
}

func (r *REPL) save(arg string) error {
	if r.studio.Dimensions() == nil {
		return studio.ErrNoImage
	}
	out := arg
	if out == "" {
		def := r.defaultSaveName()
		var err error
		if out, err = r.prompt(fmt.Sprintf("Enter output filename [%s]: ", def)); err != nil {
			return err
		}
		if out == "" {
			out = def
		}
	}
	if err := SaveImage(out, r.studio.Snapshot()); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	r.printf("Saved to %s\n", out)
	return nil
}

func (r *REPL) saveMask(arg string) error {
	res := r.studio.LastRemoval()
	if res == nil {
		r.printf("No mask yet, press b to remove the background first\n")
		return nil
	}
	out := arg
	if out == "" {
		_, out = bgremove.OutputNames(r.studio.SourceName())
	}
	if err := os.WriteFile(out, res.MaskPNG, 0o644); err != nil {
		return fmt.Errorf("failed to write mask: %w", err)
	}
	r.printf("Saved mask to %s\n", out)
	return nil
}

func (r *REPL) update(ctx context.Context) error {
	if r.Updater == nil {
		r.printf("Updates are disabled\n")
		return nil
	}
	r.printf("Current version: %s\n", Version)
	latest, found, err := r.Updater.Latest(ctx)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	if !found {
		r.printf("No releases found for %s.\n", r.Updater.Repo)
		return nil
	}
	r.printf("Latest version: %s\n", latest.Version)
	if !IsNewer(Version, latest.Version) {
		r.printf("You are already running the latest version.\n")
		return nil
	}
	if latest.AssetURL == "" {
		r.printf("A new version (%s) is available but there is no downloadable asset.\n", latest.Version)
		return nil
	}
	answer, err := r.prompt(fmt.Sprintf("A new version (%s) is available. Update now? (y/N): ", latest.Version))
	if err != nil {
		return err
	}
	if a := strings.ToLower(answer); a != "y" && a != "yes" {
		r.printf("Update cancelled.\n")
		return nil
	}
	r.printf("Updating...\n")
	return r.Updater.Apply(latest)
}
