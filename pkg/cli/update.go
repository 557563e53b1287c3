package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

// Version is set at build time with -ldflags "-X ...cli.Version=1.2.3".
var Version = "dev"

const Repo = "Fepozopo/promptcanvas"

var semverRe = regexp.MustCompile(`v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?`)

type ghRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Updater finds and installs newer releases from GitHub.
type Updater struct {
	Repo    string
	APIBase string
	Client  *http.Client
}

func NewUpdater() *Updater {
	return &Updater{
		Repo:    Repo,
		APIBase: "https://api.github.com",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Latest returns the highest published semver release. Tag names only need
// to contain a version somewhere, so "promptcanvas-v1.2.0" works.
func (u *Updater) Latest(ctx context.Context) (*selfupdate.Release, bool, error) {
	url := fmt.Sprintf("%s/repos/%s/releases", strings.TrimRight(u.APIBase, "/"), u.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("github API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed reading github response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("github API returned status %d: %s", resp.StatusCode, string(body))
	}

	var releases []ghRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, false, fmt.Errorf("failed to decode github releases: %w", err)
	}
	r, ok := pickRelease(releases)
	return r, ok, nil
}

func pickRelease(releases []ghRelease) (*selfupdate.Release, bool) {
	type candidate struct {
		ver      semver.Version
		assetURL string
	}
	var candidates []candidate
	for _, r := range releases {
		if r.Draft || r.Prerelease {
			continue
		}
		match := semverRe.FindString(r.TagName)
		if match == "" {
			match = semverRe.FindString(r.Name)
		}
		if match == "" {
			continue
		}
		v, err := semver.Parse(strings.TrimPrefix(match, "v"))
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{ver: v, assetURL: pickAsset(r)})
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ver.GT(candidates[j].ver) })
	best := candidates[0]
	return &selfupdate.Release{Version: best.ver, AssetURL: best.assetURL}, true
}

// pickAsset prefers an asset built for a known platform, else the first one.
func pickAsset(r ghRelease) string {
	url := ""
	for _, a := range r.Assets {
		n := strings.ToLower(a.Name)
		for _, hint := range []string{"darwin", "linux", "windows", "amd64", "arm64"} {
			if strings.Contains(n, hint) {
				return a.BrowserDownloadURL
			}
		}
		if url == "" {
			url = a.BrowserDownloadURL
		}
	}
	return url
}

// IsNewer reports whether latest is newer than current. An unparseable
// current version (such as "dev") counts as older.
func IsNewer(current string, latest semver.Version) bool {
	cur, err := semver.ParseTolerant(current)
	if err != nil {
		return true
	}
	return latest.GT(cur)
}

// Apply replaces the running executable and re-executes it.
func (u *Updater) Apply(r *selfupdate.Release) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate executable: %w", err)
	}
	if err := selfupdate.UpdateTo(r.AssetURL, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	argv := append([]string{exe}, os.Args[1:]...)
	if err := syscall.Exec(exe, argv, os.Environ()); err != nil {
		cmd := exec.Command(exe, os.Args[1:]...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if startErr := cmd.Start(); startErr != nil {
			return fmt.Errorf("updated to %s but restart failed, please restart manually: %w", r.Version, err)
		}
		os.Exit(0)
	}
	return nil
}
