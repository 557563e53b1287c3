package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blang/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releasesJSON = `[
  {"tag_name": "v1.3.0-rc.1", "prerelease": true, "assets": []},
  {"tag_name": "promptcanvas-v1.2.0", "assets": [
    {"name": "checksums.txt", "browser_download_url": "https://example.test/sums"},
    {"name": "promptcanvas_linux_amd64.tar.gz", "browser_download_url": "https://example.test/linux"}
  ]},
  {"tag_name": "nightly", "name": "Release 1.1.9", "assets": [
    {"name": "bundle.zip", "browser_download_url": "https://example.test/bundle"}
  ]},
  {"tag_name": "v2.0.0", "draft": true}
]`

func TestLatestPicksHighestPublishedRelease(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/"+Repo+"/releases", r.URL.Path)
		_, _ = w.Write([]byte(releasesJSON))
	}))
	defer ts.Close()

	u := NewUpdater()
	u.APIBase = ts.URL
	rel, ok, err := u.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.2.0", rel.Version.String())
	assert.Equal(t, "https://example.test/linux", rel.AssetURL)
}

func TestLatestReportsHTTPErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer ts.Close()

	u := NewUpdater()
	u.APIBase = ts.URL
	_, _, err := u.Latest(context.Background())
	assert.ErrorContains(t, err, "403")
}

func TestPickReleaseNone(t *testing.T) {
	_, ok := pickRelease([]ghRelease{{TagName: "latest"}, {TagName: "v1.0.0", Draft: true}})
	assert.False(t, ok)
}

func TestIsNewer(t *testing.T) {
	v := semver.MustParse("1.2.0")
	assert.True(t, IsNewer("dev", v))
	assert.True(t, IsNewer("v1.1.9", v))
	assert.False(t, IsNewer("1.2.0", v))
	assert.False(t, IsNewer("1.3.0", v))
}
