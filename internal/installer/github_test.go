package installer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, release GitHubRelease) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "ComfyUI-Installer", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(release)
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestReleaseClient_LatestAsset(t *testing.T) {
	release := GitHubRelease{
		TagName: "v0.3.0",
		Assets: []ReleaseAsset{
			{Name: "source.zip", BrowserDownloadURL: "https://example.com/source.zip"},
			{Name: "ComfyUI_windows_portable_nvidia.7z", BrowserDownloadURL: "https://example.com/nvidia.7z"},
			{Name: "ComfyUI_windows_portable_amd.7z", BrowserDownloadURL: "https://example.com/amd.7z"},
		},
	}
	srv, paths := releaseServer(t, release)
	client := NewReleaseClient(srv.URL+"/", "ComfyUI-Installer", 5*time.Second)

	asset, err := client.LatestAsset(context.Background(), "comfyanonymous/ComfyUI", "", AssetMatcher{Suffix: ".7z"})
	require.NoError(t, err)
	assert.Equal(t, "ComfyUI_windows_portable_nvidia.7z", asset.Name)
	assert.Equal(t, []string{"/repos/comfyanonymous/ComfyUI/releases/latest"}, *paths)
}

func TestReleaseClient_PinnedTag(t *testing.T) {
	srv, paths := releaseServer(t, GitHubRelease{TagName: "v0.2.0"})
	client := NewReleaseClient(srv.URL, "ComfyUI-Installer", 5*time.Second)

	release, err := client.Release(context.Background(), "comfyanonymous/ComfyUI", "v0.2.0")
	require.NoError(t, err)
	assert.Equal(t, "v0.2.0", release.TagName)
	assert.Equal(t, []string{"/repos/comfyanonymous/ComfyUI/releases/tags/v0.2.0"}, *paths)
}

func TestReleaseClient_TagIsEscaped(t *testing.T) {
	var escaped string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		escaped = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(GitHubRelease{TagName: "release/1#x"})
	}))
	defer srv.Close()
	client := NewReleaseClient(srv.URL, "ComfyUI-Installer", 5*time.Second)

	release, err := client.Release(context.Background(), "comfyanonymous/ComfyUI", "release/1#x")
	require.NoError(t, err)
	assert.Equal(t, "release/1#x", release.TagName)
	assert.Equal(t, "/repos/comfyanonymous/ComfyUI/releases/tags/release%2F1%23x", escaped)
}

func TestReleaseClient_NoMatch(t *testing.T) {
	srv, _ := releaseServer(t, GitHubRelease{
		TagName: "v2.47.0.windows.1",
		Assets:  []ReleaseAsset{{Name: "Git-2.47.0-64-bit.exe", BrowserDownloadURL: "https://example.com/git.exe"}},
	})
	client := NewReleaseClient(srv.URL, "ComfyUI-Installer", 5*time.Second)

	_, err := client.LatestAsset(context.Background(), "git-for-windows/git", "",
		AssetMatcher{Contains: []string{"PortableGit", "64-bit"}, Suffix: ".7z.exe"})
	require.ErrorIs(t, err, ErrNoMatchingAsset)
}

func TestReleaseClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewReleaseClient(srv.URL, "ComfyUI-Installer", 5*time.Second)
	_, err := client.Release(context.Background(), "comfyanonymous/ComfyUI", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestAssetMatcher(t *testing.T) {
	m := AssetMatcher{Contains: []string{"PortableGit", "64-bit"}, Suffix: ".7z.exe"}

	assert.True(t, m.Match("PortableGit-2.47.0-64-bit.7z.exe"))
	assert.False(t, m.Match("PortableGit-2.47.0-32-bit.7z.exe"))
	assert.False(t, m.Match("Git-2.47.0-64-bit.exe"))
	assert.False(t, m.Match(""))
	assert.Equal(t, "*PortableGit*64-bit*.7z.exe", m.String())
	assert.Equal(t, "*.7z", AssetMatcher{Suffix: ".7z"}.String())
}
