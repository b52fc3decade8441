package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"comfy-setup/internal/logger"
)

// maxReleaseResponseSize caps the release metadata body (10MB).
const maxReleaseResponseSize = 10 * 1024 * 1024

// GitHubRelease represents the structure of a GitHub release JSON response.
type GitHubRelease struct {
	TagName string         `json:"tag_name"`
	Assets  []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is one downloadable file attached to a release.
type ReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// AssetMatcher selects a release asset by name: every Contains marker must
// appear in the name and the name must end with Suffix.
type AssetMatcher struct {
	Contains []string
	Suffix   string
}

// Match reports whether name satisfies the matcher.
func (m AssetMatcher) Match(name string) bool {
	if name == "" {
		return false
	}
	for _, marker := range m.Contains {
		if !strings.Contains(name, marker) {
			return false
		}
	}
	return strings.HasSuffix(name, m.Suffix)
}

func (m AssetMatcher) String() string {
	if len(m.Contains) == 0 {
		return "*" + m.Suffix
	}
	return fmt.Sprintf("*%s*%s", strings.Join(m.Contains, "*"), m.Suffix)
}

// ReleaseClient queries the GitHub releases API.
type ReleaseClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewReleaseClient creates a client against baseURL (normally
// https://api.github.com). The timeout bounds each metadata request.
func NewReleaseClient(baseURL, userAgent string, timeout time.Duration) *ReleaseClient {
	return &ReleaseClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

// Release fetches release metadata for repo ("owner/name"). An empty tag
// means the latest release.
func (c *ReleaseClient) Release(ctx context.Context, repo, tag string) (*GitHubRelease, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, repo)
	if tag != "" {
		// Tags may carry '/' or '#', which must stay inside one path segment.
		endpoint = fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.baseURL, repo, url.PathEscape(tag))
	}
	logger.Debug("[DEBUG] Fetching GitHub release from URL: %s\n", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET error fetching release for %s: %w", repo, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close HTTP response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub release fetch failed for %s: HTTP status %d", repo, resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReleaseResponseSize)).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode GitHub release JSON for %s: %w", repo, err)
	}
	logger.Debug("[DEBUG] Release tag: %s with %d assets\n", release.TagName, len(release.Assets))
	return &release, nil
}

// FindAsset returns the first asset of the release, in API order, accepted by m.
func (r *GitHubRelease) FindAsset(m AssetMatcher) (ReleaseAsset, error) {
	for _, asset := range r.Assets {
		logger.Debug("[DEBUG] Considering release asset: %s\n", asset.Name)
		if m.Match(asset.Name) && asset.BrowserDownloadURL != "" {
			return asset, nil
		}
	}
	return ReleaseAsset{}, fmt.Errorf("%w: %s in release %s", ErrNoMatchingAsset, m, r.TagName)
}

// LatestAsset combines Release and FindAsset.
func (c *ReleaseClient) LatestAsset(ctx context.Context, repo, tag string, m AssetMatcher) (ReleaseAsset, error) {
	release, err := c.Release(ctx, repo, tag)
	if err != nil {
		return ReleaseAsset{}, err
	}
	return release.FindAsset(m)
}
