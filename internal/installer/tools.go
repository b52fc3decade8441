package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"comfy-setup/internal/config"
	"comfy-setup/internal/logger"
	"comfy-setup/internal/platform"
)

// Origin tells where a resolved tool came from.
type Origin string

const (
	OriginSystem  Origin = "system"  // usable copy on PATH
	OriginCached  Origin = "cached"  // portable copy left by an earlier run
	OriginFetched Origin = "fetched" // portable copy downloaded by this run
	OriginBuiltin Origin = "builtin" // in-process implementation, nothing on disk
)

// ToolHandle is a resolved external tool. It does not change during a run.
type ToolHandle struct {
	Name   string
	Path   string // command name or absolute path; empty for builtin
	Origin Origin
}

// Owned reports whether the tool lives in our cache (and may be removed by us).
func (h ToolHandle) Owned() bool {
	return h.Origin == OriginCached || h.Origin == OriginFetched
}

// Acquisition is how a missing tool gets downloaded.
type Acquisition int

const (
	AcquireNone       Acquisition = iota // nothing to download on this platform
	AcquireRaw                           // URL is the binary itself
	AcquireZip                           // URL is a zip holding BinaryName somewhere inside
	AcquireReleaseSFX                    // latest release asset is a self-extracting 7z installer
)

// ToolSpec describes how to find or acquire one external tool.
type ToolSpec struct {
	Name string
	// Probe is the command run to test for a system install, e.g. {"git", "--version"}.
	Probe []string
	// CachePath is where the portable binary lives once acquired.
	CachePath string
	// CacheDir, when set, is the whole directory the tool unpacks into;
	// CachePath must be inside it.
	CacheDir string

	Acquire     Acquisition
	URL         string
	BinaryName  string
	ReleaseRepo string
	Asset       AssetMatcher

	// Builtin allows an in-process fallback when Acquire is AcquireNone.
	Builtin bool
}

// cacheRoot is what has to be removed to forget the cached copy.
func (s ToolSpec) cacheRoot() string {
	if s.CacheDir != "" {
		return s.CacheDir
	}
	return s.CachePath
}

// Tools groups the three tools the installer needs.
type Tools struct {
	Transfer  ToolSpec
	Extractor ToolSpec
	VCS       ToolSpec
}

const (
	sevenZipURL = "https://www.7-zip.org/a/7zr.exe"
	curlZipURL  = "https://curl.se/windows/dl-8.15.0_4/curl-8.15.0_4-win64-mingw.zip"
	gitRepo     = "git-for-windows/git"
)

// DefaultTools returns the tool specs for the current platform. Portable
// downloads exist for Windows only; elsewhere missing tools fall back to
// the builtin implementations.
func DefaultTools(l config.Layout, info *platform.Info) Tools {
	gitDir := filepath.Join(l.Base, "git_portable")
	tools := Tools{
		Transfer: ToolSpec{
			Name:      "curl",
			Probe:     []string{"curl", "--version"},
			CachePath: filepath.Join(l.Base, info.ExeName("curl")),
			Builtin:   true,
		},
		Extractor: ToolSpec{
			Name:      "7zr",
			Probe:     []string{"7zr"},
			CachePath: filepath.Join(l.Base, info.ExeName("7zr")),
			Builtin:   true,
		},
		VCS: ToolSpec{
			Name:      "git",
			Probe:     []string{"git", "--version"},
			CacheDir:  gitDir,
			CachePath: filepath.Join(gitDir, "bin", info.ExeName("git")),
			Builtin:   true,
		},
	}
	if !info.IsWindows() {
		return tools
	}

	tools.Transfer.Acquire = AcquireZip
	tools.Transfer.URL = curlZipURL
	tools.Transfer.BinaryName = "curl.exe"

	tools.Extractor.Acquire = AcquireRaw
	tools.Extractor.URL = sevenZipURL

	if marker := info.BitnessMarker(); marker != "" {
		tools.VCS.Acquire = AcquireReleaseSFX
		tools.VCS.ReleaseRepo = gitRepo
		tools.VCS.Asset = AssetMatcher{Contains: []string{"PortableGit", marker}, Suffix: ".7z.exe"}
	}
	return tools
}

// ToolResolver finds or acquires external tools.
type ToolResolver struct {
	fetcher      Fetcher
	releases     *ReleaseClient
	extractor    *Extractor
	probeTimeout time.Duration
}

// NewToolResolver creates a resolver. probeTimeout bounds each probe
// invocation so a broken binary cannot hang the run.
func NewToolResolver(fetcher Fetcher, releases *ReleaseClient, extractor *Extractor, probeTimeout time.Duration) *ToolResolver {
	return &ToolResolver{
		fetcher:      fetcher,
		releases:     releases,
		extractor:    extractor,
		probeTimeout: probeTimeout,
	}
}

// Resolve returns a usable handle for spec: the system copy, then a cached
// portable copy, then a freshly acquired one. Failure wraps ErrToolUnavailable.
func (r *ToolResolver) Resolve(ctx context.Context, spec ToolSpec) (ToolHandle, error) {
	if r.probe(ctx, spec.Probe) {
		logger.Info("[INFO] Using system %s\n", spec.Name)
		return ToolHandle{Name: spec.Name, Path: spec.Probe[0], Origin: OriginSystem}, nil
	}

	if spec.CachePath != "" && pathExists(spec.CachePath) {
		logger.Info("[INFO] Portable %s already available\n", spec.Name)
		return ToolHandle{Name: spec.Name, Path: spec.CachePath, Origin: OriginCached}, nil
	}

	var err error
	switch spec.Acquire {
	case AcquireRaw:
		err = r.acquireRaw(ctx, spec)
	case AcquireZip:
		err = r.acquireZip(ctx, spec)
	case AcquireReleaseSFX:
		err = r.acquireReleaseSFX(ctx, spec)
	default:
		if spec.Builtin {
			logger.Info("[INFO] Using builtin %s\n", spec.Name)
			return ToolHandle{Name: spec.Name, Origin: OriginBuiltin}, nil
		}
		err = errors.New("no portable distribution for this platform")
	}
	if err != nil {
		logger.Error("[ERROR] Error setting up %s: %v\n", spec.Name, err)
		return ToolHandle{}, fmt.Errorf("%w: %s: %w", ErrToolUnavailable, spec.Name, err)
	}

	logger.Info("[INFO] %s ready at %s\n", spec.Name, spec.CachePath)
	return ToolHandle{Name: spec.Name, Path: spec.CachePath, Origin: OriginFetched}, nil
}

// probe runs the probe command with output discarded; exit status 0 means usable.
func (r *ToolResolver) probe(ctx context.Context, probe []string) bool {
	if len(probe) == 0 {
		return false
	}
	timeout := r.probeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, probe[0], probe[1:]...)
	err := cmd.Run()
	logger.Debug("[DEBUG] Probe %s: %v\n", strings.Join(probe, " "), err)
	return err == nil
}

func (r *ToolResolver) acquireRaw(ctx context.Context, spec ToolSpec) error {
	logger.Info("[INFO] Downloading %s...\n", spec.Name)
	if err := r.fetcher.Fetch(ctx, spec.URL, spec.CachePath); err != nil {
		return err
	}
	if err := makeExecutable(spec.CachePath); err != nil {
		removeQuietly(spec.CachePath)
		return err
	}
	return nil
}

func (r *ToolResolver) acquireZip(ctx context.Context, spec ToolSpec) error {
	staging, err := r.stagingDir(spec)
	if err != nil {
		return err
	}
	defer removeQuietly(staging)

	logger.Info("[INFO] Downloading %s...\n", spec.Name)
	archive := filepath.Join(staging, spec.Name+".zip")
	if err := r.fetcher.Fetch(ctx, spec.URL, archive); err != nil {
		return err
	}

	logger.Info("[INFO] Extracting %s...\n", spec.Name)
	unpacked := filepath.Join(staging, "unpacked")
	if err := r.extractor.Extract(ctx, archive, ToolHandle{Name: "zip", Origin: OriginBuiltin}, unpacked); err != nil {
		return err
	}

	binary, err := Locate(unpacked, spec.BinaryName)
	if err != nil {
		return err
	}
	if err := relocate(binary, spec.CachePath); err != nil {
		return fmt.Errorf("relocate %s: %w", spec.BinaryName, err)
	}
	if err := makeExecutable(spec.CachePath); err != nil {
		removeQuietly(spec.CachePath)
		return err
	}
	return nil
}

func (r *ToolResolver) acquireReleaseSFX(ctx context.Context, spec ToolSpec) error {
	if r.releases == nil {
		return errors.New("no release client configured")
	}
	asset, err := r.releases.LatestAsset(ctx, spec.ReleaseRepo, "", spec.Asset)
	if err != nil {
		return err
	}

	staging, err := r.stagingDir(spec)
	if err != nil {
		return err
	}
	defer removeQuietly(staging)

	logger.Info("[INFO] Downloading %s...\n", asset.Name)
	installer := filepath.Join(staging, asset.Name)
	if err := r.fetcher.Fetch(ctx, asset.BrowserDownloadURL, installer); err != nil {
		return err
	}
	if err := makeExecutable(installer); err != nil {
		return err
	}

	logger.Info("[INFO] Extracting %s...\n", spec.Name)
	unpacked := filepath.Join(staging, "unpacked")
	if err := r.extractor.ExtractSelf(ctx, installer, unpacked); err != nil {
		return err
	}

	rel, err := filepath.Rel(spec.CacheDir, spec.CachePath)
	if err != nil {
		return fmt.Errorf("cache path %s is not inside %s: %w", spec.CachePath, spec.CacheDir, err)
	}
	if !pathExists(filepath.Join(unpacked, rel)) {
		return fmt.Errorf("%s not found in extracted files", filepath.Base(spec.CachePath))
	}

	// A cache dir without the binary is leftover from an interrupted run.
	removeQuietly(spec.CacheDir)
	if err := os.Rename(unpacked, spec.CacheDir); err != nil {
		return fmt.Errorf("move %s into place: %w", spec.Name, err)
	}
	return nil
}

// stagingDir creates a private scratch directory next to the cache entry,
// so the final move is a same-volume rename.
func (r *ToolResolver) stagingDir(spec ToolSpec) (string, error) {
	parent := filepath.Dir(spec.cacheRoot())
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", parent, err)
	}
	dir, err := os.MkdirTemp(parent, "."+spec.Name+"-staging-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	return dir, nil
}

func makeExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, 0o755)
}
