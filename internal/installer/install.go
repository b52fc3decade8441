package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"comfy-setup/internal/logger"

	"github.com/dustin/go-humanize"
)

// AppStatus is the outcome of the main application stage.
type AppStatus string

const (
	AppPresent   AppStatus = "present"   // already on disk, nothing done
	AppInstalled AppStatus = "installed" // installed by this run
	AppFailed    AppStatus = "failed"
	AppSkipped   AppStatus = "skipped" // stage not selected
)

// InstallApp installs the main application archive unless its root
// directory already exists. Every error it returns is fatal for the run.
//
// Transient files (the archive, and the transfer client and extractor when
// this run staged them) are removed on success and failure alike.
func (o *Orchestrator) InstallApp(ctx context.Context) (AppStatus, error) {
	if pathExists(o.layout.AppRoot) {
		logger.Info("[INFO] ComfyUI is already installed\n")
		return AppPresent, nil
	}

	logger.Info("[INFO] Starting ComfyUI installation...\n")
	if err := os.MkdirAll(o.layout.Base, 0o755); err != nil {
		return AppFailed, fmt.Errorf("create base dir: %w", err)
	}

	// Cleanup hooks run in order once the stage ends, whatever the outcome.
	// Each reports whether it actually removed something.
	var transient []func() bool
	defer func() {
		removed := false
		for _, clean := range transient {
			if clean() {
				removed = true
			}
		}
		if removed {
			logger.Info("[INFO] Temporary files removed\n")
		}
	}()

	// Both tools must be usable before anything is downloaded.
	transfer, err := o.resolver.Resolve(ctx, o.tools.Transfer)
	if err != nil {
		return AppFailed, fmt.Errorf("failed to setup %s: %w", o.tools.Transfer.Name, err)
	}
	transient = append(transient, func() bool { return releaseTool(o.tools.Transfer, transfer) })

	extractor, err := o.resolver.Resolve(ctx, o.tools.Extractor)
	if err != nil {
		return AppFailed, fmt.Errorf("failed to setup %s: %w", o.tools.Extractor.Name, err)
	}
	transient = append(transient, func() bool { return releaseTool(o.tools.Extractor, extractor) })

	logger.Info("[INFO] Getting latest ComfyUI version...\n")
	asset, err := o.releases.LatestAsset(ctx, o.cfg.App.ReleaseRepo, o.cfg.App.ReleaseTag, AssetMatcher{Suffix: o.cfg.App.AssetSuffix})
	if err != nil {
		return AppFailed, fmt.Errorf("could not get latest version: %w", err)
	}
	if asset.Name != filepath.Base(asset.Name) || !filepath.IsLocal(asset.Name) {
		return AppFailed, fmt.Errorf("release asset name %q is not a plain file name", asset.Name)
	}

	// The archive lands in the base directory and never outlives the stage.
	archive := filepath.Join(o.layout.Base, asset.Name)
	transient = append(transient, func() bool {
		existed := pathExists(archive)
		removeQuietly(archive)
		return existed
	})

	logger.Info("[INFO] Downloading %s...\n", asset.Name)
	if err := NewTransferFetcher(transfer, o.downloader).Fetch(ctx, asset.BrowserDownloadURL, archive); err != nil {
		return AppFailed, err
	}

	if err := checkArchiveSize(archive, o.cfg.App.MinArchiveSize); err != nil {
		logger.Error("[ERROR] Invalid file (too small): %s\n", asset.Name)
		removeQuietly(archive)
		return AppFailed, err
	}

	// Unpack into a private staging dir so a failed extraction never leaves
	// a partial app root behind; only the rename below publishes it.
	logger.Info("[INFO] Extracting %s...\n", asset.Name)
	staging, err := os.MkdirTemp(o.layout.Base, ".comfyui-staging-")
	if err != nil {
		return AppFailed, fmt.Errorf("create staging dir: %w", err)
	}
	defer removeQuietly(staging)

	if err := o.extractor.Extract(ctx, archive, extractor, staging); err != nil {
		return AppFailed, err
	}

	unpacked := filepath.Join(staging, o.cfg.App.DirName)
	if !pathExists(unpacked) {
		return AppFailed, &ExtractError{Archive: archive, Cause: fmt.Errorf("archive did not contain %s", o.cfg.App.DirName)}
	}
	if err := os.Rename(unpacked, o.layout.AppRoot); err != nil {
		return AppFailed, fmt.Errorf("move %s into place: %w", o.cfg.App.DirName, err)
	}

	logger.Info("[INFO] ComfyUI installed successfully!\n")
	return AppInstalled, nil
}

// checkArchiveSize rejects files smaller than minSize bytes.
func checkArchiveSize(path string, minSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < minSize {
		return fmt.Errorf("%w: %s is %s, expected at least %s", ErrArchiveTooSmall,
			filepath.Base(path), humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(minSize)))
	}
	return nil
}
