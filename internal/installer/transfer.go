package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"comfy-setup/internal/logger"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// TransferFetcher downloads through the resolved transfer client (curl).
// A builtin handle delegates to the in-process Downloader.
type TransferFetcher struct {
	tool     ToolHandle
	fallback Fetcher
}

// NewTransferFetcher binds a fetcher to a resolved transfer tool.
func NewTransferFetcher(tool ToolHandle, fallback Fetcher) *TransferFetcher {
	return &TransferFetcher{tool: tool, fallback: fallback}
}

// Fetch follows redirects and fails on HTTP errors. Like the in-process
// downloader it writes to a ".part" file first and renames on success.
func (t *TransferFetcher) Fetch(ctx context.Context, url, destPath string) error {
	if t.tool.Origin == OriginBuiltin {
		return t.fallback.Fetch(ctx, url, destPath)
	}

	name := filepath.Base(destPath)
	if pathExists(destPath) {
		logger.Info("[INFO] File already exists: %s\n", name)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return &DownloadError{URL: url, Cause: fmt.Errorf("create dest dir: %w", err)}
	}

	progress := "--silent"
	if term.IsTerminal(int(os.Stdout.Fd())) {
		progress = "--progress-bar"
	}
	tmpPath := destPath + ".part"
	cmd := exec.CommandContext(ctx, t.tool.Path, "-L", progress, "--fail", "-o", tmpPath, url)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	logger.Info("[INFO] Downloading %s...\n", name)
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		removeQuietly(tmpPath)
		return &DownloadError{URL: url, Cause: fmt.Errorf("%s failed: %w", t.tool.Name, err)}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		removeQuietly(tmpPath)
		return &DownloadError{URL: url, Cause: fmt.Errorf("rename temp file: %w", err)}
	}

	if info, err := os.Stat(destPath); err == nil {
		logger.Info("[INFO] Download completed: %s (%s)\n", name, humanize.IBytes(uint64(info.Size())))
	}
	return nil
}
