package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"comfy-setup/internal/logger"

	"github.com/dustin/go-humanize"
)

// Fetcher retrieves a single remote resource to a local path.
// Implementations return immediately when the destination already exists.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// Downloader is the in-process Fetcher backed by net/http.
type Downloader struct {
	client    *http.Client
	userAgent string
}

// NewDownloader creates a downloader. headerTimeout bounds connecting and
// waiting for the response headers; the body itself is not time-limited
// since model files run to several gigabytes.
func NewDownloader(userAgent string, headerTimeout time.Duration) *Downloader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	transport.TLSHandshakeTimeout = headerTimeout

	return &Downloader{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Fetch downloads url to destPath. An existing destPath counts as done and
// is not inspected. The body is streamed to destPath+".part" and renamed on
// success so an interrupted download never looks complete.
func (d *Downloader) Fetch(ctx context.Context, url, destPath string) error {
	name := filepath.Base(destPath)
	if pathExists(destPath) {
		logger.Info("[INFO] File already exists: %s\n", name)
		return nil
	}

	logger.Info("[INFO] Downloading: %s\n", name)
	n, err := d.download(ctx, url, destPath)
	if err != nil {
		logger.Error("[ERROR] Error downloading %s: %v\n", name, err)
		return &DownloadError{URL: url, Cause: err}
	}
	logger.Info("[INFO] Download completed: %s (%s)\n", name, humanize.IBytes(uint64(n)))
	return nil
}

func (d *Downloader) download(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debug("[DEBUG] Failed to close response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".part"
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("write response to file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("rename temp file: %w", err)
	}
	return n, nil
}

// pathExists reports whether anything, file or directory, exists at path.
func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// relocate moves src to dst, creating dst's parent. Falls back to copy and
// remove when a rename is not possible (e.g. across volumes).
func relocate(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// copyFile copies a file from src to dst, preserving permissions.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source failed: %w", err)
	}
	if !stat.Mode().IsRegular() {
		return errors.New("copy failed: source is not a regular file")
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	defer func() {
		cerr := out.Close()
		if err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	return os.Chmod(dst, stat.Mode())
}
