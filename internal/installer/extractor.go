package installer

import (
	"archive/tar"    // For reading .tar archives
	"archive/zip"    // For reading .zip archives
	"compress/bzip2" // For reading .bz2 compressed data
	"compress/gzip"  // For reading .gz compressed data
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"comfy-setup/internal/logger"

	"github.com/bodgit/sevenzip" // For reading .7z archives
	"github.com/xi2/xz"          // For reading .xz compressed data
)

// Extractor unpacks archives, either with an external 7-Zip style tool or
// in-process when the extractor handle is builtin.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks archive into destDir using tool. Failures are returned as
// *ExtractError and are not retried.
func (e *Extractor) Extract(ctx context.Context, archive string, tool ToolHandle, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &ExtractError{Archive: archive, Cause: fmt.Errorf("create dest dir: %w", err)}
	}

	if tool.Origin == OriginBuiltin {
		logger.Debug("[DEBUG] Extracting %s in-process to %s\n", archive, destDir)
		if err := extractArchive(archive, destDir); err != nil {
			return &ExtractError{Archive: archive, Cause: err}
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, tool.Path, "x", archive, "-o"+destDir, "-bso0", "-y")
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	if output, err := cmd.CombinedOutput(); err != nil {
		return &ExtractError{Archive: archive, Cause: fmt.Errorf("%s failed: %w\nOutput: %s", tool.Name, err, output)}
	}
	return nil
}

// ExtractSelf runs a self-extracting 7-Zip installer, unpacking into destDir.
func (e *Extractor) ExtractSelf(ctx context.Context, installer, destDir string) error {
	cmd := exec.CommandContext(ctx, installer, "-o"+destDir, "-y")
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	if output, err := cmd.CombinedOutput(); err != nil {
		return &ExtractError{Archive: installer, Cause: fmt.Errorf("%w\nOutput: %s", err, output)}
	}
	return nil
}

// Locate walks root and returns the first regular file named filename.
func Locate(root, filename string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == filename {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%s not found under %s", filename, root)
	}
	logger.Debug("[DEBUG] Located %s at %s\n", filename, found)
	return found, nil
}

// extractArchive routes to the appropriate extraction function based on archive type.
func extractArchive(src, dest string) error {
	name := strings.ToLower(src)
	switch {
	case strings.HasSuffix(name, ".zip"):
		logger.Debug("[DEBUG] compression type is zip\n")
		return extractZip(src, dest)
	case strings.HasSuffix(name, ".7z"):
		logger.Debug("[DEBUG] compression type is .7z\n")
		return extract7z(src, dest)
	case strings.HasSuffix(name, ".tar"), strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"),
		strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tar.xz"):
		logger.Debug("[DEBUG] compression type is .tar.*\n")
		return extractTarArchive(src, dest)
	default:
		return fmt.Errorf("unsupported archive format: %s", src)
	}
}

// entryPath joins an archive entry name onto dest, rejecting names that
// would land outside dest.
func entryPath(dest, name string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(name, "./"))
	if rel == "" || rel == "." {
		return dest, nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}
	return filepath.Join(dest, rel), nil
}

// writeEntry creates target with mode and copies r into it.
func writeEntry(target string, mode fs.FileMode, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// extractTarArchive handles tar and compressed tar variants
func extractTarArchive(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f
	name := strings.ToLower(src)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gr.Close()
		reader = gr
	case strings.HasSuffix(name, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(name, ".tar.xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, hdr.FileInfo().Mode(), tr); err != nil {
				return err
			}
		default:
			logger.Debug("[DEBUG] Skipping tar entry %s of type %c\n", hdr.Name, hdr.Typeflag)
		}
	}
}

// extractZip extracts a .zip archive
func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(target, f.Mode(), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// extract7z handles .7z extraction using the sevenzip library
func extract7z(src, dest string) error {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(target, f.Mode(), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
