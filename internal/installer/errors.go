package installer

import (
	"errors"
	"fmt"
)

var (
	// ErrToolUnavailable means no usable copy of an external tool could be
	// found on PATH, in the local cache, or downloaded.
	ErrToolUnavailable = errors.New("tool unavailable")
	// ErrNoMatchingAsset means a release had no asset matching the wanted pattern.
	ErrNoMatchingAsset = errors.New("no matching release asset")
	// ErrArchiveTooSmall means a downloaded archive is below the plausible size.
	ErrArchiveTooSmall = errors.New("archive too small")
)

// DownloadError reports a failed retrieval of URL.
type DownloadError struct {
	URL   string
	Cause error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Cause)
}

func (e *DownloadError) Unwrap() error { return e.Cause }

// ExtractError reports a failed extraction of Archive.
type ExtractError struct {
	Archive string
	Cause   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Cause)
}

func (e *ExtractError) Unwrap() error { return e.Cause }
