package state

import (
	"crypto/rand"
	"encoding/json" // For JSON encoding of the run report
	"fmt"
	"os"
	"path/filepath"
	"time"

	"comfy-setup/internal/logger"

	"github.com/oklog/ulid/v2"
)

// Counts is the attempted/succeeded tally of a multi-item stage.
type Counts struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// Report records what a single run did. It is written for the operator and
// never read back: the filesystem alone decides what is already installed.
type Report struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	State       string    `json:"state"`         // final orchestrator state, e.g. "done" or "fatal"
	App         string    `json:"app"`           // "installed", "present" or "failed"
	AppError    string    `json:"app_error,omitempty"`
	CustomNodes Counts    `json:"custom_nodes"`
	Models      Counts    `json:"models"`
}

// NewRunID returns a lexically sortable identifier for a run.
func NewRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// SaveReport writes the report as indented JSON, creating parent directories.
func SaveReport(path string, r *Report) error {
	file, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	logger.Debug("[DEBUG] Writing run report to %s:\n%s\n", path, string(file))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, file, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
