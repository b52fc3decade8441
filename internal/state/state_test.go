package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	a := NewRunID()
	b := NewRunID()

	_, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSaveReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "last-run.json")
	r := &Report{
		RunID:       NewRunID(),
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		FinishedAt:  time.Now().UTC().Truncate(time.Second),
		State:       "done",
		App:         "present",
		CustomNodes: Counts{Attempted: 2, Succeeded: 1},
		Models:      Counts{Attempted: 1, Succeeded: 1},
	}

	require.NoError(t, SaveReport(path, r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, *r, got)
	assert.NotContains(t, string(raw), "app_error")
}
