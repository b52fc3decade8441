package installer

import (
	"context"
	"os"
	"path/filepath"

	"comfy-setup/internal/config"
	"comfy-setup/internal/logger"
)

// AssetFetcher downloads models into the directories their category maps to.
type AssetFetcher struct {
	fetcher Fetcher
}

// NewAssetFetcher creates an AssetFetcher on top of fetcher.
func NewAssetFetcher(fetcher Fetcher) *AssetFetcher {
	return &AssetFetcher{fetcher: fetcher}
}

// FetchAll downloads every model in order. One failing model never blocks
// the others; the result carries the tally.
func (a *AssetFetcher) FetchAll(ctx context.Context, models []config.Model, layout config.Layout) RunResult {
	result := RunResult{Attempted: len(models)}

	for _, m := range models {
		dest := m.Destination()
		dir, err := dest.Resolve(layout)
		if err != nil {
			logger.Error("[ERROR] Cannot place %s: %v\n", m.Filename, err)
			continue
		}
		if dest.IsCustom() {
			logger.Warn("[WARN] Unknown model directory %q, using it as a path: %s\n", m.Directory, dir)
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("[ERROR] Failed to create %s: %v\n", dir, err)
			continue
		}

		if err := a.fetcher.Fetch(ctx, m.URL, filepath.Join(dir, m.Filename)); err != nil {
			continue
		}
		result.Succeeded++
	}
	return result
}
