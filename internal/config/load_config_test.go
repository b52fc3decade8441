package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, []string{"https://github.com/ltdrdata/ComfyUI-Manager"}, cfg.CustomNodes)
	assert.Equal(t, int64(1048576), cfg.App.MinArchiveSize)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), true)
	require.Error(t, err)
}

func TestLoadConfig_OverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comfy-setup.yaml")
	data := `
base_dir: /opt/comfy
app:
  asset_suffix: .zip
  min_archive_size: 512
http:
  timeout: 5s
custom_nodes:
  - https://github.com/example/ComfyUI-Foo.git
models:
  - url: https://example.com/a.safetensors
    filename: a.safetensors
    directory: checkpoints_dir
  - url: https://example.com/b.pt
    filename: b.pt
    directory: my_models
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)

	assert.Equal(t, "/opt/comfy", cfg.BaseDir)
	assert.Equal(t, ".zip", cfg.App.AssetSuffix)
	assert.Equal(t, int64(512), cfg.App.MinArchiveSize)
	// Untouched fields keep their defaults.
	assert.Equal(t, "comfyanonymous/ComfyUI", cfg.App.ReleaseRepo)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ProbeTimeout)
	assert.Equal(t, []string{"https://github.com/example/ComfyUI-Foo.git"}, cfg.CustomNodes)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, Destination{Category: CategoryCheckpoints}, cfg.Models[0].Destination())
	assert.Equal(t, Destination{Custom: "my_models"}, cfg.Models[1].Destination())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [unclosed"), 0o600))

	_, err := LoadConfig(path, true)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dir name escapes", func(c *Config) { c.App.DirName = "../x" }},
		{"repo without owner", func(c *Config) { c.App.ReleaseRepo = "ComfyUI" }},
		{"empty suffix", func(c *Config) { c.App.AssetSuffix = "" }},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"blank node url", func(c *Config) { c.CustomNodes = []string{" "} }},
		{"model filename with dirs", func(c *Config) {
			c.Models = []Model{{URL: "https://x", Filename: "a/b.bin", Directory: "checkpoints_dir"}}
		}},
		{"model without directory", func(c *Config) {
			c.Models = []Model{{URL: "https://x", Filename: "b.bin"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLayout(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.BaseDir = base

	l, err := cfg.Layout()
	require.NoError(t, err)

	assert.Equal(t, base, l.Base)
	assert.Equal(t, filepath.Join(base, "ComfyUI_windows_portable"), l.AppRoot)
	assert.Equal(t, filepath.Join(base, "ComfyUI_windows_portable", "ComfyUI", "custom_nodes"), l.CustomNodes)
	assert.Equal(t, filepath.Join(base, "ComfyUI_windows_portable", "ComfyUI", "models"), l.Models)
}

func TestDestinationResolve(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.BaseDir = base
	l, err := cfg.Layout()
	require.NoError(t, err)

	dir, err := ParseDestination("checkpoints_dir").Resolve(l)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Models, "checkpoints"), dir)

	dir, err = ParseDestination("upscale_dir").Resolve(l)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Models, "upscale_models"), dir)

	custom := ParseDestination("extra_models")
	assert.True(t, custom.IsCustom())
	dir, err = custom.Resolve(l)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "extra_models"), dir)

	_, err = ParseDestination("../outside").Resolve(l)
	assert.Error(t, err)
}

func TestCategoriesHaveSubdirs(t *testing.T) {
	for _, c := range Categories() {
		sub, ok := c.Subdir()
		assert.True(t, ok, "category %s", c)
		assert.NotEmpty(t, sub)
	}
}
