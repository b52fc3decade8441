package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when --config is not given. It may be absent.
const DefaultConfigFile = "comfy-setup.yaml"

// Default returns the configuration used when no file is present:
// the ComfyUI Windows portable release plus ComfyUI-Manager and no models.
func Default() Config {
	return Config{
		BaseDir: ".",
		App: App{
			DirName:        "ComfyUI_windows_portable",
			AppSubdir:      "ComfyUI",
			ReleaseRepo:    "comfyanonymous/ComfyUI",
			AssetSuffix:    ".7z",
			MinArchiveSize: 1 << 20,
		},
		HTTP: HTTP{
			APIBaseURL:   "https://api.github.com",
			UserAgent:    "ComfyUI-Installer",
			Timeout:      30 * time.Second,
			ProbeTimeout: 10 * time.Second,
		},
		CustomNodes: []string{
			"https://github.com/ltdrdata/ComfyUI-Manager",
		},
	}
}

// LoadConfig reads the YAML file at path on top of Default().
// A missing file is only an error when required is true, so the default
// path can be tried silently.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the installer relies on.
func (c Config) Validate() error {
	var errs []error

	if c.App.DirName == "" || !filepath.IsLocal(c.App.DirName) {
		errs = append(errs, fmt.Errorf("app.dir_name %q must be a relative path", c.App.DirName))
	}
	if c.App.AppSubdir != "" && !filepath.IsLocal(c.App.AppSubdir) {
		errs = append(errs, fmt.Errorf("app.app_subdir %q must be a relative path", c.App.AppSubdir))
	}
	if !strings.Contains(c.App.ReleaseRepo, "/") {
		errs = append(errs, fmt.Errorf("app.release_repo %q must be owner/repo", c.App.ReleaseRepo))
	}
	if c.App.AssetSuffix == "" {
		errs = append(errs, errors.New("app.asset_suffix is required"))
	}
	if c.App.MinArchiveSize < 0 {
		errs = append(errs, errors.New("app.min_archive_size must not be negative"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	if c.HTTP.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("http.probe_timeout must be positive"))
	}
	for i, u := range c.CustomNodes {
		if strings.TrimSpace(u) == "" {
			errs = append(errs, fmt.Errorf("custom_nodes[%d] is empty", i))
		}
	}
	for i, m := range c.Models {
		if m.URL == "" {
			errs = append(errs, fmt.Errorf("models[%d].url is required", i))
		}
		if m.Filename == "" || filepath.Base(m.Filename) != m.Filename {
			errs = append(errs, fmt.Errorf("models[%d].filename %q must be a plain file name", i, m.Filename))
		}
		if m.Directory == "" {
			errs = append(errs, fmt.Errorf("models[%d].directory is required", i))
		}
	}
	return errors.Join(errs...)
}

// Layout holds the absolute paths derived from the base directory.
type Layout struct {
	Base        string
	AppRoot     string
	ComfyUI     string
	CustomNodes string
	Models      string
}

// Layout resolves BaseDir and computes every path below it.
func (c Config) Layout() (Layout, error) {
	base := c.BaseDir
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve base dir %s: %w", base, err)
	}
	appRoot := filepath.Join(abs, c.App.DirName)
	comfy := filepath.Join(appRoot, c.App.AppSubdir)
	return Layout{
		Base:        abs,
		AppRoot:     appRoot,
		ComfyUI:     comfy,
		CustomNodes: filepath.Join(comfy, "custom_nodes"),
		Models:      filepath.Join(comfy, "models"),
	}, nil
}
