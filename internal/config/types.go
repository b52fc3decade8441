package config

import "time"

// Config is the top-level structure returned after loading the YAML configuration.
// It describes where the application lives, how to fetch it, and which
// custom nodes and models to add on top.
type Config struct {
	// BaseDir is the directory under which the application tree, portable
	// tools and transient downloads are placed. Relative values are resolved
	// against the process working directory once, in Layout.
	BaseDir     string   `yaml:"base_dir"`
	App         App      `yaml:"app"`
	HTTP        HTTP     `yaml:"http"`
	CustomNodes []string `yaml:"custom_nodes"`
	Models      []Model  `yaml:"models"`
}

// App describes the main application archive and the tree it unpacks to.
// - DirName: top-level folder contained in the archive (the installation root).
// - AppSubdir: folder inside DirName holding custom_nodes and models.
// - ReleaseRepo: GitHub owner/repo whose release carries the archive.
// - ReleaseTag: pins a release tag; empty means the latest release.
// - AssetSuffix: suffix selecting the archive among the release assets.
// - MinArchiveSize: downloads smaller than this many bytes are treated as corrupt.
type App struct {
	DirName        string `yaml:"dir_name"`
	AppSubdir      string `yaml:"app_subdir"`
	ReleaseRepo    string `yaml:"release_repo"`
	ReleaseTag     string `yaml:"release_tag"`
	AssetSuffix    string `yaml:"asset_suffix"`
	MinArchiveSize int64  `yaml:"min_archive_size"`
}

// HTTP holds network settings shared by release lookups and downloads.
type HTTP struct {
	APIBaseURL   string        `yaml:"api_base_url"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// Model is a single asset to download.
// - URL: where to fetch it from.
// - Filename: name of the file written on disk.
// - Directory: a category key such as "checkpoints_dir", or a custom relative path.
type Model struct {
	URL       string `yaml:"url"`
	Filename  string `yaml:"filename"`
	Directory string `yaml:"directory"`
}

// Destination parses the model's Directory field.
func (m Model) Destination() Destination {
	return ParseDestination(m.Directory)
}
