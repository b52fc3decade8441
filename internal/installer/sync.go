package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"comfy-setup/internal/config"
	"comfy-setup/internal/lockfile"
	"comfy-setup/internal/logger"
	"comfy-setup/internal/state"
)

// LockFileName is created in the base directory for the duration of a run.
const LockFileName = ".comfy-setup.lock"

// ErrAppMissing is returned when a later stage is requested on its own but
// the application has not been installed yet.
var ErrAppMissing = errors.New("ComfyUI is not installed; run the app stage first")

// State is a step of the orchestrator's run.
type State string

const (
	StateNotStarted    State = "not_started"
	StateAppInstalling State = "app_installing"
	StateAppReady      State = "app_ready"
	StateFatal         State = "fatal"
	StateCustomNodes   State = "custom_nodes_running"
	StateModels        State = "models_running"
	StateDone          State = "done"
)

// Stages selects which parts of the pipeline a run executes.
type Stages struct {
	App         bool
	CustomNodes bool
	Models      bool
}

// AllStages runs the whole pipeline.
var AllStages = Stages{App: true, CustomNodes: true, Models: true}

// Summary describes a finished (or aborted) run.
type Summary struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	State       State
	App         AppStatus
	AppErr      error
	CustomNodes RunResult
	Models      RunResult
}

// Report converts the summary into the persisted report shape.
func (s *Summary) Report() *state.Report {
	r := &state.Report{
		RunID:       s.RunID,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		State:       string(s.State),
		App:         string(s.App),
		CustomNodes: state.Counts{Attempted: s.CustomNodes.Attempted, Succeeded: s.CustomNodes.Succeeded},
		Models:      state.Counts{Attempted: s.Models.Attempted, Succeeded: s.Models.Succeeded},
	}
	if s.AppErr != nil {
		r.AppError = s.AppErr.Error()
	}
	return r
}

// Orchestrator drives the installation pipeline: main application, then
// custom nodes, then models. Only the first stage can fail the run.
type Orchestrator struct {
	cfg        config.Config
	layout     config.Layout
	tools      Tools
	downloader *Downloader
	releases   *ReleaseClient
	extractor  *Extractor
	resolver   *ToolResolver
	cloner     *RepositoryCloner
	assets     *AssetFetcher
}

// New wires an orchestrator for cfg. layout must come from cfg.Layout().
func New(cfg config.Config, layout config.Layout, tools Tools) *Orchestrator {
	downloader := NewDownloader(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	releases := NewReleaseClient(cfg.HTTP.APIBaseURL, cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	extractor := NewExtractor()

	return &Orchestrator{
		cfg:        cfg,
		layout:     layout,
		tools:      tools,
		downloader: downloader,
		releases:   releases,
		extractor:  extractor,
		resolver:   NewToolResolver(downloader, releases, extractor, cfg.HTTP.ProbeTimeout),
		cloner:     NewRepositoryCloner(),
		assets:     NewAssetFetcher(downloader),
	}
}

// Run executes the selected stages in order under the base directory lock.
// The returned error is non-nil only for fatal conditions; custom node and
// model failures are reported through the Summary counts.
func (o *Orchestrator) Run(ctx context.Context, stages Stages) (*Summary, error) {
	s := &Summary{
		RunID:     state.NewRunID(),
		StartedAt: time.Now().UTC(),
		State:     StateNotStarted,
		App:       AppSkipped,
	}
	defer func() { s.FinishedAt = time.Now().UTC() }()

	logger.Info("[INFO] Starting ComfyUI setup (run %s)\n", s.RunID)
	logger.Debug("[DEBUG] Base directory: %s\n", o.layout.Base)

	// One run per base directory. The lock file lives inside it, so the
	// directory has to exist first.
	if err := os.MkdirAll(o.layout.Base, 0o755); err != nil {
		return o.fail(s, fmt.Errorf("create base dir: %w", err))
	}
	lock, err := lockfile.Acquire(filepath.Join(o.layout.Base, LockFileName))
	if err != nil {
		return o.fail(s, fmt.Errorf("another setup run is using %s: %w", o.layout.Base, err))
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Debug("[DEBUG] Failed to release lock %s: %v\n", lock.Path(), err)
		}
	}()

	// The app stage is the only fatal one. When it is skipped, later stages
	// still need an installed app to write into.
	if stages.App {
		s.State = StateAppInstalling
		s.App, err = o.InstallApp(ctx)
		if err != nil {
			s.AppErr = err
			return o.fail(s, err)
		}
	} else if !pathExists(o.layout.AppRoot) {
		return o.fail(s, ErrAppMissing)
	}
	s.State = StateAppReady

	// Node and model failures are counted, never fatal.
	if stages.CustomNodes {
		s.State = StateCustomNodes
		s.CustomNodes = o.SyncCustomNodes(ctx)
		if !s.CustomNodes.Complete() {
			logger.Warn("[WARN] Some custom nodes failed to download\n")
		}
	}

	if stages.Models {
		s.State = StateModels
		s.Models = o.SyncModels(ctx)
		if !s.Models.Complete() {
			logger.Warn("[WARN] Some models failed to download\n")
		}
	}

	s.State = StateDone
	logger.Info("[INFO] ComfyUI setup completed!\n")
	return s, nil
}

func (o *Orchestrator) fail(s *Summary, err error) (*Summary, error) {
	s.State = StateFatal
	logger.Error("[ERROR] ComfyUI setup failed: %v\n", err)
	return s, err
}

// SyncCustomNodes clones the configured custom node repositories. The
// clone tool is resolved only when at least one checkout is missing, and a
// portable git staged by this run is removed again afterwards.
func (o *Orchestrator) SyncCustomNodes(ctx context.Context) RunResult {
	logger.Info("[INFO] Starting custom nodes downloads...\n")
	if len(o.cfg.CustomNodes) == 0 {
		logger.Info("[INFO] Custom nodes downloaded: 0/0\n")
		return RunResult{}
	}

	if err := os.MkdirAll(o.layout.CustomNodes, 0o755); err != nil {
		logger.Error("[ERROR] Failed to create %s: %v\n", o.layout.CustomNodes, err)
		return RunResult{Attempted: len(o.cfg.CustomNodes)}
	}

	// Remember what the cloner resolved so an owned git can be released.
	var (
		git      ToolHandle
		resolved bool
	)
	source := func(ctx context.Context) (ToolHandle, error) {
		h, err := o.resolver.Resolve(ctx, o.tools.VCS)
		if err != nil {
			logger.Error("[ERROR] Failed to setup %s: %v\n", o.tools.VCS.Name, err)
			return ToolHandle{}, err
		}
		git, resolved = h, true
		return h, nil
	}

	// Existing checkouts are skipped without touching source.
	result := o.cloner.CloneAll(ctx, o.cfg.CustomNodes, o.layout.CustomNodes, source)

	if resolved && releaseTool(o.tools.VCS, git) {
		logger.Info("[INFO] Temporary %s portable removed\n", o.tools.VCS.Name)
	}

	logger.Info("[INFO] Custom nodes downloaded: %d/%d\n", result.Succeeded, result.Attempted)
	return result
}

// SyncModels downloads the configured models.
func (o *Orchestrator) SyncModels(ctx context.Context) RunResult {
	logger.Info("[INFO] Starting model downloads...\n")
	result := o.assets.FetchAll(ctx, o.cfg.Models, o.layout)
	logger.Info("[INFO] Models downloaded: %d/%d\n", result.Succeeded, result.Attempted)
	return result
}
