package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"comfy-setup/internal/config"
	"comfy-setup/internal/installer"
	"comfy-setup/internal/logger"
	"comfy-setup/internal/platform"
	"comfy-setup/internal/state"

	"github.com/spf13/cobra"
)

var (
	// configPath is the YAML configuration file, set with --config or -c.
	configPath string
	// baseDir overrides base_dir from the configuration.
	baseDir string
	// reportPath, when set, receives a JSON summary of the run.
	reportPath string
)

// installCmd runs the whole pipeline: application, custom nodes, models.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install ComfyUI, its custom nodes and models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd, installer.AllStages)
	},
}

var installAppCmd = &cobra.Command{
	Use:   "app",
	Short: "Install only the ComfyUI portable release",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd, installer.Stages{App: true})
	},
}

var installNodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Clone only the configured custom nodes (ComfyUI must be installed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd, installer.Stages{CustomNodes: true})
	},
}

var installModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Download only the configured models (ComfyUI must be installed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd, installer.Stages{Models: true})
	},
}

// runInstall loads the configuration, detects the platform and hands the
// selected stages to the orchestrator. Interrupts cancel in-flight work.
func runInstall(cmd *cobra.Command, stages installer.Stages) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}

	info, err := platform.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect platform: %w", err)
	}
	logger.Debug("[DEBUG] Platform: %s/%s (%s %s)\n", info.OS, info.Arch, info.Platform, info.Version)

	orch := installer.New(cfg, layout, installer.DefaultTools(layout, info))
	summary, runErr := orch.Run(ctx, stages)

	if reportPath != "" && summary != nil {
		if err := state.SaveReport(reportPath, summary.Report()); err != nil {
			logger.Warn("[WARN] %v\n", err)
		}
	}
	return runErr
}

func init() {
	installCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to configuration file")
	installCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "Directory to install into (overrides base_dir)")
	installCmd.PersistentFlags().StringVar(&reportPath, "report", "", "Write a JSON run report to this path")

	installCmd.AddCommand(installAppCmd)
	installCmd.AddCommand(installNodesCmd)
	installCmd.AddCommand(installModelsCmd)
	rootCmd.AddCommand(installCmd)
}
