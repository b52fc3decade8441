package cmd

import (
	"os"

	"comfy-setup/internal/logger"

	"github.com/spf13/cobra"
)

// debug enables debug logging. It is toggled via the `--debug` flag.
var debug bool

// rootCmd is the base command for the CLI tool `comfy-setup`.
var rootCmd = &cobra.Command{
	Use:   "comfy-setup",
	Short: "Portable ComfyUI installer",
	Long: `comfy-setup installs the ComfyUI portable release into a base directory,
then clones custom node repositories and downloads models into it.
Anything already present on disk is left alone, so the command can be rerun.`,
	SilenceUsage:  true,
	SilenceErrors: true,

	// Set up logging before any subcommand runs.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(debug)
	},
}

// Execute registers the global flags and runs the selected command.
// A fatal error exits the process with status 1.
func Execute() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		logger.Error("[ERROR] %v\n", err)
		os.Exit(1)
	}
}
