// chainforge serves YAML-described LLM prompt chains behind an HTTP
// invocation endpoint and provides companion commands for scaffolding,
// validating, inspecting and running chains locally.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chainforge/internal/config"
	"chainforge/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded configuration, available to all commands.
	cfg *config.Config

	// Logger for the command layer.
	logger *zap.Logger
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chainforge",
	Short: "chainforge - YAML prompt chains served over HTTP",
	Long: `chainforge loads YAML-described multi-step prompt chains, substitutes
reusable snippets into Markdown prompt templates at compile time, runs
the steps sequentially against an LLM with variable threading, and
serves the result behind an HTTP invocation endpoint.

Chains live in the chains directory as <name>.yaml; prompt templates
and snippets are plain Markdown files referenced from the chain.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if err := logging.Initialize(verbose || cfg.Logging.Debug); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		zcfg := zap.NewProductionConfig()
		if verbose || cfg.Logging.Debug {
			zcfg = zap.NewDevelopmentConfig()
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Sync()
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "chainforge.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
