// Package app contains the Cobra command tree for aireflect.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aireflect/internal/config"
	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/output"
	"github.com/blackwell-systems/aireflect/internal/reader"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "aireflect",
	Short: "Coaching feedback for AI-assisted development",
	Long: `aireflect reads the local usage data of AI coding assistants
(Claude Code, Cursor, GitHub Copilot), scores how effectively each is being
used, and produces concrete coaching feedback. Scores and insights are kept
in a local history so improvement shows up as a trend.

Run 'aireflect analyze' to score your recent sessions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("aireflect", appVersion)
		fmt.Println()
		fmt.Println("Use a subcommand:")
		fmt.Println("  analyze   Score recent sessions and generate coaching insights")
		fmt.Println("  status    Show which tools have data on this machine")
		fmt.Println("  rules     Inspect instruction files (CLAUDE.md, .cursorrules, …)")
		fmt.Println("  trends    Show score history from past runs")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/aireflect/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
}

// loadConfig loads the configuration and applies the global output and
// logging flags. Every subcommand starts here.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logging.SetVerbose(flagVerbose)
	if flagNoColor || !cfg.Output.Color {
		output.SetNoColor(true)
	} else {
		output.AutoDetectColor()
	}
	return cfg, nil
}

// buildRegistry wires one reader per supported tool, in detection order.
func buildRegistry(cfg *config.Config) *reader.Registry {
	return reader.NewRegistry(
		reader.NewClaudeReader(cfg.ClaudeHome),
		reader.NewCursorReader(cfg.CursorStorage),
		reader.NewCopilotReader(cfg.CopilotTraces, cfg.VSCodeLogs),
	)
}
