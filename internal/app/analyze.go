package app

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aireflect/internal/analyzer"
	"github.com/blackwell-systems/aireflect/internal/config"
	"github.com/blackwell-systems/aireflect/internal/engine"
	"github.com/blackwell-systems/aireflect/internal/insights"
	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/output"
	"github.com/blackwell-systems/aireflect/internal/store"
)

var (
	analyzeFlagTool      string
	analyzeFlagDays      int
	analyzeFlagWorkspace string
	analyzeFlagPreset    string
	analyzeFlagEnable    []string
	analyzeFlagDisable   []string
	analyzeFlagNoLLM     bool
	analyzeFlagSkipGit   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score recent sessions and generate coaching insights",
	Long: `Analyze reads recent sessions from one tool's local storage, runs the
enabled analyzers, and prints a scored report with coaching insights.

Without --tool, the first tool with data on this machine is used. Results
are stored locally so later runs can report trends.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlagTool, "tool", "", "Tool to analyze: claude_code, cursor, copilot (default: auto-detect)")
	analyzeCmd.Flags().IntVar(&analyzeFlagDays, "days", 0, "Number of days to analyze (default: lookback_days from config)")
	analyzeCmd.Flags().StringVar(&analyzeFlagWorkspace, "workspace", "", "Restrict analysis to one workspace path")
	analyzeCmd.Flags().StringVar(&analyzeFlagPreset, "preset", "", "Analyzer preset: quick, coaching, full, copilot")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlagEnable, "enable", nil, "Run only these analyzers (can be repeated)")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlagDisable, "disable", nil, "Skip these analyzers (can be repeated)")
	analyzeCmd.Flags().BoolVar(&analyzeFlagNoLLM, "no-llm", false, "Skip the Claude CLI and use built-in insight rules")
	analyzeCmd.Flags().BoolVar(&analyzeFlagSkipGit, "skip-git", false, "Skip analyzers that read git history")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	acfg, err := resolveAnalyzerConfig(cfg)
	if err != nil {
		return err
	}

	days := analyzeFlagDays
	if days <= 0 {
		days = cfg.LookbackDays
	}
	now := time.Now()

	db, err := store.Open(config.DBPath())
	if err != nil {
		logging.Warn("opening history database: %v (trends disabled)", err)
	} else {
		defer db.Close()
	}

	eng := &engine.Engine{
		Registry:     buildRegistry(cfg),
		Store:        db,
		Collaborator: resolveCollaborator(cfg),
	}

	report, err := eng.Run(cmd.Context(), engine.Options{
		Tool:      model.Tool(analyzeFlagTool),
		Since:     now.AddDate(0, 0, -days),
		Until:     now,
		Workspace: analyzeFlagWorkspace,
		Config:    acfg,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Println(output.RenderReport(report))
	return nil
}

// resolveAnalyzerConfig folds the preset and the enable/disable flags into
// one analyzer selection. Explicit --enable wins over presets.
func resolveAnalyzerConfig(cfg *config.Config) (*analyzer.Config, error) {
	enabled := analyzeFlagEnable
	if len(enabled) == 0 {
		preset := analyzeFlagPreset
		if preset == "" {
			preset = cfg.Preset
		}
		pc, err := analyzer.PresetByName(preset)
		if err != nil {
			return nil, err
		}
		enabled = pc.EnabledKeys()
	}

	drop := make(map[string]bool, len(analyzeFlagDisable))
	for _, k := range analyzeFlagDisable {
		if _, ok := analyzer.Lookup(k); !ok {
			return nil, fmt.Errorf("unknown analyzer %q", k)
		}
		drop[k] = true
	}
	kept := make([]string, 0, len(enabled))
	for _, k := range enabled {
		if !drop[k] {
			kept = append(kept, k)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no analyzers left enabled")
	}

	return analyzer.NewConfig(analyzer.ConfigOptions{
		Enabled: kept,
		SkipGit: analyzeFlagSkipGit,
	})
}

// resolveCollaborator picks the insight generator: the Claude CLI when it is
// installed and enabled, otherwise the built-in rules.
func resolveCollaborator(cfg *config.Config) insights.Collaborator {
	if analyzeFlagNoLLM || !cfg.LLM.Enabled {
		return insights.NewRuleBased()
	}
	if insights.FindBinary() == "" {
		logging.Warn("claude CLI not found, falling back to built-in insight rules")
		return insights.NewRuleBased()
	}
	return insights.NewClaudeCLI(cfg.LLM.Model)
}
