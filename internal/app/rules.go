package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/output"
	"github.com/blackwell-systems/aireflect/internal/reader"
)

var (
	rulesFlagTool      string
	rulesFlagWorkspace string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect instruction files (CLAUDE.md, .cursorrules, …)",
	Long: `Rules locates each tool's instruction and configuration files for a
workspace and summarizes their size and structure. Expected files that are
missing are reported too.`,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesFlagTool, "tool", "", "Tool to inspect: claude_code, cursor, copilot (default: auto-detect)")
	rulesCmd.Flags().StringVar(&rulesFlagWorkspace, "workspace", "", "Workspace path (default: current directory)")

	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry := buildRegistry(cfg)
	var rd reader.Reader
	if rulesFlagTool == "" {
		rd, err = registry.Detect()
	} else {
		rd, err = registry.ForTool(model.Tool(rulesFlagTool))
	}
	if err != nil {
		return err
	}

	workspace := rulesFlagWorkspace
	if workspace == "" {
		workspace, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving workspace: %w", err)
		}
	}

	files, err := rd.ReadRuleFiles(workspace)
	if err != nil {
		return fmt.Errorf("reading rule files: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}
	fmt.Println(output.RenderRuleFiles(files))
	return nil
}
