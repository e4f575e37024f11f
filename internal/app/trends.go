package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aireflect/internal/analyzer"
	"github.com/blackwell-systems/aireflect/internal/config"
	"github.com/blackwell-systems/aireflect/internal/engine"
	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/output"
	"github.com/blackwell-systems/aireflect/internal/store"
)

var (
	trendsFlagTool  string
	trendsFlagLimit int
)

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show score history from past runs",
	Long: `Trends reads the local history database and shows how the overall and
per-analyzer scores have moved across stored analysis runs.`,
	RunE: runTrends,
}

func init() {
	trendsCmd.Flags().StringVar(&trendsFlagTool, "tool", string(model.ToolClaudeCode), "Tool to report on: claude_code, cursor, copilot")
	trendsCmd.Flags().IntVar(&trendsFlagLimit, "limit", 10, "Number of stored runs to include")

	rootCmd.AddCommand(trendsCmd)
}

// trendRow is the JSON-serializable per-analyzer history line.
type trendRow struct {
	Analyzer string             `json:"analyzer"`
	Latest   float64            `json:"latest"`
	Samples  int                `json:"samples"`
	Trend    string             `json:"trend"`
	History  []store.ScorePoint `json:"history,omitempty"`
}

func runTrends(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	tool := model.Tool(trendsFlagTool)

	db, err := store.Open(config.DBPath())
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer db.Close()

	latest, err := db.LatestReport(tool)
	if err != nil {
		return fmt.Errorf("loading latest report: %w", err)
	}
	if latest == nil {
		fmt.Printf("No stored runs for %s yet. Run 'aireflect analyze' first.\n", tool)
		return nil
	}

	overall, err := db.OverallHistory(tool, trendsFlagLimit)
	if err != nil {
		return fmt.Errorf("loading overall history: %w", err)
	}

	var rows []trendRow
	for _, def := range analyzer.Definitions() {
		history, err := db.ScoreHistory(tool, def.Key, trendsFlagLimit)
		if err != nil {
			return fmt.Errorf("loading %s history: %w", def.Key, err)
		}
		if len(history) == 0 {
			continue
		}
		rows = append(rows, trendRow{
			Analyzer: def.Key,
			Latest:   history[0].Score,
			Samples:  len(history),
			Trend:    string(engine.TrendFromHistory(history)),
			History:  history,
		})
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Tool      model.Tool         `json:"tool"`
			Overall   []store.ScorePoint `json:"overall"`
			Analyzers []trendRow         `json:"analyzers"`
		}{tool, overall, rows})
	}

	fmt.Println(output.Section(fmt.Sprintf("Score Trends · %s", tool)))
	fmt.Println()
	if len(overall) > 0 {
		fmt.Printf(" %s %s\n\n",
			output.StyleLabel.Render("Overall"),
			output.ScoreBar(overall[0].Score, 24))
	}

	tbl := output.NewTable("Analyzer", "Latest", "Runs", "Trend")
	for _, row := range rows {
		tbl.AddRow(
			row.Analyzer,
			fmt.Sprintf("%5.0f", row.Latest),
			fmt.Sprintf("%d", row.Samples),
			output.TrendIndicator(model.TrendDirection(row.Trend)),
		)
	}
	tbl.Print()

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleMuted.Render(
		fmt.Sprintf("last run %s", latest.CreatedAt.Format("2006-01-02 15:04"))))
	return nil
}
