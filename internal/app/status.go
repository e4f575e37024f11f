package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aireflect/internal/output"
	"github.com/blackwell-systems/aireflect/internal/reader"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which tools have data on this machine",
	Long: `Status checks each supported tool's local storage and reports whether
usable data was found, where it lives, and what time range it covers.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var statuses []reader.Status
	for _, rd := range buildRegistry(cfg).All() {
		statuses = append(statuses, reader.StatusOf(rd))
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	fmt.Println(output.Section("Tool Status"))
	fmt.Println()

	tbl := output.NewTable("Tool", "Data", "History", "Locations")
	for _, st := range statuses {
		data := output.StyleError.Render("none")
		history := "-"
		locations := "-"
		if st.Available {
			data = output.StyleSuccess.Render("found")
			if !st.EarliestData.IsZero() {
				history = fmt.Sprintf("%s — %s",
					st.EarliestData.Format("2006-01-02"),
					st.LatestData.Format("2006-01-02"))
			}
			if len(st.DataLocations) > 0 {
				locations = strings.Join(st.DataLocations, ", ")
			}
		}
		tbl.AddRow(string(st.Tool), data, history, locations)
	}
	tbl.Print()
	return nil
}
