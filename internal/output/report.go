package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/aireflect/internal/model"
)

// insightDisplayLimit caps how many insights a rendered report shows.
const insightDisplayLimit = 8

// RenderReport formats a complete analysis report for the terminal.
func RenderReport(r *model.Report) string {
	var sb strings.Builder

	sb.WriteString(Section(fmt.Sprintf("aireflect · %s", r.Tool)))
	sb.WriteString("\n")
	if !r.PeriodStart.IsZero() {
		sb.WriteString(fmt.Sprintf(" %s\n",
			StyleMuted.Render(fmt.Sprintf("%s — %s",
				r.PeriodStart.Format("2006-01-02"),
				r.PeriodEnd.Format("2006-01-02")))))
	}
	sb.WriteString(fmt.Sprintf(" %s %s\n",
		StyleBold.Render("Overall"), ScoreBar(r.OverallScore, 24)))
	sb.WriteString(fmt.Sprintf(" %s\n",
		StyleMuted.Render(fmt.Sprintf("%d sessions · %d turns · %d tokens · %.0f min",
			r.SessionCount, r.TotalTurns, r.TotalTokens, r.TotalDurationMinutes))))

	if r.OverallAssessment != "" {
		sb.WriteString("\n " + r.OverallAssessment + "\n")
	}

	sb.WriteString(Section("Scores"))
	sb.WriteString("\n")
	results := make([]model.AnalysisResult, len(r.Results))
	copy(results, r.Results)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	for _, res := range results {
		line := fmt.Sprintf(" %s %s", StyleLabel.Render(res.AnalyzerName), ScoreBar(res.Score, 20))
		if dir, ok := r.Trends[res.AnalyzerKey]; ok && dir != model.TrendInsufficientData {
			line += "  " + TrendIndicator(dir)
		}
		sb.WriteString(line + "\n")
	}

	if len(r.Insights) > 0 {
		sb.WriteString(Section("Insights"))
		sb.WriteString("\n")
		for i, in := range r.Insights {
			if i >= insightDisplayLimit {
				sb.WriteString(StyleMuted.Render(
					fmt.Sprintf(" … %d more\n", len(r.Insights)-i)))
				break
			}
			sb.WriteString(renderInsight(i+1, in))
		}
	}

	return sb.String()
}

func renderInsight(n int, in model.Insight) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(" %d. %s %s\n", n, SeverityBadge(in.Severity), StyleBold.Render(in.Title)))
	if in.Recommendation != "" {
		sb.WriteString("    " + in.Recommendation + "\n")
	}
	if in.Evidence != "" {
		sb.WriteString("    " + StyleMuted.Render(in.Evidence) + "\n")
	}
	return sb.String()
}

// RenderRuleFiles formats rule file inspection results.
func RenderRuleFiles(files []model.RuleFileInfo) string {
	var sb strings.Builder
	sb.WriteString(Section("Rule Files"))
	sb.WriteString("\n")
	if len(files) == 0 {
		sb.WriteString(StyleMuted.Render(" none checked\n"))
		return sb.String()
	}

	table := NewTable("File", "Type", "Status", "Words", "Sections")
	for _, f := range files {
		status := StyleSuccess.Render("exists")
		words, sections := fmt.Sprintf("%d", f.WordCount), fmt.Sprintf("%d", f.SectionCount)
		if !f.Exists {
			status = StyleError.Render("missing")
			words, sections = "-", "-"
		}
		table.AddRow(f.FilePath, f.FileType, status, words, sections)
	}
	sb.WriteString(table.Render())
	return sb.String()
}
