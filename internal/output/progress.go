package output

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/aireflect/internal/model"
)

// ScoreBar renders a visual progress bar for a 0-100 score.
// Example: "████████░░ 80/100"
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int((score / 100.0) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %s",
		scoreStyle(score).Render(bar),
		StyleMuted.Render(fmt.Sprintf("%.0f/100", score)))
}

func scoreStyle(score float64) interface{ Render(...string) string } {
	switch {
	case score >= 70:
		return StyleSuccess
	case score >= 40:
		return StyleWarning
	}
	return StyleError
}

// TrendIndicator renders a colored marker for a trend direction.
func TrendIndicator(dir model.TrendDirection) string {
	switch dir {
	case model.TrendImproving:
		return StyleSuccess.Render("▲ improving")
	case model.TrendDeclining:
		return StyleError.Render("▼ declining")
	case model.TrendStable:
		return StyleMuted.Render("─ stable")
	}
	return StyleMuted.Render("? not enough history")
}

// SeverityBadge renders an insight severity tag.
func SeverityBadge(sev model.InsightSeverity) string {
	switch sev {
	case model.SeverityCritical:
		return StyleError.Render("[CRITICAL]")
	case model.SeverityWarning:
		return StyleWarning.Render("[WARNING]")
	case model.SeveritySuggestion:
		return StyleBold.Render("[SUGGEST]")
	}
	return StyleMuted.Render("[INFO]")
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
