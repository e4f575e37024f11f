package output

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/aireflect/internal/model"
)

func TestScoreBar(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tests := []struct {
		name   string
		score  float64
		width  int
		filled int
	}{
		{"zero", 0, 10, 0},
		{"half", 50, 10, 5},
		{"full", 100, 10, 10},
		{"clamped high", 140, 10, 10},
		{"clamped low", -5, 10, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bar := ScoreBar(tc.score, tc.width)
			if got := strings.Count(bar, "█"); got != tc.filled {
				t.Errorf("ScoreBar(%.0f, %d) filled = %d, want %d", tc.score, tc.width, got, tc.filled)
			}
			if got := strings.Count(bar, "░"); got != tc.width-tc.filled {
				t.Errorf("ScoreBar(%.0f, %d) empty = %d, want %d", tc.score, tc.width, got, tc.width-tc.filled)
			}
		})
	}
}

func TestTrendIndicator(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tests := []struct {
		dir  model.TrendDirection
		want string
	}{
		{model.TrendImproving, "▲"},
		{model.TrendDeclining, "▼"},
		{model.TrendStable, "─"},
		{model.TrendInsufficientData, "?"},
	}

	for _, tc := range tests {
		if got := TrendIndicator(tc.dir); !strings.Contains(got, tc.want) {
			t.Errorf("TrendIndicator(%s) = %q, want marker %q", tc.dir, got, tc.want)
		}
	}
}

func TestRenderReport(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	report := &model.Report{
		Tool:                 model.ToolClaudeCode,
		PeriodStart:          start,
		PeriodEnd:            start.AddDate(0, 0, 30),
		OverallScore:         64,
		OverallAssessment:    "Solid fundamentals with room to tighten prompts.",
		SessionCount:         12,
		TotalTurns:           90,
		TotalTokens:          42000,
		TotalDurationMinutes: 310,
		Results: []model.AnalysisResult{
			{AnalyzerKey: "prompt_quality", AnalyzerName: "Prompt Quality", Score: 71},
			{AnalyzerKey: "conversation_flow", AnalyzerName: "Conversation Flow", Score: 55},
		},
		Trends: map[string]model.TrendDirection{
			"prompt_quality":    model.TrendImproving,
			"conversation_flow": model.TrendInsufficientData,
		},
		Insights: []model.Insight{
			{
				Category:       "conversation_flow",
				Title:          "Frequent mid-session corrections",
				Severity:       model.SeverityWarning,
				Recommendation: "State constraints in the opening prompt.",
			},
		},
	}

	out := RenderReport(report)

	for _, want := range []string{
		"aireflect · claude_code",
		"2026-01-01 — 2026-01-31",
		"Overall",
		"12 sessions",
		"Prompt Quality",
		"▲ improving",
		"[WARNING]",
		"Frequent mid-session corrections",
		report.OverallAssessment,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Scores are sorted best-first.
	if strings.Index(out, "Prompt Quality") > strings.Index(out, "Conversation Flow") {
		t.Error("expected highest-scoring analyzer first")
	}

	// Insufficient history should not print a trend marker.
	if strings.Contains(out, "?") {
		t.Error("expected no trend marker for insufficient history")
	}
}

func TestRenderReport_InsightOverflow(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	report := &model.Report{Tool: model.ToolCursor}
	for i := 0; i < insightDisplayLimit+3; i++ {
		report.Insights = append(report.Insights, model.Insight{
			Title:    "insight",
			Severity: model.SeveritySuggestion,
		})
	}

	out := RenderReport(report)
	if !strings.Contains(out, "… 3 more") {
		t.Errorf("expected overflow marker, got:\n%s", out)
	}
}

func TestRenderRuleFiles(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	files := []model.RuleFileInfo{
		{FilePath: "CLAUDE.md", FileType: "claude_md", Exists: true, WordCount: 420, SectionCount: 6},
		{FilePath: ".cursorrules", FileType: "cursorrules", Exists: false},
	}

	out := RenderRuleFiles(files)

	for _, want := range []string{"Rule Files", "CLAUDE.md", "exists", "420", ".cursorrules", "missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("rule file output missing %q", want)
		}
	}
}

func TestRenderRuleFiles_Empty(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	out := RenderRuleFiles(nil)
	if !strings.Contains(out, "none checked") {
		t.Errorf("expected empty marker, got %q", out)
	}
}
