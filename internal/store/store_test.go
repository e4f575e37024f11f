package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/aireflect/internal/model"
)

func testReport(tool model.Tool, score float64, createdAt time.Time) *model.Report {
	return &model.Report{
		Tool:         tool,
		CreatedAt:    createdAt,
		PeriodStart:  createdAt.Add(-24 * time.Hour),
		PeriodEnd:    createdAt,
		OverallScore: score,
		SessionCount: 3,
		Results: []model.AnalysisResult{
			{
				AnalyzerKey:  "prompt_quality",
				AnalyzerName: "Prompt Quality",
				Score:        score,
				SessionCount: 3,
				Metrics:      map[string]any{"user_turns": 7},
			},
		},
		Insights: []model.Insight{
			{
				Category:       "prompt_quality",
				Title:          "Prompts lack file references",
				Severity:       model.SeveritySuggestion,
				Recommendation: "Name the files you want changed.",
				MetricValue:    0.1,
			},
		},
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	id, err := db.SaveReport(testReport(model.ToolClaudeCode, 72.5, now))
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := db.LatestReport(model.ToolClaudeCode)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 72.5, got.OverallScore)
	require.Equal(t, now, got.CreatedAt)
	require.Len(t, got.Results, 1)
	require.Equal(t, "prompt_quality", got.Results[0].AnalyzerKey)
	// JSON round-trips numbers as float64.
	require.Equal(t, float64(7), got.Results[0].Metrics["user_turns"])

	none, err := db.LatestReport(model.ToolCursor)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestScoreHistoryNewestFirst(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, score := range []float64{40, 55, 70} {
		_, err := db.SaveReport(testReport(model.ToolClaudeCode, score, base.AddDate(0, 0, i)))
		require.NoError(t, err)
	}

	points, err := db.ScoreHistory(model.ToolClaudeCode, "prompt_quality", 10)
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.Equal(t, 70.0, points[0].Score)
	require.Equal(t, 40.0, points[2].Score)

	overall, err := db.OverallHistory(model.ToolClaudeCode, 2)
	require.NoError(t, err)
	require.Len(t, overall, 2)
	require.Equal(t, 70.0, overall[0].Score)
}

func TestRecordSessionsUpserts(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	s := model.Session{
		SessionID:       "cc_abc",
		Tool:            model.ToolClaudeCode,
		StartTime:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		DurationMinutes: 30,
		SessionType:     model.SessionCoding,
	}
	require.NoError(t, db.RecordSessions([]model.Session{s}))

	// Re-recording the same session must not duplicate it.
	s.DurationMinutes = 45
	require.NoError(t, db.RecordSessions([]model.Session{s}))

	var count int
	var minutes float64
	row := db.Conn().QueryRow(
		"SELECT COUNT(*), MAX(duration_minutes) FROM session_metadata WHERE session_id = ?", "cc_abc")
	require.NoError(t, row.Scan(&count, &minutes))
	require.Equal(t, 1, count)
	require.Equal(t, 45.0, minutes)
}

func TestPruneDropsOldHistory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err = db.SaveReport(testReport(model.ToolClaudeCode, 60, now.AddDate(0, 0, -200)))
	require.NoError(t, err)
	_, err = db.SaveReport(testReport(model.ToolClaudeCode, 80, now.AddDate(0, 0, -10)))
	require.NoError(t, err)

	require.NoError(t, db.Prune(now))

	points, err := db.OverallHistory(model.ToolClaudeCode, 10)
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, 80.0, points[0].Score)

	// Cascade removed the stale report's result rows.
	var orphans int
	row := db.Conn().QueryRow(
		"SELECT COUNT(*) FROM analysis_results a LEFT JOIN reports r ON a.report_id = r.id WHERE r.id IS NULL")
	require.NoError(t, row.Scan(&orphans))
	require.Equal(t, 0, orphans)
}
