package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/aireflect/internal/analyzer"
	"github.com/blackwell-systems/aireflect/internal/gitlog"
	"github.com/blackwell-systems/aireflect/internal/insights"
	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/reader"
	"github.com/blackwell-systems/aireflect/internal/store"
)

var engineTestStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeReader struct {
	tool     model.Tool
	sessions []model.Session
	rules    []model.RuleFileInfo
}

func (f *fakeReader) Tool() model.Tool        { return f.tool }
func (f *fakeReader) Available() bool         { return len(f.sessions) > 0 }
func (f *fakeReader) DataLocations() []string { return []string{"/fake"} }

func (f *fakeReader) HistoryRange() (time.Time, time.Time, bool) {
	if len(f.sessions) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return f.sessions[0].StartTime, f.sessions[len(f.sessions)-1].EndTime, true
}

func (f *fakeReader) ReadSessions(_ context.Context, _ reader.ReadOptions) ([]model.Session, error) {
	return f.sessions, nil
}

func (f *fakeReader) ReadRuleFiles(_ string) ([]model.RuleFileInfo, error) {
	return f.rules, nil
}

type fakeCollaborator struct {
	called bool
}

func (f *fakeCollaborator) GenerateInsights(_ context.Context, req insights.Request) (*insights.Response, error) {
	f.called = true
	return &insights.Response{
		OverallAssessment: "steady progress",
		Insights: []model.Insight{{
			Category:       "prompt_engineering",
			Title:          "Name files in prompts",
			Severity:       model.SeveritySuggestion,
			Recommendation: "Reference files by path.",
			MetricKey:      "prompt_quality",
		}},
	}, nil
}

type emptyGit struct{}

func (emptyGit) Commits(_ context.Context, _ string, _ time.Time) ([]gitlog.Commit, error) {
	return nil, nil
}

type brokenGit struct{}

func (brokenGit) Commits(_ context.Context, _ string, _ time.Time) ([]gitlog.Commit, error) {
	return nil, errors.New("git log exploded")
}

func testSessions() []model.Session {
	turns := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "Refactor the config loader in config.go to accept a custom path", InputTokens: 120},
		{Role: model.RoleAssistant, Content: "Done.", OutputTokens: 300,
			ToolCalls: []model.ToolCall{{Name: "Read"}, {Name: "Edit"}}},
		{Role: model.RoleUser, Content: "perfect, thanks"},
	}
	return []model.Session{{
		SessionID:         "cc_e1",
		Tool:              model.ToolClaudeCode,
		Turns:             turns,
		StartTime:         engineTestStart,
		EndTime:           engineTestStart.Add(30 * time.Minute),
		DurationMinutes:   30,
		WorkspacePath:     "/work/proj",
		TotalInputTokens:  120,
		TotalOutputTokens: 300,
		SessionType:       model.SessionRefactoring,
	}}
}

func newTestEngine(t *testing.T, collab insights.Collaborator) (*Engine, *store.DB) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rd := &fakeReader{tool: model.ToolClaudeCode, sessions: testSessions()}
	return &Engine{
		Registry:     reader.NewRegistry(rd),
		Store:        db,
		Collaborator: collab,
		Git:          emptyGit{},
	}, db
}

func TestRunProducesFullReport(t *testing.T) {
	collab := &fakeCollaborator{}
	e, db := newTestEngine(t, collab)

	report, err := e.Run(context.Background(), Options{Tool: model.ToolClaudeCode})
	require.NoError(t, err)
	require.Equal(t, model.ToolClaudeCode, report.Tool)
	require.Equal(t, 1, report.SessionCount)
	require.Equal(t, 3, report.TotalTurns)
	require.Equal(t, 420, report.TotalTokens)

	// claude_code gets every analyzer except completion_patterns.
	keys := map[string]bool{}
	for _, r := range report.Results {
		keys[r.AnalyzerKey] = true
	}
	require.True(t, keys["prompt_quality"])
	require.True(t, keys["tool_usage"])
	require.False(t, keys["completion_patterns"])

	require.Greater(t, report.OverallScore, 0.0)
	require.LessOrEqual(t, report.OverallScore, 100.0)

	require.True(t, collab.called)
	require.Equal(t, "steady progress", report.OverallAssessment)

	// First run: no history yet, all trends insufficient.
	require.Equal(t, model.TrendInsufficientData, report.Trends["prompt_quality"])

	// The run persisted itself.
	saved, err := db.LatestReport(model.ToolClaudeCode)
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Equal(t, report.OverallScore, saved.OverallScore)
}

func TestRunAutoDetectsTool(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	report, err := e.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, model.ToolClaudeCode, report.Tool)
}

func TestRunHonorsPreset(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	report, err := e.Run(context.Background(), Options{
		Tool:   model.ToolClaudeCode,
		Config: analyzer.PresetQuick(),
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
}

func TestTrendsAfterHistory(t *testing.T) {
	e, db := newTestEngine(t, nil)

	// Seed three low-scoring historical reports so the next run trends up.
	for i := 0; i < 3; i++ {
		_, err := db.SaveReport(&model.Report{
			Tool:      model.ToolClaudeCode,
			CreatedAt: engineTestStart.AddDate(0, 0, -3+i),
			Results: []model.AnalysisResult{{
				AnalyzerKey: "prompt_quality", AnalyzerName: "Prompt Quality", Score: 10,
			}},
		})
		require.NoError(t, err)
	}

	require.Equal(t, model.TrendImproving, e.trendFor(model.ToolClaudeCode, "prompt_quality", 40))
	require.Equal(t, model.TrendDeclining, e.trendFor(model.ToolClaudeCode, "prompt_quality", 2))
	require.Equal(t, model.TrendStable, e.trendFor(model.ToolClaudeCode, "prompt_quality", 12))
	require.Equal(t, model.TrendInsufficientData, e.trendFor(model.ToolClaudeCode, "tool_usage", 50))
}

func TestOverallScoreRenormalizesWeights(t *testing.T) {
	// Equal scores must survive renormalization regardless of which
	// analyzers ran.
	results := []model.AnalysisResult{
		{AnalyzerKey: "prompt_quality", Score: 60},
		{AnalyzerKey: "rule_file", Score: 60},
	}
	require.InDelta(t, 60.0, overallScore(results), 1e-9)

	// Heavier analyzers pull harder.
	results = []model.AnalysisResult{
		{AnalyzerKey: "prompt_quality", Score: 100}, // weight 0.20
		{AnalyzerKey: "rule_file", Score: 0},        // weight 0.05
	}
	require.InDelta(t, 80.0, overallScore(results), 1e-9)

	require.Equal(t, 0.0, overallScore(nil))
}

func TestRunSurvivesFailingAnalyzer(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.Git = brokenGit{}

	cfg, err := analyzer.NewConfig(analyzer.ConfigOptions{
		Enabled: []string{"prompt_quality", "outcome_tracker"},
	})
	require.NoError(t, err)

	report, err := e.Run(context.Background(), Options{
		Tool:   model.ToolClaudeCode,
		Config: cfg,
	})
	require.NoError(t, err)
	require.NotNil(t, report)

	// The git-backed analyzer is omitted; the rest of the batch survives.
	keys := map[string]bool{}
	for _, r := range report.Results {
		keys[r.AnalyzerKey] = true
	}
	require.True(t, keys["prompt_quality"])
	require.False(t, keys["outcome_tracker"])
	require.Greater(t, report.OverallScore, 0.0)
}

func TestTrendFromHistory(t *testing.T) {
	points := func(scores ...float64) []store.ScorePoint {
		var ps []store.ScorePoint
		for _, s := range scores {
			ps = append(ps, store.ScorePoint{Score: s})
		}
		return ps
	}

	require.Equal(t, model.TrendInsufficientData, TrendFromHistory(points(60, 50, 50)))
	require.Equal(t, model.TrendImproving, TrendFromHistory(points(60, 50, 50, 50)))
	require.Equal(t, model.TrendDeclining, TrendFromHistory(points(40, 50, 50, 50)))
	require.Equal(t, model.TrendStable, TrendFromHistory(points(52, 50, 50, 50)))
}

func TestDominantWorkspace(t *testing.T) {
	sessions := []model.Session{
		{WorkspacePath: "/a"},
		{WorkspacePath: "/b"},
		{WorkspacePath: "/b"},
		{WorkspacePath: ""},
	}
	require.Equal(t, "/b", dominantWorkspace(sessions))
	require.Equal(t, "", dominantWorkspace(nil))
}
