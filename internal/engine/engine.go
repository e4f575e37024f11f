// Package engine orchestrates one analysis pass: read sessions, run the
// enabled analyzers in parallel, fold scores into a report, and persist it
// for trend tracking.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/aireflect/internal/analyzer"
	"github.com/blackwell-systems/aireflect/internal/gitlog"
	"github.com/blackwell-systems/aireflect/internal/insights"
	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/reader"
	"github.com/blackwell-systems/aireflect/internal/store"
)

// analyzerWeights drive the overall score. Weights are renormalized over
// the analyzers that actually ran, so tool-specific subsets still sum to a
// full score. Unlisted analyzers default to defaultWeight.
var analyzerWeights = map[string]float64{
	"prompt_quality":      0.20,
	"conversation_flow":   0.20,
	"session_patterns":    0.15,
	"context_management":  0.15,
	"tool_usage":          0.10,
	"rule_file":           0.05,
	"outcome_tracker":     0.15,
	"completion_patterns": 0.15,
}

const defaultWeight = 0.1

// trendSampleMin is the stored history needed before a trend is reported.
const trendSampleMin = 3

// trendDelta is the score movement (in points) separating stable from
// improving or declining.
const trendDelta = 5.0

// Engine wires readers, analyzers, storage, and the insight collaborator.
// Store and Collaborator may be nil: history and prose insights are then
// skipped, the numeric report still works.
type Engine struct {
	Registry     *reader.Registry
	Store        *store.DB
	Collaborator insights.Collaborator
	Git          gitlog.Source
}

// Options select what one analysis pass covers.
type Options struct {
	Tool      model.Tool // empty = auto-detect
	Since     time.Time
	Until     time.Time
	Workspace string
	Config    *analyzer.Config
}

// Run executes a full analysis pass and returns the assembled report.
func (e *Engine) Run(ctx context.Context, opts Options) (*model.Report, error) {
	rd, err := e.resolveReader(opts.Tool)
	if err != nil {
		return nil, err
	}
	tool := rd.Tool()
	logging.Info("analyzing %s sessions", tool)

	sessions, err := rd.ReadSessions(ctx, reader.ReadOptions{
		Since:     opts.Since,
		Until:     opts.Until,
		Workspace: opts.Workspace,
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s sessions: %w", tool, err)
	}
	logging.Debug("read %d sessions", len(sessions))

	workspace := opts.Workspace
	if workspace == "" {
		workspace = dominantWorkspace(sessions)
	}
	var ruleFiles []model.RuleFileInfo
	if workspace != "" {
		ruleFiles, err = rd.ReadRuleFiles(workspace)
		if err != nil {
			logging.Warn("reading rule files: %v", err)
		}
	}

	cfg := opts.Config
	if cfg == nil {
		cfg, err = analyzer.NewConfig(analyzer.ConfigOptions{Tool: tool})
		if err != nil {
			return nil, err
		}
	}
	keys := e.applicableKeys(cfg, tool)
	results, err := e.runAnalyzers(ctx, keys, analyzer.Input{
		Sessions:  sessions,
		RuleFiles: ruleFiles,
	})
	if err != nil {
		return nil, err
	}

	report := e.assembleReport(tool, sessions, results, opts)
	e.attachTrends(report)
	e.attachInsights(ctx, report, sessions, ruleFiles)
	e.persist(report, sessions)
	return report, nil
}

func (e *Engine) resolveReader(tool model.Tool) (reader.Reader, error) {
	if tool != "" {
		return e.Registry.ForTool(tool)
	}
	return e.Registry.Detect()
}

// applicableKeys intersects the config with the tool's analyzer set, in
// canonical registry order.
func (e *Engine) applicableKeys(cfg *analyzer.Config, tool model.Tool) []string {
	applicable := map[string]struct{}{}
	for _, k := range analyzer.KeysForTool(tool) {
		applicable[k] = struct{}{}
	}
	var keys []string
	for _, k := range cfg.EnabledKeys() {
		if _, ok := applicable[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// runAnalyzers executes analyzers concurrently. Results come back in key
// order regardless of completion order. A failing analyzer is logged and
// omitted; it never takes the rest of the batch down with it.
func (e *Engine) runAnalyzers(ctx context.Context, keys []string, in analyzer.Input) ([]model.AnalysisResult, error) {
	slots := make([]*model.AnalysisResult, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		a, err := analyzer.New(key, e.Git)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			res, err := a.Analyze(ctx, in)
			if err != nil {
				logging.Warn("analyzer %s failed, omitting: %v", key, err)
				return nil
			}
			slots[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	results := make([]model.AnalysisResult, 0, len(keys))
	for _, res := range slots {
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, nil
}

func (e *Engine) assembleReport(tool model.Tool, sessions []model.Session, results []model.AnalysisResult, opts Options) *model.Report {
	report := &model.Report{
		Tool:         tool,
		PeriodStart:  opts.Since,
		PeriodEnd:    opts.Until,
		OverallScore: overallScore(results),
		Results:      results,
		SessionCount: len(sessions),
		CreatedAt:    time.Now().UTC(),
	}
	for i := range sessions {
		s := &sessions[i]
		report.TotalTurns += s.TurnCount()
		report.TotalTokens += s.TotalTokens()
		report.TotalDurationMinutes += s.DurationMinutes
		if report.PeriodStart.IsZero() || (!s.StartTime.IsZero() && s.StartTime.Before(report.PeriodStart)) {
			report.PeriodStart = s.StartTime
		}
		if !s.EndTime.IsZero() && s.EndTime.After(report.PeriodEnd) {
			report.PeriodEnd = s.EndTime
		}
	}
	// Per-analyzer insights (missing rule files, absent git history) roll
	// up into the report.
	for _, r := range results {
		report.Insights = append(report.Insights, r.Insights...)
	}
	return report
}

// overallScore folds analyzer scores through their weights, renormalized
// over the analyzers present.
func overallScore(results []model.AnalysisResult) float64 {
	weightedSum, weightSum := 0.0, 0.0
	for _, r := range results {
		w, ok := analyzerWeights[r.AnalyzerKey]
		if !ok {
			w = defaultWeight
		}
		weightedSum += r.Score * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return model.ClampScore(weightedSum / weightSum)
}

// attachTrends compares each analyzer's score to its stored history.
func (e *Engine) attachTrends(report *model.Report) {
	if e.Store == nil {
		return
	}
	report.Trends = make(map[string]model.TrendDirection, len(report.Results))
	for _, r := range report.Results {
		report.Trends[r.AnalyzerKey] = e.trendFor(report.Tool, r.AnalyzerKey, r.Score)
	}
}

func (e *Engine) trendFor(tool model.Tool, key string, current float64) model.TrendDirection {
	history, err := e.Store.ScoreHistory(tool, key, 30)
	if err != nil {
		logging.Warn("score history for %s: %v", key, err)
		return model.TrendInsufficientData
	}
	points := make([]store.ScorePoint, 0, len(history)+1)
	points = append(points, store.ScorePoint{Score: current})
	points = append(points, history...)
	return TrendFromHistory(points)
}

// TrendFromHistory classifies the newest sample against the mean of the
// older ones. Points are ordered newest first, matching what the store
// returns.
func TrendFromHistory(points []store.ScorePoint) model.TrendDirection {
	if len(points) < trendSampleMin+1 {
		return model.TrendInsufficientData
	}
	sum := 0.0
	for _, p := range points[1:] {
		sum += p.Score
	}
	diff := points[0].Score - sum/float64(len(points)-1)
	switch {
	case diff > trendDelta:
		return model.TrendImproving
	case diff < -trendDelta:
		return model.TrendDeclining
	}
	return model.TrendStable
}

func (e *Engine) attachInsights(ctx context.Context, report *model.Report, sessions []model.Session, ruleFiles []model.RuleFileInfo) {
	if e.Collaborator == nil {
		return
	}
	resp, err := e.Collaborator.GenerateInsights(ctx, insights.Request{
		Results:   report.Results,
		Sessions:  sessions,
		RuleFiles: ruleFiles,
		Trends:    report.Trends,
	})
	if err != nil {
		logging.Warn("insight generation: %v", err)
		return
	}
	report.OverallAssessment = resp.OverallAssessment
	now := time.Now().UTC()
	for i := range resp.Insights {
		in := resp.Insights[i]
		in.CreatedAt = now
		if in.Trend == "" {
			if dir, ok := report.Trends[in.MetricKey]; ok {
				in.Trend = dir
			}
		}
		report.Insights = append(report.Insights, in)
	}
	insights.SortBySeverity(report.Insights)
}

// persist saves the report and session shapes, then prunes expired
// history. Storage failures degrade to warnings: the report is already in
// hand.
func (e *Engine) persist(report *model.Report, sessions []model.Session) {
	if e.Store == nil {
		return
	}
	if _, err := e.Store.SaveReport(report); err != nil {
		logging.Warn("saving report: %v", err)
	}
	if err := e.Store.RecordSessions(sessions); err != nil {
		logging.Warn("recording sessions: %v", err)
	}
	if err := e.Store.Prune(time.Now().UTC()); err != nil {
		logging.Warn("pruning history: %v", err)
	}
}

// dominantWorkspace picks the workspace most sessions belong to, so rule
// files can be found without an explicit --workspace.
func dominantWorkspace(sessions []model.Session) string {
	counts := map[string]int{}
	best, bestCount := "", 0
	for _, s := range sessions {
		if s.WorkspacePath == "" {
			continue
		}
		counts[s.WorkspacePath]++
		c := counts[s.WorkspacePath]
		if c > bestCount || (c == bestCount && s.WorkspacePath < best) {
			best, bestCount = s.WorkspacePath, c
		}
	}
	return best
}
