// Package insights turns analyzer results into coaching recommendations.
// Numeric scoring always stays local; the optional LLM collaborator only
// writes the prose.
package insights

import (
	"context"
	"fmt"
	"sort"

	"github.com/blackwell-systems/aireflect/internal/model"
)

// Request is everything a collaborator may draw on when writing insights.
type Request struct {
	Results   []model.AnalysisResult
	Sessions  []model.Session
	RuleFiles []model.RuleFileInfo
	Trends    map[string]model.TrendDirection
}

// Response is a collaborator's parsed output.
type Response struct {
	OverallAssessment string          `json:"overall_assessment"`
	Insights          []model.Insight `json:"insights"`
}

// Collaborator produces coaching insights from analysis data. The CLI
// implementation shells out to Claude Code; tests substitute their own.
type Collaborator interface {
	GenerateInsights(ctx context.Context, req Request) (*Response, error)
}

var severityOrder = map[model.InsightSeverity]int{
	model.SeverityCritical:   0,
	model.SeverityWarning:    1,
	model.SeveritySuggestion: 2,
	model.SeverityInfo:       3,
}

// SortBySeverity orders insights critical first, info last. The sort is
// stable so insights within a severity keep their generation order.
func SortBySeverity(insights []model.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		oi, ok := severityOrder[insights[i].Severity]
		if !ok {
			oi = 99
		}
		oj, ok := severityOrder[insights[j].Severity]
		if !ok {
			oj = 99
		}
		return oi < oj
	})
}

// ruleBasedAdvice maps analyzer keys to canned recommendations used when no
// LLM is available. Only low-scoring analyzers surface advice.
var ruleBasedAdvice = map[string]struct {
	title          string
	recommendation string
}{
	"prompt_quality": {
		"Prompts could carry more detail",
		"Name the files and functions you want changed, state the expected behavior, and mention constraints up front.",
	},
	"conversation_flow": {
		"Conversations take many rounds to converge",
		"Front-load requirements in the first message instead of correcting course over several turns.",
	},
	"context_management": {
		"Prompts often omit needed context",
		"Paste error output verbatim and reference the files involved when reporting failures.",
	},
	"tool_usage": {
		"Built-in tools are underused",
		"Let the assistant search and edit through its own tools rather than pasting code or asking for manual steps.",
	},
	"session_patterns": {
		"Session habits look fragmented",
		"Batch related work into focused sessions of roughly half an hour instead of many scattered short ones.",
	},
	"rule_file": {
		"Instruction files need attention",
		"Expand the project instruction file with concrete conventions, examples, and things to avoid.",
	},
	"completion_patterns": {
		"Completion acceptance is low",
		"Write a few words of intent before pausing for a suggestion; completions improve with leading context.",
	},
	"outcome_tracker": {
		"Assisted work shows rework",
		"Review generated changes before committing; follow-up fix commits suggest accepting output too quickly.",
	},
}

// ruleBasedThreshold is the score below which an analyzer earns advice.
const ruleBasedThreshold = 50.0

// RuleBased is a Collaborator that needs no external process: it emits
// canned advice for low-scoring analyzers.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

func (g *RuleBased) GenerateInsights(_ context.Context, req Request) (*Response, error) {
	resp := &Response{}
	for _, r := range req.Results {
		advice, ok := ruleBasedAdvice[r.AnalyzerKey]
		if !ok || r.Score >= ruleBasedThreshold {
			continue
		}
		severity := model.SeveritySuggestion
		if r.Score < 25 {
			severity = model.SeverityWarning
		}
		resp.Insights = append(resp.Insights, model.Insight{
			Category:       r.AnalyzerKey,
			Title:          advice.title,
			Severity:       severity,
			Recommendation: advice.recommendation,
			Evidence:       fmt.Sprintf("%s scored %.0f/100", r.AnalyzerName, r.Score),
			MetricKey:      r.AnalyzerKey,
			MetricValue:    r.Score,
		})
	}
	SortBySeverity(resp.Insights)
	return resp, nil
}
