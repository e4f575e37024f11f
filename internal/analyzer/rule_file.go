package analyzer

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/scoring"
)

// primaryRuleFiles maps each tool to the file type that carries the main
// project instructions.
var primaryRuleFiles = map[model.Tool]string{
	model.ToolClaudeCode: "claude_md",
	model.ToolCursor:     "cursorrules",
	model.ToolCopilot:    "copilot_instructions",
}

// Specificity patterns, measured as matches per line of the primary file.
// Generic advice matches none of these; concrete guidance matches several.
var specificityRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(use|prefer|always use|never use)\s+\w+`),
	regexp.MustCompile("`[^`]+`"),
	regexp.MustCompile(`\b\d+\.\d+(\.\d+)?\b`),
	regexp.MustCompile(`(?i)\b(import|require|from)\s+\S+`),
	regexp.MustCompile(`(?i)\b(directory|folder|path)\b|/\w+/`),
}

var (
	emphasisRe = regexp.MustCompile(`\*\*[^*]+\*\*|(?i)\b(important|critical|note|warning)\b`)
	doLineRe   = regexp.MustCompile(`(?im)^\s*[-*\d.)]*\s*(always|do|use|prefer)\b`)
	dontLineRe = regexp.MustCompile(`(?im)^\s*[-*\d.)]*\s*(never|don't|do not|avoid)\b`)
)

// RuleFile scores the quality of instruction files (CLAUDE.md,
// .cursorrules, copilot-instructions.md and their ecosystems).
type RuleFile struct{}

func NewRuleFile() *RuleFile { return &RuleFile{} }

func (a *RuleFile) Key() string  { return "rule_file" }
func (a *RuleFile) Name() string { return "Rule File Quality" }

func (a *RuleFile) Analyze(_ context.Context, in Input) (model.AnalysisResult, error) {
	res := emptyResult(a.Key(), a.Name())
	res.SessionCount = len(in.Sessions)
	res.PeriodStart, res.PeriodEnd = periodRange(in.Sessions)

	if len(in.RuleFiles) == 0 {
		res.Insights = append(res.Insights, model.Insight{
			Category:       a.Key(),
			Title:          "No rule files checked",
			Severity:       model.SeverityWarning,
			Recommendation: "Point analysis at a workspace so instruction files can be evaluated.",
		})
		return res, nil
	}

	var existing []model.RuleFileInfo
	for _, f := range in.RuleFiles {
		if f.Exists {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		res.Score = 10
		res.Metrics = map[string]any{
			"existing_count": 0,
			"total_checked":  len(in.RuleFiles),
		}
		res.Insights = append(res.Insights, model.Insight{
			Category:       a.Key(),
			Title:          "No instruction files found",
			Severity:       model.SeverityWarning,
			Recommendation: "Create a project instruction file so the assistant starts every session with your conventions.",
		})
		return res, nil
	}

	primary := findPrimary(existing)

	completenessDim := completenessScore(primary)
	specificityDim := 0.3
	actionabilityDim := 0.3
	if primary != nil && primary.RawContent != "" {
		specificityDim = scoring.Sigmoid(specificityDensity(primary.RawContent), 0.15, 8)
		actionabilityDim = scoring.Sigmoid(actionabilitySignals(primary.RawContent), 5, 0.5)
	}
	currencyDim := currencyScore(existing)

	distinctTypes := map[string]struct{}{}
	for _, f := range existing {
		distinctTypes[f.FileType] = struct{}{}
	}
	ecosystemDim := scoring.CountScore(len(distinctTypes), []scoring.Threshold{
		{Count: 1, Score: 0.30},
		{Count: 2, Score: 0.50},
		{Count: 3, Score: 0.70},
		{Count: 4, Score: 0.85},
		{Count: 5, Score: 1.00},
	})

	res.Score = scoring.WeightedSum([]scoring.Dimension{
		{Score: completenessDim, Weight: 0.25},
		{Score: specificityDim, Weight: 0.25},
		{Score: actionabilityDim, Weight: 0.20},
		{Score: currencyDim, Weight: 0.15},
		{Score: ecosystemDim, Weight: 0.15},
	})
	res.Metrics = map[string]any{
		"existing_count": len(existing),
		"total_checked":  len(in.RuleFiles),
		"distinct_types": len(distinctTypes),
		"has_primary":    primary != nil,
	}
	if primary == nil {
		res.Insights = append(res.Insights, model.Insight{
			Category:       a.Key(),
			Title:          "Primary instruction file missing",
			Severity:       model.SeveritySuggestion,
			Recommendation: "Add the tool's main instruction file; auxiliary rule files alone carry less weight.",
		})
	}
	return res, nil
}

func findPrimary(files []model.RuleFileInfo) *model.RuleFileInfo {
	for i, f := range files {
		if primaryRuleFiles[f.Tool] == f.FileType {
			return &files[i]
		}
	}
	return nil
}

// completenessScore rewards a substantial primary file covering project
// context, examples, constraints, and style.
func completenessScore(primary *model.RuleFileInfo) float64 {
	if primary == nil {
		return scoring.Sigmoid(0, 3, 0.8)
	}
	signals := 0.0
	switch {
	case primary.WordCount >= 800:
		signals += 1.5
	case primary.WordCount >= 300:
		signals += 1.0
	case primary.WordCount >= 100:
		signals += 0.5
	}
	if primary.HasProjectContext {
		signals += 1.0
	}
	if primary.HasExamples {
		signals += 1.0
	}
	if primary.HasConstraints {
		signals += 1.0
	}
	if primary.HasStyleGuide {
		signals += 0.8
	}
	dim := scoring.Sigmoid(signals, 3, 0.8) + 0.15
	if dim > 1 {
		dim = 1
	}
	return dim
}

func specificityDensity(content string) float64 {
	lines := strings.Count(content, "\n") + 1
	matches := 0
	for _, re := range specificityRes {
		matches += len(re.FindAllString(content, -1))
	}
	return float64(matches) / float64(lines)
}

func actionabilitySignals(content string) float64 {
	lines := strings.Count(content, "\n") + 1
	listLines := len(listItemRe.FindAllString(content, -1))
	signals := float64(listLines) / float64(lines) * 10
	signals += float64(len(emphasisRe.FindAllString(content, -1))) * 0.3
	dos := len(doLineRe.FindAllString(content, -1))
	if dos > 5 {
		dos = 5
	}
	donts := len(dontLineRe.FindAllString(content, -1))
	if donts > 5 {
		donts = 5
	}
	signals += float64(dos)*0.3 + float64(donts)*0.3
	return signals
}

// currencyScore decays with days since the newest rule file was touched.
// Missing timestamps are neutral.
func currencyScore(files []model.RuleFileInfo) float64 {
	var newest time.Time
	for _, f := range files {
		if f.LastModified.After(newest) {
			newest = f.LastModified
		}
	}
	if newest.IsZero() {
		return 0.5
	}
	days := time.Since(newest).Hours() / 24
	return 1 - scoring.Sigmoid(days, 45, 0.05)
}
