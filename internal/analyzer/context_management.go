package analyzer

import (
	"context"
	"regexp"

	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/scoring"
)

// Prompts matching these describe a failure without necessarily showing
// it; they are the ones that ought to carry error output.
var needsErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(doesn't work|not working|broken|fails|failing|issue|problem)\b`),
	regexp.MustCompile(`(?i)(why (is|does|doesn't)|what's wrong|can't figure out)`),
}

const contextWindowTokens = 200000

// ContextManagement measures whether the user gives the assistant the
// context it needs: file references, error output, code, scoped asks, and
// sensible context-window utilization.
type ContextManagement struct{}

func NewContextManagement() *ContextManagement { return &ContextManagement{} }

func (a *ContextManagement) Key() string  { return "context_management" }
func (a *ContextManagement) Name() string { return "Context Management" }

func (a *ContextManagement) Analyze(_ context.Context, in Input) (model.AnalysisResult, error) {
	res := emptyResult(a.Key(), a.Name())
	res.SessionCount = len(in.Sessions)
	if len(in.Sessions) == 0 {
		return res, nil
	}
	res.PeriodStart, res.PeriodEnd = periodRange(in.Sessions)

	userTurns := 0
	withRefs, withCode := 0, 0
	needingError, havingError := 0, 0
	var scopeScores, utilizations []float64

	for _, s := range in.Sessions {
		for _, t := range s.UserTurns() {
			userTurns++
			if len(t.FileReferences) > 0 {
				withRefs++
			}
			if t.HasCodeSnippet {
				withCode++
			}
			if matchesAny(needsErrorPatterns, t.Content) {
				needingError++
				if t.HasErrorContext {
					havingError++
				}
			}
			scopeScores = append(scopeScores, scopeClarity(t))
		}
		if tokens := s.TotalTokens(); tokens > 0 {
			u := float64(tokens) / contextWindowTokens
			if u > 1 {
				u = 1
			}
			utilizations = append(utilizations, u)
		}
	}
	if userTurns == 0 {
		return res, nil
	}

	fileRefRate := float64(withRefs) / float64(userTurns)
	codeRate := float64(withCode) / float64(userTurns)

	errorDim := 0.5 // neutral when nothing looked like a failure report
	if needingError > 0 {
		errorDim = scoring.Sigmoid(float64(havingError)/float64(needingError), 0.4, 5)
	}
	utilizationDim := 0.3 // neutral when token counts are unavailable
	if len(utilizations) > 0 {
		utilizationDim = scoring.Bell(mean(utilizations), 0.4, 0.25)
	}

	fileDim := scoring.Sigmoid(fileRefRate, 0.25, 8)
	codeDim := scoring.Sigmoid(codeRate, 0.2, 6)
	scopeDim := scoring.Sigmoid(mean(scopeScores), 0.4, 4)

	res.Score = scoring.WeightedSum([]scoring.Dimension{
		{Score: fileDim, Weight: 0.25},
		{Score: errorDim, Weight: 0.20},
		{Score: codeDim, Weight: 0.20},
		{Score: scopeDim, Weight: 0.15},
		{Score: utilizationDim, Weight: 0.20},
	})
	res.Metrics = map[string]any{
		"user_turns":            userTurns,
		"file_reference_rate":   round3(fileRefRate),
		"code_snippet_rate":     round3(codeRate),
		"error_needing_turns":   needingError,
		"error_inclusion_turns": havingError,
		"avg_scope_clarity":     round3(mean(scopeScores)),
	}
	return res, nil
}

// scopeClarity scores one prompt's boundedness on [0,1]: explicit scope
// words, concrete references, a reasonable length, named identifiers, and
// stated constraints.
func scopeClarity(t model.ConversationTurn) float64 {
	score := 0.0
	if scopeWordRe.MatchString(t.Content) {
		score += 0.3
	}
	if len(t.FileReferences) > 0 {
		score += 0.25
	}
	switch words := wordCount(t.Content); {
	case words >= 15 && words <= 200:
		score += 0.2
	case words >= 5:
		score += 0.1
	}
	if len(identifierRe.FindAllString(t.Content, -1)) >= 2 {
		score += 0.15
	}
	if constraintRe.MatchString(t.Content) {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
