package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/scoring"
)

// Signal patterns for user prompt text. Each regexp is matched against the
// raw turn content; weights are tuned so a solid prompt lands near the
// sigmoid midpoint of its dimension.
var (
	identifierRe   = regexp.MustCompile(`\b[a-z_][a-zA-Z0-9_]{2,}\b`)
	lineNumberRe   = regexp.MustCompile(`(?i)line\s+\d+|:\d+`)
	actionVerbRe   = regexp.MustCompile(`(?i)\b(add|remove|rename|change|fix|update|create|delete|move|extract|refactor|implement|replace|modify)\b`)
	techMentionRe  = regexp.MustCompile(`\b(React|Python|TypeScript|FastAPI|SQLAlchemy|Postgres|Redis|Docker|AWS|jest|pytest)\b`)
	vagueRe        = regexp.MustCompile(`(?i)\b(help me|can you|please|something|anything|stuff|things|somehow)\b`)
	expectedRe     = regexp.MustCompile(`(?i)\b(should|expect|want|need|goal|output|result|return)\b`)
	constraintRe   = regexp.MustCompile(`(?i)\b(without|don't|must not|keep|preserve|maintain|backward.?compat)\b`)
	listItemRe     = regexp.MustCompile(`(?m)^\s*(\d+[\.\)]\s|[-*]\s)`)
	imperativeRe   = regexp.MustCompile(`^[A-Z][a-z]`)
	sentenceEndRe  = regexp.MustCompile(`[.!?]+`)
	scopeWordRe    = regexp.MustCompile(`(?i)\b(only|just|specifically|in this file|this function|this class)\b`)
	numberedStepRe = regexp.MustCompile(`(?m)^\s*\d+[\.\)]\s`)
	reasoningRe    = regexp.MustCompile(`(?i)\b(because|since|therefore|so that|in order to|this way)\b`)
	criteriaRe     = regexp.MustCompile(`(?i)\b(acceptance criteria|expected|should (return|output|result|produce|be)|must (return|output|be))\b`)
)

// PromptQuality scores how well user prompts are written: specific,
// contextualized, clear, efficiently sized, and reasoned.
type PromptQuality struct{}

func NewPromptQuality() *PromptQuality { return &PromptQuality{} }

func (a *PromptQuality) Key() string  { return "prompt_quality" }
func (a *PromptQuality) Name() string { return "Prompt Quality" }

func (a *PromptQuality) Analyze(_ context.Context, in Input) (model.AnalysisResult, error) {
	res := emptyResult(a.Key(), a.Name())
	res.SessionCount = len(in.Sessions)
	if len(in.Sessions) == 0 {
		return res, nil
	}
	res.PeriodStart, res.PeriodEnd = periodRange(in.Sessions)

	var specificity, richness, clarity, efficiency, reasoning []float64
	userTurns := 0
	for _, s := range in.Sessions {
		for _, t := range s.UserTurns() {
			userTurns++
			specificity = append(specificity, specificityScore(t))
			richness = append(richness, contextRichnessScore(t))
			clarity = append(clarity, clarityScore(t.Content))
			efficiency = append(efficiency, scoring.Bell(float64(wordCount(t.Content)), 80, 60))
			reasoning = append(reasoning, chainOfThoughtScore(t.Content))
		}
	}
	if userTurns == 0 {
		return res, nil
	}

	dims := map[string]float64{
		"specificity":      mean(specificity),
		"context":          mean(richness),
		"clarity":          mean(clarity),
		"efficiency":       mean(efficiency),
		"chain_of_thought": mean(reasoning),
	}
	res.Score = scoring.WeightedSum([]scoring.Dimension{
		{Score: dims["specificity"], Weight: 0.25},
		{Score: dims["context"], Weight: 0.25},
		{Score: dims["clarity"], Weight: 0.20},
		{Score: dims["efficiency"], Weight: 0.15},
		{Score: dims["chain_of_thought"], Weight: 0.15},
	})
	res.Metrics = map[string]any{
		"user_turns":       userTurns,
		"specificity":      round3(dims["specificity"]),
		"context":          round3(dims["context"]),
		"clarity":          round3(dims["clarity"]),
		"efficiency":       round3(dims["efficiency"]),
		"chain_of_thought": round3(dims["chain_of_thought"]),
	}
	return res, nil
}

// specificityScore rewards prompts that name concrete files, identifiers,
// locations, and actions. Very short prompts score a flat floor.
func specificityScore(t model.ConversationTurn) float64 {
	words := wordCount(t.Content)
	if words < 5 {
		return 0.1
	}
	signals := 0.0
	if len(t.FileReferences) > 0 {
		signals += 1.0
	}
	switch ids := len(identifierRe.FindAllString(t.Content, -1)); {
	case ids >= 2:
		signals += 1.5
	case ids >= 1:
		signals += 0.8
	}
	if lineNumberRe.MatchString(t.Content) {
		signals += 1.0
	}
	if actionVerbRe.MatchString(t.Content) {
		signals += 1.0
	}
	if techMentionRe.MatchString(t.Content) {
		signals += 0.8
	}
	if words >= 20 && words <= 200 {
		signals += 1.0
	}
	signals -= 0.5 * float64(len(vagueRe.FindAllString(t.Content, -1)))
	if signals < 0 {
		signals = 0
	}
	return scoring.Sigmoid(signals, 4, 0.8)
}

// contextRichnessScore rewards prompts carrying the material the assistant
// needs: file references, error output, code, expectations, constraints.
func contextRichnessScore(t model.ConversationTurn) float64 {
	signals := 0.0
	switch refs := len(t.FileReferences); {
	case refs >= 3:
		signals += 1.5
	case refs >= 1:
		signals += 1.0
	}
	if t.HasErrorContext {
		signals += 1.0
	}
	if t.HasCodeSnippet {
		signals += 1.0
	}
	if expectedRe.MatchString(t.Content) {
		signals += 0.8
	}
	if constraintRe.MatchString(t.Content) {
		signals += 0.7
	}
	return scoring.Sigmoid(signals, 3, 0.7)
}

func clarityScore(text string) float64 {
	signals := 0.0
	if listItemRe.MatchString(text) {
		signals += 1.2
	}
	if imperativeRe.MatchString(text) {
		signals += 0.5
	}
	words := wordCount(text)
	if strings.HasSuffix(strings.TrimSpace(text), "?") && words < 10 {
		signals -= 0.8
	}
	switch sentences := len(sentenceEndRe.FindAllString(text, -1)); {
	case sentences >= 1 && sentences <= 5:
		signals += 1.0
	case sentences > 10:
		signals -= 0.5
	}
	switch {
	case words >= 10 && words <= 300:
		signals += 1.0
	case words < 10:
		signals += 0.2
	}
	if strings.Contains(text, "```") || strings.Contains(text, "**") || strings.Contains(text, "`") {
		signals += 0.8
	}
	if scopeWordRe.MatchString(text) {
		signals += 1.0
	}
	if signals < 0 {
		signals = 0
	}
	return scoring.Sigmoid(signals, 3, 0.6)
}

// chainOfThoughtScore rewards prompts that lay out steps, reasoning, and
// success criteria up front.
func chainOfThoughtScore(text string) float64 {
	signals := 0.0
	if numberedStepRe.MatchString(text) {
		signals += 1.0
	}
	if reasoningRe.MatchString(text) {
		signals += 1.0
	}
	if criteriaRe.MatchString(text) {
		signals += 0.8
	}
	if expectedRe.MatchString(text) && constraintRe.MatchString(text) {
		signals += 1.0
	}
	return scoring.Sigmoid(signals, 2, 0.8)
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
