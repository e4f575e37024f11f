package analyzer

import (
	"context"
	"regexp"

	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/scoring"
)

// Conversation signal tables. A turn counts once per table regardless of
// how many patterns in it match.
var (
	correctionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(no|wrong|incorrect|that's not|not what I|I said|I meant|instead)\b`),
		regexp.MustCompile(`(?i)\b(try again|redo|undo|revert|go back|start over)\b`),
		regexp.MustCompile(`(?i)\b(actually|wait|hold on|scratch that|never mind)\b`),
	}
	restatementPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(as I (said|mentioned)|like I said|remember|I already|again)\b`),
		regexp.MustCompile(`(?i)\b(the file I mentioned|the error (I showed|from before))\b`),
		regexp.MustCompile(`(?i)\b(same (file|function|error|issue)|still)\b`),
	}
	completionPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(thanks|perfect|great|looks good|that works|exactly|done)\b`),
		regexp.MustCompile(`(?i)\b(ship it|lgtm|merge|approved|nice)\b`),
	}
	followUpPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(but|however|also|what about|one more|can you also)\b`),
		regexp.MustCompile(`(?i)\b(close but|almost|not quite|partially)\b`),
	}
)

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// ConversationFlow measures how efficiently conversations converge: few
// turns, few corrections, no context loss, and quick first acceptance.
type ConversationFlow struct{}

func NewConversationFlow() *ConversationFlow { return &ConversationFlow{} }

func (a *ConversationFlow) Key() string  { return "conversation_flow" }
func (a *ConversationFlow) Name() string { return "Conversation Flow" }

func (a *ConversationFlow) Analyze(_ context.Context, in Input) (model.AnalysisResult, error) {
	res := emptyResult(a.Key(), a.Name())
	res.SessionCount = len(in.Sessions)
	if len(in.Sessions) == 0 {
		return res, nil
	}
	res.PeriodStart, res.PeriodEnd = periodRange(in.Sessions)

	var turnCounts, correctionRates, restatementRates, acceptances []float64
	for _, s := range in.Sessions {
		user := s.UserTurns()
		if len(user) == 0 {
			continue
		}
		turnCounts = append(turnCounts, float64(len(user)))

		corrections, restatements := 0, 0
		for _, t := range user {
			if matchesAny(correctionPatterns, t.Content) {
				corrections++
			}
			if matchesAny(restatementPatterns, t.Content) {
				restatements++
			}
		}
		correctionRates = append(correctionRates, float64(corrections)/float64(len(user)))
		restatementRates = append(restatementRates, float64(restatements)/float64(len(user)))
		acceptances = append(acceptances, firstAcceptance(user))
	}
	if len(turnCounts) == 0 {
		return res, nil
	}

	avgTurns := mean(turnCounts)
	avgCorrection := mean(correctionRates)
	avgRestatement := mean(restatementRates)
	avgAcceptance := mean(acceptances)

	// Each dimension degrades linearly from ideal to a hard floor: 2 user
	// turns is ideal, and a correction or restatement rate of one in three
	// zeroes the dimension.
	turnsDim := 1 - scoring.LinearClamp(avgTurns, 2, 8)
	correctionDim := 1 - scoring.LinearClamp(avgCorrection, 0, 1.0/3.0)
	restatementDim := 1 - scoring.LinearClamp(avgRestatement, 0, 1.0/3.0)

	res.Score = scoring.WeightedSum([]scoring.Dimension{
		{Score: turnsDim, Weight: 0.25},
		{Score: correctionDim, Weight: 0.25},
		{Score: restatementDim, Weight: 0.25},
		{Score: avgAcceptance, Weight: 0.25},
	})
	res.Metrics = map[string]any{
		"avg_user_turns":        round3(avgTurns),
		"correction_rate":       round3(avgCorrection),
		"restatement_rate":      round3(avgRestatement),
		"first_acceptance_rate": round3(avgAcceptance),
	}
	return res, nil
}

// firstAcceptance scores how the user reacted to the first assistant
// response: a clean acceptance is 1, a follow-up counts half, anything
// else zero. Single-turn sessions count as accepted.
func firstAcceptance(user []model.ConversationTurn) float64 {
	if len(user) < 2 {
		return 1.0
	}
	second := user[1].Content
	switch {
	case matchesAny(completionPhrases, second) && !matchesAny(correctionPatterns, second):
		return 1.0
	case matchesAny(followUpPhrases, second):
		return 0.5
	}
	return 0
}
