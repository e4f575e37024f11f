package analyzer

import (
	"context"
	"sort"
	"time"

	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/scoring"
)

const (
	// deepWorkGap chains sessions into a work block; a block spanning
	// deepWorkSpan or more counts as deep work.
	deepWorkGap  = 15 * time.Minute
	deepWorkSpan = 120 * time.Minute

	// fatigue detection: long, chatty sessions where prompts visibly
	// shrink toward the end.
	fatigueMinDuration  = 30.0
	fatigueMinUserTurns = 4
	fatigueShrinkRatio  = 0.6
)

// SessionPatterns scores working habits: session length, daily cadence,
// task variety, fatigue, and sustained deep-work blocks.
type SessionPatterns struct{}

func NewSessionPatterns() *SessionPatterns { return &SessionPatterns{} }

func (a *SessionPatterns) Key() string  { return "session_patterns" }
func (a *SessionPatterns) Name() string { return "Session Patterns" }

func (a *SessionPatterns) Analyze(_ context.Context, in Input) (model.AnalysisResult, error) {
	res := emptyResult(a.Key(), a.Name())
	res.SessionCount = len(in.Sessions)
	if len(in.Sessions) == 0 {
		return res, nil
	}
	res.PeriodStart, res.PeriodEnd = periodRange(in.Sessions)

	var durations []float64
	days := map[string]struct{}{}
	typeCounts := map[string]int{}
	fatigued := 0
	for _, s := range in.Sessions {
		durations = append(durations, s.DurationMinutes)
		if !s.StartTime.IsZero() {
			days[s.StartTime.UTC().Format("2006-01-02")] = struct{}{}
		}
		typeCounts[string(s.SessionType)]++
		if showsFatigue(s) {
			fatigued++
		}
	}

	activeTypes := 0
	for _, n := range typeCounts {
		if float64(n)/float64(len(in.Sessions)) > 0.05 {
			activeTypes++
		}
	}

	dayCount := len(days)
	if dayCount < 1 {
		dayCount = 1
	}
	sessionsPerDay := float64(len(in.Sessions)) / float64(dayCount)
	fatigueRate := float64(fatigued) / float64(len(in.Sessions))
	deepWorkRatio := deepWorkShare(in.Sessions)

	durationDim := scoring.Bell(mean(durations), 35, 20)
	frequencyDim := scoring.Bell(sessionsPerDay, 4, 2.5)
	diversityDim := scoring.Diminishing(float64(activeTypes), 5)
	fatigueDim := 1 - scoring.Sigmoid(fatigueRate, 0.2, 8)
	deepWorkDim := scoring.Sigmoid(deepWorkRatio, 0.4, 4)

	res.Score = scoring.WeightedSum([]scoring.Dimension{
		{Score: durationDim, Weight: 0.20},
		{Score: frequencyDim, Weight: 0.20},
		{Score: diversityDim, Weight: 0.15},
		{Score: fatigueDim, Weight: 0.20},
		{Score: deepWorkDim, Weight: 0.25},
	})
	res.Metrics = map[string]any{
		"avg_duration_minutes": round3(mean(durations)),
		"sessions_per_day":     round3(sessionsPerDay),
		"active_session_types": activeTypes,
		"session_types":        topN(typeCounts, 5),
		"fatigue_rate":         round3(fatigueRate),
		"deep_work_ratio":      round3(deepWorkRatio),
	}
	return res, nil
}

// showsFatigue reports whether a long session's prompts shrink markedly in
// its second half.
func showsFatigue(s model.Session) bool {
	if s.DurationMinutes < fatigueMinDuration {
		return false
	}
	user := s.UserTurns()
	if len(user) < fatigueMinUserTurns {
		return false
	}
	half := len(user) / 2
	var first, second []float64
	for i, t := range user {
		w := float64(wordCount(t.Content))
		if i < half {
			first = append(first, w)
		} else {
			second = append(second, w)
		}
	}
	firstAvg := mean(first)
	if firstAvg == 0 {
		return false
	}
	return mean(second) < firstAvg*fatigueShrinkRatio
}

// deepWorkShare chains sessions separated by at most deepWorkGap into
// blocks and returns the share of sessions inside blocks spanning at least
// deepWorkSpan.
func deepWorkShare(sessions []model.Session) float64 {
	var timed []model.Session
	for _, s := range sessions {
		if !s.StartTime.IsZero() && !s.EndTime.IsZero() {
			timed = append(timed, s)
		}
	}
	if len(timed) == 0 {
		return 0
	}
	sort.Slice(timed, func(i, j int) bool { return timed[i].StartTime.Before(timed[j].StartTime) })

	inDeepWork := 0
	blockStart, blockEnd, blockLen := timed[0].StartTime, timed[0].EndTime, 1
	flush := func() {
		if blockEnd.Sub(blockStart) >= deepWorkSpan {
			inDeepWork += blockLen
		}
	}
	for _, s := range timed[1:] {
		if s.StartTime.Sub(blockEnd) <= deepWorkGap {
			if s.EndTime.After(blockEnd) {
				blockEnd = s.EndTime
			}
			blockLen++
			continue
		}
		flush()
		blockStart, blockEnd, blockLen = s.StartTime, s.EndTime, 1
	}
	flush()
	return float64(inDeepWork) / float64(len(timed))
}
