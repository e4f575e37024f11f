package analyzer

import (
	"context"
	"math"

	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/scoring"
)

// CompletionPatterns scores inline-completion workflows (Copilot):
// acceptance rate, suggestion quality, language diversity, and latency.
// Sessions without event data fall back to the acceptance_rate metadata
// the log reader records.
type CompletionPatterns struct{}

func NewCompletionPatterns() *CompletionPatterns { return &CompletionPatterns{} }

func (a *CompletionPatterns) Key() string  { return "completion_patterns" }
func (a *CompletionPatterns) Name() string { return "Completion Patterns" }

func (a *CompletionPatterns) Analyze(_ context.Context, in Input) (model.AnalysisResult, error) {
	res := emptyResult(a.Key(), a.Name())
	res.SessionCount = len(in.Sessions)
	if len(in.Sessions) == 0 {
		return res, nil
	}
	res.PeriodStart, res.PeriodEnd = periodRange(in.Sessions)

	var events []model.CompletionEvent
	var sessionRates []float64
	eventSessions := 0
	for _, s := range in.Sessions {
		if evs, ok := s.Metadata["events"].([]model.CompletionEvent); ok && len(evs) > 0 {
			events = append(events, evs...)
			eventSessions++
			continue
		}
		if rate, ok := s.Metadata["acceptance_rate"].(float64); ok {
			sessionRates = append(sessionRates, rate)
		}
	}

	acceptanceDim := 0.5 // neutral without acceptance data
	acceptanceRate := -1.0
	switch {
	case len(events) > 0:
		accepted := 0
		for _, e := range events {
			if e.Accepted {
				accepted++
			}
		}
		acceptanceRate = float64(accepted) / float64(len(events))
	case len(sessionRates) > 0:
		acceptanceRate = mean(sessionRates)
	}
	if acceptanceRate >= 0 {
		// Full marks at 80% acceptance; roughly linear below.
		acceptanceDim = scoring.LinearClamp(acceptanceRate, 0, 0.8)
	}

	qualityDim := 0.5
	if len(events) > 0 {
		qualityDim = suggestionQuality(events, eventSessions)
	}

	languages := map[string]struct{}{}
	for _, e := range events {
		if e.Language != "" && e.Language != "unknown" {
			languages[e.Language] = struct{}{}
		}
	}
	for _, s := range in.Sessions {
		if langs, ok := s.Metadata["languages"].([]string); ok {
			for _, l := range langs {
				if l != "" && l != "unknown" {
					languages[l] = struct{}{}
				}
			}
		}
	}
	diversityDim := scoring.CountScore(len(languages), []scoring.Threshold{
		{Count: 0, Score: 0.12},
		{Count: 1, Score: 0.28},
		{Count: 2, Score: 0.40},
		{Count: 3, Score: 0.60},
		{Count: 4, Score: 0.80},
		{Count: 5, Score: 1.00},
	})

	latencyDim := 0.5 // neutral when logs carry no latency figures
	var latencies []float64
	for _, e := range events {
		if e.LatencyMs > 0 {
			latencies = append(latencies, e.LatencyMs)
		}
	}
	if len(latencies) > 0 {
		// Sub-100ms suggestions score near 1; past two seconds near 0.
		latencyDim = 1 - scoring.Sigmoid(mean(latencies), 700, 0.004)
	}

	res.Score = scoring.WeightedSum([]scoring.Dimension{
		{Score: acceptanceDim, Weight: 0.25},
		{Score: qualityDim, Weight: 0.25},
		{Score: diversityDim, Weight: 0.25},
		{Score: latencyDim, Weight: 0.25},
	})
	res.Metrics = map[string]any{
		"total_events":    len(events),
		"languages":       len(languages),
		"acceptance_rate": round3(math.Max(acceptanceRate, 0)),
	}
	if len(latencies) > 0 {
		res.Metrics["avg_latency_ms"] = round3(mean(latencies))
	}
	return res, nil
}

// suggestionQuality blends three signals: accepted suggestions near the
// 2-10 line sweet spot, acceptance consistency between the first and
// second half of the stream, and event volume per session.
func suggestionQuality(events []model.CompletionEvent, sessions int) float64 {
	var acceptedLens []float64
	for _, e := range events {
		if e.Accepted && e.SuggestionLength > 0 {
			acceptedLens = append(acceptedLens, float64(e.SuggestionLength))
		}
	}
	lengthSignal := 0.5
	if len(acceptedLens) > 0 {
		lengthSignal = scoring.Bell(mean(acceptedLens), 6, 4)
	}

	consistency := 0.5
	if len(events) >= 10 {
		half := len(events) / 2
		consistency = 1 - math.Abs(acceptShare(events[:half])-acceptShare(events[half:]))
	}

	perSession := float64(len(events))
	if sessions > 0 {
		perSession = float64(len(events)) / float64(sessions)
	}
	volume := scoring.Diminishing(perSession, 20)

	return scoring.WeightedSum([]scoring.Dimension{
		{Score: lengthSignal, Weight: 0.4},
		{Score: consistency, Weight: 0.3},
		{Score: volume, Weight: 0.3},
	}) / 100
}

func acceptShare(events []model.CompletionEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	n := 0
	for _, e := range events {
		if e.Accepted {
			n++
		}
	}
	return float64(n) / float64(len(events))
}
