package analyzer

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/aireflect/internal/gitlog"
	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/scoring"
)

// Rework markers on lowercased commit subjects.
var reworkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(fix|revert|undo|rollback|hotfix|patch)\b`),
	regexp.MustCompile(`\b(typo|oops|again|retry|re-do)\b`),
	regexp.MustCompile(`\b(bug|broken|wrong|incorrect)\b`),
}

var lowQualitySubjectRe = regexp.MustCompile(`^(wip|update|fix|changes|stuff)\b`)

// OutcomeTracker correlates sessions with git history: how much of the
// commit stream is AI-assisted, how productive sessions are, and whether
// assisted work gets reworked.
type OutcomeTracker struct {
	source gitlog.Source
}

func NewOutcomeTracker(source gitlog.Source) *OutcomeTracker {
	return &OutcomeTracker{source: source}
}

func (a *OutcomeTracker) Key() string  { return "outcome_tracker" }
func (a *OutcomeTracker) Name() string { return "Outcome Tracker" }

func (a *OutcomeTracker) Analyze(ctx context.Context, in Input) (model.AnalysisResult, error) {
	res := emptyResult(a.Key(), a.Name())
	res.SessionCount = len(in.Sessions)
	if len(in.Sessions) == 0 {
		return res, nil
	}
	res.PeriodStart, res.PeriodEnd = periodRange(in.Sessions)

	since := res.PeriodStart
	if since.IsZero() {
		since = time.Now().UTC().AddDate(0, 0, -30)
	}

	commits, err := a.collectCommits(ctx, in.Sessions, since)
	if err != nil {
		return res, err
	}
	if len(commits) == 0 {
		res.Score = 50 // neutral: no history to judge against
		res.Metrics = map[string]any{
			"git_available": false,
			"commits_found": 0,
		}
		res.Insights = append(res.Insights, model.Insight{
			Category:       a.Key(),
			Title:          "No git history found",
			Severity:       model.SeverityInfo,
			Recommendation: "Run analysis from inside a git workspace to correlate sessions with commits.",
		})
		return res, nil
	}

	assisted, total := gitlog.CorrelateCommits(in.Sessions, commits)
	assistedRate := float64(assisted) / float64(total)

	var sessionHours float64
	for _, s := range in.Sessions {
		sessionHours += s.DurationMinutes / 60
	}
	commitsPerHour := 0.0
	if sessionHours > 0 {
		commitsPerHour = float64(assisted) / sessionHours
	}

	reworkRate := shareMatching(commits, isRework)

	commitRateDim := scoring.Sigmoid(assistedRate, 0.4, 5)
	productivityDim := scoring.Sigmoid(commitsPerHour, 1.0, 2)
	reworkDim := 1 - scoring.Sigmoid(reworkRate, 0.12, 10)
	qualityDim := commitQuality(commits)
	trendDim := scoring.Sigmoid(reworkTrend(commits), 0, 3)

	res.Score = scoring.WeightedSum([]scoring.Dimension{
		{Score: commitRateDim, Weight: 0.20},
		{Score: productivityDim, Weight: 0.20},
		{Score: reworkDim, Weight: 0.25},
		{Score: qualityDim, Weight: 0.15},
		{Score: trendDim, Weight: 0.20},
	})
	res.Metrics = map[string]any{
		"git_available":    true,
		"commits_found":    total,
		"assisted_commits": assisted,
		"assisted_rate":    round3(assistedRate),
		"commits_per_hour": round3(commitsPerHour),
		"rework_rate":      round3(reworkRate),
	}
	return res, nil
}

// collectCommits gathers history for every distinct session workspace.
func (a *OutcomeTracker) collectCommits(ctx context.Context, sessions []model.Session, since time.Time) ([]gitlog.Commit, error) {
	workspaces := map[string]struct{}{}
	for _, s := range sessions {
		if s.WorkspacePath != "" {
			workspaces[s.WorkspacePath] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(workspaces))
	for w := range workspaces {
		sorted = append(sorted, w)
	}
	sort.Strings(sorted)

	var all []gitlog.Commit
	for _, w := range sorted {
		commits, err := a.source.Commits(ctx, w, since)
		if err != nil {
			return nil, err
		}
		all = append(all, commits...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all, nil
}

func isRework(c gitlog.Commit) bool {
	subject := strings.ToLower(c.Subject)
	for _, re := range reworkPatterns {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}

func shareMatching(commits []gitlog.Commit, pred func(gitlog.Commit) bool) float64 {
	if len(commits) == 0 {
		return 0
	}
	n := 0
	for _, c := range commits {
		if pred(c) {
			n++
		}
	}
	return float64(n) / float64(len(commits))
}

// commitQuality scores hygiene on [0,1]: descriptive subjects, a sane
// commit cadence, and few throwaway messages.
func commitQuality(commits []gitlog.Commit) float64 {
	var subjectLens []float64
	for _, c := range commits {
		subjectLens = append(subjectLens, float64(len(c.Subject)))
	}
	score := 0.0
	switch avg := mean(subjectLens); {
	case avg >= 30:
		score += 0.35
	case avg >= 15:
		score += 0.20
	}

	if len(commits) >= 3 {
		var gaps []float64
		for i := 1; i < len(commits); i++ {
			gaps = append(gaps, commits[i].Timestamp.Sub(commits[i-1].Timestamp).Hours())
		}
		switch avg := mean(gaps); {
		case avg >= 1 && avg <= 8:
			score += 0.35
		case avg >= 0.5 && avg <= 24:
			score += 0.20
		}
	}

	lowQuality := shareMatching(commits, func(c gitlog.Commit) bool {
		return len(c.Subject) < 10 || lowQualitySubjectRe.MatchString(strings.ToLower(c.Subject))
	})
	switch {
	case lowQuality == 0:
		score += 0.30
	case lowQuality < 0.1:
		score += 0.20
	}

	if score > 1 {
		score = 1
	}
	return score
}

// reworkTrend compares the rework rate of the newest quarter of commits
// against the rest; positive means rework is dropping.
func reworkTrend(commits []gitlog.Commit) float64 {
	if len(commits) < 4 {
		return 0
	}
	split := len(commits) - len(commits)/4
	older, recent := commits[:split], commits[split:]
	return shareMatching(older, isRework) - shareMatching(recent, isRework)
}
