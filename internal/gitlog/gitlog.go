// Package gitlog reads commit history from workspace repositories so
// analysis can correlate commits with AI session windows. Git is invoked as
// a subprocess; a workspace without git history simply yields no commits.
package gitlog

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/model"
)

// commandTimeout bounds a single git invocation.
const commandTimeout = 15 * time.Second

// Commit is one commit from a workspace repository.
type Commit struct {
	SHA       string    `json:"sha"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Author    string    `json:"author"`
	Workspace string    `json:"workspace"`
}

// Source lists commits for a workspace. The interface exists so tests can
// substitute canned history for the git subprocess.
type Source interface {
	Commits(ctx context.Context, workspace string, since time.Time) ([]Commit, error)
}

// CLI reads commits by running the git binary.
type CLI struct{}

// NewCLI returns a git-subprocess commit source.
func NewCLI() *CLI { return &CLI{} }

// Commits runs git log in the workspace. Merge commits are excluded; a zero
// since means full history. Any git failure (not a repo, no binary, timeout)
// returns an empty list rather than an error: missing history is a normal
// condition, not a fault.
func (c *CLI) Commits(ctx context.Context, workspace string, since time.Time) ([]Commit, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	args := []string{"-C", workspace, "log", "--format=%H|%aI|%s|%an", "--no-merges"}
	if !since.IsZero() {
		args = append(args, "--since="+since.Format(time.RFC3339))
	}

	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		logging.Debug("git log failed for %s: %v", workspace, err)
		return nil, nil
	}
	return parseLog(string(out), workspace), nil
}

func parseLog(out, workspace string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 4 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			continue
		}
		commits = append(commits, Commit{
			SHA:       parts[0],
			Timestamp: ts.UTC(),
			Subject:   parts[2],
			Author:    parts[3],
			Workspace: workspace,
		})
	}
	return commits
}

// CorrelationWindow is how far outside a session's bounds a commit may fall
// and still count as AI-assisted.
const CorrelationWindow = 30 * time.Minute

// CorrelateCommits counts how many commits land inside any session window
// widened by the correlation window on both sides. Each commit is counted
// at most once. Sessions without both timestamps are ignored.
func CorrelateCommits(sessions []model.Session, commits []Commit) (assisted, total int) {
	total = len(commits)
	for _, commit := range commits {
		for _, s := range sessions {
			if s.StartTime.IsZero() || s.EndTime.IsZero() {
				continue
			}
			start := s.StartTime.Add(-CorrelationWindow)
			end := s.EndTime.Add(CorrelationWindow)
			if !commit.Timestamp.Before(start) && !commit.Timestamp.After(end) {
				assisted++
				break
			}
		}
	}
	return assisted, total
}
