package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/model"
)

const (
	cliTimeout = 5 * time.Minute

	// rawContentPreviewLimit caps how much of a rule file is quoted into
	// the prompt.
	rawContentPreviewLimit = 3000

	// conversationTurnLimit caps quoted user prompts per session.
	conversationTurnLimit = 6
	// sessionPromptLimit caps how many recent sessions are quoted.
	sessionPromptLimit = 15
)

const systemPrompt = `You are an AI coding advisor reviewing a developer's usage of AI coding assistants.
You receive analyzer scores, trends, rule file summaries, and sampled conversation prompts.
Respond with JSON only: {"overall_assessment": string, "insights": [{"category": string, "title": string, "severity": "info"|"suggestion"|"warning"|"critical", "recommendation": string, "evidence": string}]}.
Be specific, cite the evidence you were given, and keep recommendations actionable.`

// ClaudeCLI generates insights by shelling out to the Claude Code CLI,
// reusing its existing OAuth session. The zero value uses automatic binary
// discovery and the CLI's default model.
type ClaudeCLI struct {
	Binary string
	Model  string
}

func NewClaudeCLI(model string) *ClaudeCLI {
	return &ClaudeCLI{Model: model}
}

// FindBinary locates the Claude Code CLI: the local install first, then
// PATH. Empty means not installed.
func FindBinary() string {
	home, err := os.UserHomeDir()
	if err == nil {
		local := filepath.Join(home, ".claude", "local", "claude")
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}
	path, err := exec.LookPath("claude")
	if err != nil {
		return ""
	}
	return path
}

func (c *ClaudeCLI) GenerateInsights(ctx context.Context, req Request) (*Response, error) {
	bin := c.Binary
	if bin == "" {
		bin = FindBinary()
	}
	if bin == "" {
		return nil, fmt.Errorf("claude CLI not found; install Claude Code or use --no-llm")
	}

	ctx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	args := []string{
		"--print",
		"--output-format", "json",
		"--system-prompt", systemPrompt,
		"--no-session-persistence",
	}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader(buildUserPrompt(req))
	// Unset so the CLI runs even when invoked from inside a session.
	cmd.Env = environWithout("CLAUDECODE")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("running %s for insight generation", bin)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return nil, fmt.Errorf("claude CLI: %w: %s", err, msg)
	}

	raw := strings.TrimSpace(stdout.String())
	if raw == "" {
		return nil, fmt.Errorf("claude CLI returned empty output")
	}
	return parseResponse(raw), nil
}

func environWithout(key string) []string {
	env := os.Environ()
	out := env[:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, key+"=") {
			out = append(out, kv)
		}
	}
	return out
}

// buildUserPrompt assembles scores, trends, rule file summaries, and
// sampled conversation prompts into one markdown document.
func buildUserPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("## Analyzer Scores\n\n")
	for _, r := range req.Results {
		fmt.Fprintf(&b, "### %s (key: %s)\nScore: %.1f/100\n", r.AnalyzerName, r.AnalyzerKey, r.Score)
		if len(r.Metrics) > 0 {
			if enc, err := json.Marshal(r.Metrics); err == nil {
				fmt.Fprintf(&b, "Metrics: %s\n", enc)
			}
		}
		b.WriteString("\n")
	}

	if len(req.Trends) > 0 {
		b.WriteString("## Trends\n\n")
		for _, key := range sortedKeys(req.Trends) {
			fmt.Fprintf(&b, "- %s: %s\n", key, req.Trends[key])
		}
		b.WriteString("\n")
	}

	if len(req.RuleFiles) > 0 {
		b.WriteString("## Rule Files\n\n")
		for _, rf := range req.RuleFiles {
			status := "exists"
			if !rf.Exists {
				status = "MISSING"
			}
			fmt.Fprintf(&b, "### %s (%s)\n", rf.FileType, status)
			if rf.Exists {
				fmt.Fprintf(&b, "Words: %d, Sections: %d\n", rf.WordCount, rf.SectionCount)
				if rf.RawContent != "" {
					preview := rf.RawContent
					if len(preview) > rawContentPreviewLimit {
						preview = preview[:rawContentPreviewLimit] + "\n... (truncated)"
					}
					fmt.Fprintf(&b, "Content:\n```\n%s\n```\n", preview)
				}
			}
			b.WriteString("\n")
		}
	}

	if quoted := quoteSessions(req.Sessions); quoted != "" {
		b.WriteString("## Conversation History\n\n")
		b.WriteString(quoted)
	}
	return b.String()
}

// quoteSessions samples the most recent sessions' user prompts. Assistant
// output is never forwarded.
func quoteSessions(sessions []model.Session) string {
	start := 0
	if len(sessions) > sessionPromptLimit {
		start = len(sessions) - sessionPromptLimit
	}
	var b strings.Builder
	for _, s := range sessions[start:] {
		user := s.UserTurns()
		if len(user) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### Session %s (%s, %s)\n", s.SessionID, s.Tool, s.SessionType)
		for i, t := range user {
			if i >= conversationTurnLimit {
				fmt.Fprintf(&b, "... (%d more prompts)\n", len(user)-i)
				break
			}
			fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(t.Content, "\n", " "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func sortedKeys(m map[string]model.TrendDirection) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cliEnvelope is the outer structure of `claude --print --output-format
// json`; the model's text lives in result.
type cliEnvelope struct {
	Result string `json:"result"`
}

// parseResponse decodes the CLI output, unwrapping the JSON envelope and
// any markdown fences. Unparseable output degrades to a single raw insight
// rather than an error; the numeric report is already complete by then.
func parseResponse(raw string) *Response {
	text := raw
	var env cliEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil && env.Result != "" {
		text = env.Result
	}
	text = stripFences(strings.TrimSpace(text))

	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err == nil && len(resp.Insights) > 0 {
		for i := range resp.Insights {
			if resp.Insights[i].Severity == "" {
				resp.Insights[i].Severity = model.SeveritySuggestion
			}
		}
		return &resp
	}

	if len(text) > 2000 {
		text = text[:2000]
	}
	return &Response{
		OverallAssessment: "Analysis completed (raw output).",
		Insights: []model.Insight{{
			Category:       "general",
			Title:          "AI Analysis",
			Severity:       model.SeverityInfo,
			Recommendation: text,
			Evidence:       "Raw collaborator output",
		}},
	}
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
