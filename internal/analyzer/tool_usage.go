package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/blackwell-systems/aireflect/internal/model"
	"github.com/blackwell-systems/aireflect/internal/scoring"
)

// Built-in tool vocabularies. Coverage is measured against the set for the
// session's tool; anything prefixed mcp__ or mcp_ is an MCP tool.
var builtinTools = map[model.Tool]map[string]struct{}{
	model.ToolClaudeCode: toolSet(
		"Read", "Write", "Edit", "Bash", "Glob", "Grep", "Task",
		"WebFetch", "WebSearch", "NotebookEdit", "AskUserQuestion",
		"EnterPlanMode", "ExitPlanMode", "TodoWrite", "TodoRead",
	),
	model.ToolCursor: toolSet(
		"codebase_search", "read_file", "edit_file", "run_terminal_command",
		"file_search", "grep_search", "list_dir", "delete_file",
	),
}

// File-oriented tools, counted as the appropriate choice over raw shell.
var fileOpTools = toolSet(
	"Read", "Write", "Edit", "Glob", "Grep",
	"read_file", "edit_file", "file_search", "grep_search",
)

var shellTools = toolSet("Bash", "run_terminal_command")

func toolSet(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

var slashCommandRe = regexp.MustCompile(`^\s*/\w+`)

// automationOpportunities are prompts that ask the assistant's operator to
// do by hand what a tool call or command could do. Each carries a category
// name surfaced in metrics.
var automationOpportunities = []struct {
	category string
	re       *regexp.Regexp
}{
	{"manual_search", regexp.MustCompile(`(?i)\b(search for|find all|look through|look for|where is)\b`)},
	{"manual_run_request", regexp.MustCompile(`(?i)\b(run|execute) (the|this|that|it)\b`)},
	{"manual_multi_step", regexp.MustCompile(`(?i)\bfirst\b[\s\S]*\bthen\b`)},
}

// pasteThresholdLines flags prompts pasting large code blocks instead of
// referencing the file.
const pasteThresholdLines = 20

// ToolUsage scores tool mastery for agentic assistants: breadth of built-in
// tool use, MCP adoption, slash commands, and missed automation.
type ToolUsage struct{}

func NewToolUsage() *ToolUsage { return &ToolUsage{} }

func (a *ToolUsage) Key() string  { return "tool_usage" }
func (a *ToolUsage) Name() string { return "Tool Usage" }

func (a *ToolUsage) Analyze(_ context.Context, in Input) (model.AnalysisResult, error) {
	res := emptyResult(a.Key(), a.Name())
	res.SessionCount = len(in.Sessions)
	if len(in.Sessions) == 0 {
		return res, nil
	}
	res.PeriodStart, res.PeriodEnd = periodRange(in.Sessions)

	unique := map[string]struct{}{}
	builtinUsed := map[string]struct{}{}
	mcpUsed := map[string]struct{}{}
	builtinVocab := 0
	vocabCounted := map[model.Tool]struct{}{}
	opportunityCounts := map[string]int{}
	userTurns, slashTurns, missedTurns := 0, 0, 0
	fileOps, shellOps := 0, 0

	for _, s := range in.Sessions {
		if vocab, ok := builtinTools[s.Tool]; ok {
			if _, seen := vocabCounted[s.Tool]; !seen {
				vocabCounted[s.Tool] = struct{}{}
				builtinVocab += len(vocab)
			}
		}
		for _, t := range s.Turns {
			for _, tc := range t.ToolCalls {
				unique[tc.Name] = struct{}{}
				if strings.HasPrefix(tc.Name, "mcp__") || strings.HasPrefix(tc.Name, "mcp_") {
					mcpUsed[tc.Name] = struct{}{}
				} else if vocab, ok := builtinTools[s.Tool]; ok {
					if _, ok := vocab[tc.Name]; ok {
						builtinUsed[tc.Name] = struct{}{}
					}
				}
				if _, ok := fileOpTools[tc.Name]; ok {
					fileOps++
				}
				if _, ok := shellTools[tc.Name]; ok {
					shellOps++
				}
			}
		}
		for _, t := range s.UserTurns() {
			userTurns++
			if slashCommandRe.MatchString(t.Content) {
				slashTurns++
			}
			if cat := automationMiss(t); cat != "" {
				missedTurns++
				opportunityCounts[cat]++
			}
		}
	}
	if userTurns == 0 {
		return res, nil
	}

	coverage := 0.0
	if builtinVocab > 0 {
		coverage = float64(len(builtinUsed)) / float64(builtinVocab)
	}
	diversityDim := scoring.Diminishing(float64(len(unique)), 8)*0.6 +
		scoring.Sigmoid(coverage, 0.3, 5)*0.4

	// MCP adoption is only judged when an MCP config exists; without one
	// there is nothing to adopt.
	mcpDim := 0.6
	if hasMCPConfig(in.RuleFiles) {
		mcpDim = scoring.CountScore(len(mcpUsed), []scoring.Threshold{
			{Count: 0, Score: 0.3},
			{Count: 1, Score: 0.7},
			{Count: 2, Score: 0.85},
			{Count: 3, Score: 1.0},
		})
	}

	slashDim := scoring.Sigmoid(float64(slashTurns)/float64(userTurns), 0.05, 30)
	automationDim := 1 - scoring.Sigmoid(float64(missedTurns)/float64(userTurns), 0.08, 15)

	appropriatenessDim := 0.7 // neutral without any file or shell operations
	if fileOps+shellOps > 0 {
		ratio := float64(fileOps) / float64(fileOps+shellOps)
		appropriatenessDim = scoring.Sigmoid(ratio, 0.6, 4)
	}

	res.Score = scoring.WeightedSum([]scoring.Dimension{
		{Score: diversityDim, Weight: 0.25},
		{Score: mcpDim, Weight: 0.15},
		{Score: slashDim, Weight: 0.15},
		{Score: automationDim, Weight: 0.20},
		{Score: appropriatenessDim, Weight: 0.25},
	})
	res.Metrics = map[string]any{
		"unique_tools":             len(unique),
		"builtin_coverage":         round3(coverage),
		"mcp_tools_used":           len(mcpUsed),
		"slash_command_rate":       round3(float64(slashTurns) / float64(userTurns)),
		"automation_opportunities": opportunityCounts,
	}
	return res, nil
}

// automationMiss classifies a prompt as a missed automation opportunity,
// returning the category name or "".
func automationMiss(t model.ConversationTurn) string {
	if t.HasCodeSnippet && len(t.FileReferences) == 0 &&
		strings.Count(t.Content, "\n") > pasteThresholdLines {
		return "paste_instead_of_reference"
	}
	for _, opp := range automationOpportunities {
		if opp.re.MatchString(t.Content) {
			return opp.category
		}
	}
	return ""
}

func hasMCPConfig(files []model.RuleFileInfo) bool {
	for _, f := range files {
		if !f.Exists {
			continue
		}
		switch f.FileType {
		case "mcp_config", "claude_user_mcp", "cursor_mcp", "cursor_user_mcp":
			return true
		}
	}
	return false
}
