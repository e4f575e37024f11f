// Package analyzer scores AI coding sessions across quality dimensions.
// Each analyzer folds its raw signals through the shared scoring curves and
// reports a 0-100 score plus the metrics behind it.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/blackwell-systems/aireflect/internal/gitlog"
	"github.com/blackwell-systems/aireflect/internal/model"
)

// Input carries everything an analyzer may need. Sessions are never
// mutated; analyzers that don't use rule files ignore them.
type Input struct {
	Sessions  []model.Session
	RuleFiles []model.RuleFileInfo
}

// Analyzer scores one quality dimension over a set of sessions.
type Analyzer interface {
	Key() string
	Name() string
	Analyze(ctx context.Context, in Input) (model.AnalysisResult, error)
}

// Definition describes an analyzer for registry dispatch: which tools it
// applies to, its category, and whether it needs git access.
type Definition struct {
	Key              string
	Name             string
	Description      string
	Category         string
	EnabledByDefault bool
	RequiresGit      bool
	AppliesTo        []model.Tool
}

func (d Definition) appliesTo(tool model.Tool) bool {
	for _, t := range d.AppliesTo {
		if t == tool {
			return true
		}
	}
	return false
}

// definitions is the registry table, in canonical order. Order matters for
// deterministic report output.
var definitions = []Definition{
	{
		Key: "prompt_quality", Name: "Prompt Quality",
		Description:      "Measures prompt specificity, context richness, clarity, and efficiency",
		Category:         "core",
		EnabledByDefault: true,
		AppliesTo:        model.AllTools,
	},
	{
		Key: "conversation_flow", Name: "Conversation Flow",
		Description:      "Analyzes turns-to-resolution, correction rate, and context loss",
		Category:         "core",
		EnabledByDefault: true,
		AppliesTo:        model.AllTools,
	},
	{
		Key: "context_management", Name: "Context Management",
		Description:      "Evaluates file references, error inclusion, and scope clarity",
		Category:         "core",
		EnabledByDefault: true,
		AppliesTo:        model.AllTools,
	},
	{
		Key: "tool_usage", Name: "Tool Usage",
		Description:      "Tracks MCP tools, slash commands, and automation opportunities",
		Category:         "tool_specific",
		EnabledByDefault: true,
		AppliesTo:        []model.Tool{model.ToolClaudeCode, model.ToolCursor},
	},
	{
		Key: "rule_file", Name: "Rule File Quality",
		Description:      "Analyzes instruction file completeness, specificity, and actionability",
		Category:         "core",
		EnabledByDefault: true,
		AppliesTo:        model.AllTools,
	},
	{
		Key: "session_patterns", Name: "Session Patterns",
		Description:      "Detects duration patterns, frequency, task types, and fatigue indicators",
		Category:         "core",
		EnabledByDefault: true,
		AppliesTo:        model.AllTools,
	},
	{
		Key: "completion_patterns", Name: "Completion Patterns",
		Description:      "Copilot-specific acceptance rate and suggestion quality trends",
		Category:         "tool_specific",
		EnabledByDefault: true,
		AppliesTo:        []model.Tool{model.ToolCopilot},
	},
	{
		Key: "outcome_tracker", Name: "Outcome Tracker",
		Description:      "Correlates AI sessions with git commits and rework rates",
		Category:         "advanced",
		EnabledByDefault: true,
		RequiresGit:      true,
		AppliesTo:        model.AllTools,
	},
}

// Definitions returns all analyzer definitions in canonical order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for a key.
func Lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// DefaultKeys returns analyzers enabled by default, in canonical order.
func DefaultKeys() []string {
	var keys []string
	for _, d := range definitions {
		if d.EnabledByDefault {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// KeysForTool returns the analyzers applicable to a tool.
func KeysForTool(tool model.Tool) []string {
	var keys []string
	for _, d := range definitions {
		if d.appliesTo(tool) {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// Config selects which analyzers run for one analysis pass.
type Config struct {
	enabled map[string]struct{}
}

// ConfigOptions builds a Config: Enabled overrides the default set;
// otherwise defaults minus Disabled. Tool narrows to applicable analyzers;
// SkipGit drops git-dependent ones.
type ConfigOptions struct {
	Enabled  []string
	Disabled []string
	Tool     model.Tool
	SkipGit  bool
}

// NewConfig validates the requested keys and resolves the final set.
func NewConfig(opts ConfigOptions) (*Config, error) {
	enabled := map[string]struct{}{}
	if len(opts.Enabled) > 0 {
		for _, k := range opts.Enabled {
			if _, ok := Lookup(k); !ok {
				return nil, fmt.Errorf("unknown analyzer %q", k)
			}
			enabled[k] = struct{}{}
		}
	} else {
		for _, k := range DefaultKeys() {
			enabled[k] = struct{}{}
		}
		for _, k := range opts.Disabled {
			if _, ok := Lookup(k); !ok {
				return nil, fmt.Errorf("unknown analyzer %q", k)
			}
			delete(enabled, k)
		}
	}

	if opts.Tool != "" {
		applicable := map[string]struct{}{}
		for _, k := range KeysForTool(opts.Tool) {
			applicable[k] = struct{}{}
		}
		for k := range enabled {
			if _, ok := applicable[k]; !ok {
				delete(enabled, k)
			}
		}
	}

	if opts.SkipGit {
		for k := range enabled {
			if d, ok := Lookup(k); ok && d.RequiresGit {
				delete(enabled, k)
			}
		}
	}

	return &Config{enabled: enabled}, nil
}

// ShouldRun reports whether the analyzer with the given key is enabled.
func (c *Config) ShouldRun(key string) bool {
	_, ok := c.enabled[key]
	return ok
}

// EnabledKeys returns the enabled keys in canonical order.
func (c *Config) EnabledKeys() []string {
	var keys []string
	for _, d := range definitions {
		if c.ShouldRun(d.Key) {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// Presets for common analysis profiles.

// PresetQuick runs the fast core trio.
func PresetQuick() *Config {
	c, _ := NewConfig(ConfigOptions{Enabled: []string{
		"prompt_quality", "conversation_flow", "session_patterns",
	}})
	return c
}

// PresetCoaching runs the standard coaching set.
func PresetCoaching() *Config {
	c, _ := NewConfig(ConfigOptions{Enabled: []string{
		"prompt_quality", "conversation_flow",
		"context_management", "session_patterns", "rule_file",
	}})
	return c
}

// PresetFull runs everything.
func PresetFull() *Config {
	var keys []string
	for _, d := range definitions {
		keys = append(keys, d.Key)
	}
	c, _ := NewConfig(ConfigOptions{Enabled: keys})
	return c
}

// PresetCopilot runs the Copilot-focused set.
func PresetCopilot() *Config {
	c, _ := NewConfig(ConfigOptions{Enabled: []string{
		"completion_patterns", "session_patterns",
		"outcome_tracker", "prompt_quality",
	}})
	return c
}

// PresetByName resolves a preset name; empty means full.
func PresetByName(name string) (*Config, error) {
	switch name {
	case "", "full":
		return PresetFull(), nil
	case "quick":
		return PresetQuick(), nil
	case "coaching":
		return PresetCoaching(), nil
	case "copilot":
		return PresetCopilot(), nil
	}
	return nil, fmt.Errorf("unknown preset %q (want quick, coaching, full, or copilot)", name)
}

// New constructs the analyzer for a registry key. The git source is only
// used by analyzers that need history; nil falls back to the git CLI.
func New(key string, git gitlog.Source) (Analyzer, error) {
	switch key {
	case "prompt_quality":
		return NewPromptQuality(), nil
	case "conversation_flow":
		return NewConversationFlow(), nil
	case "context_management":
		return NewContextManagement(), nil
	case "tool_usage":
		return NewToolUsage(), nil
	case "rule_file":
		return NewRuleFile(), nil
	case "session_patterns":
		return NewSessionPatterns(), nil
	case "completion_patterns":
		return NewCompletionPatterns(), nil
	case "outcome_tracker":
		if git == nil {
			git = gitlog.NewCLI()
		}
		return NewOutcomeTracker(git), nil
	}
	return nil, fmt.Errorf("unknown analyzer %q", key)
}

// Shared helpers.

// emptyResult is the fixed shape every analyzer returns for no sessions:
// score 0, no metrics, no panic.
func emptyResult(key, name string) model.AnalysisResult {
	return model.AnalysisResult{
		AnalyzerKey:  key,
		AnalyzerName: name,
		Score:        0,
	}
}

// periodRange finds the earliest start and latest end across sessions.
func periodRange(sessions []model.Session) (time.Time, time.Time) {
	var start, end time.Time
	for _, s := range sessions {
		if !s.StartTime.IsZero() && (start.IsZero() || s.StartTime.Before(start)) {
			start = s.StartTime
		}
		if !s.EndTime.IsZero() && (end.IsZero() || s.EndTime.After(end)) {
			end = s.EndTime
		}
	}
	return start, end
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

// topN returns the n most frequent keys of a counter, ties broken
// alphabetically so output is stable.
func topN(counts map[string]int, n int) map[string]int {
	type kv struct {
		k string
		v int
	}
	pairs := make([]kv, 0, len(counts))
	for k, v := range counts {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].v != pairs[j].v {
			return pairs[i].v > pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		out[p.k] = p.v
	}
	return out
}
