// Package model defines the canonical conversation model shared by every
// reader and analyzer: sessions, turns, completion events, rule files, and
// analysis output.
package model

import "time"

// Tool identifies which AI coding assistant produced a session.
type Tool string

const (
	ToolClaudeCode Tool = "claude_code"
	ToolCursor     Tool = "cursor"
	ToolCopilot    Tool = "copilot"
)

// AllTools lists the supported tools in auto-detection order.
var AllTools = []Tool{ToolClaudeCode, ToolCursor, ToolCopilot}

// SessionType classifies what a session was primarily doing.
type SessionType string

const (
	SessionCoding      SessionType = "coding"
	SessionDebugging   SessionType = "debugging"
	SessionRefactoring SessionType = "refactoring"
	SessionDocs        SessionType = "docs"
	SessionTesting     SessionType = "testing"
	SessionExploration SessionType = "exploration"
	SessionUnknown     SessionType = "unknown"
)

// Conversation roles form a closed set. Readers normalize aliases
// ("tool" -> "tool_result", "human" -> "user", "ai" -> "assistant") and drop
// anything else during parsing.
const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleSystem     = "system"
	RoleToolResult = "tool_result"
)

// NormalizeRole maps role aliases onto the closed role set. The second
// return value is false for roles that must be dropped.
func NormalizeRole(role string) (string, bool) {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem, RoleToolResult:
		return role, true
	case "tool":
		return RoleToolResult, true
	case "human":
		return RoleUser, true
	case "ai":
		return RoleAssistant, true
	}
	return "", false
}

// ToolCall records one tool invocation made by the assistant.
type ToolCall struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ConversationTurn is a single message in a session. Turns are constructed
// once by a reader and never mutated by analyzers.
type ConversationTurn struct {
	Role            string     `json:"role"`
	Content         string     `json:"content"`
	Timestamp       time.Time  `json:"timestamp,omitzero"`
	ToolCalls       []ToolCall `json:"tool_calls,omitempty"`
	ToolName        string     `json:"tool_name,omitempty"`
	InputTokens     int        `json:"input_tokens"`
	OutputTokens    int        `json:"output_tokens"`
	FileReferences  []string   `json:"file_references,omitempty"`
	HasErrorContext bool       `json:"has_error_context"`
	HasCodeSnippet  bool       `json:"has_code_snippet"`
}

// Session is one bounded AI coding interaction normalized from a
// tool-specific storage format.
type Session struct {
	SessionID         string             `json:"session_id"`
	Tool              Tool               `json:"tool"`
	Turns             []ConversationTurn `json:"turns"`
	StartTime         time.Time          `json:"start_time,omitzero"`
	EndTime           time.Time          `json:"end_time,omitzero"`
	DurationMinutes   float64            `json:"duration_minutes"`
	WorkspacePath     string             `json:"workspace_path,omitempty"`
	Branch            string             `json:"branch,omitempty"`
	Model             string             `json:"model,omitempty"`
	TotalInputTokens  int                `json:"total_input_tokens"`
	TotalOutputTokens int                `json:"total_output_tokens"`
	SessionType       SessionType        `json:"session_type"`
	Metadata          Metadata           `json:"metadata,omitempty"`
}

// Metadata is an open bag for reader-specific provenance (source file,
// source key, raw completion events). It is never persisted with turn text.
type Metadata map[string]any

// TotalTokens returns input plus output tokens.
func (s *Session) TotalTokens() int {
	return s.TotalInputTokens + s.TotalOutputTokens
}

// TurnCount returns the number of turns in the session.
func (s *Session) TurnCount() int {
	return len(s.Turns)
}

// UserTurnCount returns the number of user-authored turns.
func (s *Session) UserTurnCount() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

// AssistantTurnCount returns the number of assistant turns.
func (s *Session) AssistantTurnCount() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// ToolUseCount returns the total number of tool calls across all turns.
func (s *Session) ToolUseCount() int {
	n := 0
	for _, t := range s.Turns {
		n += len(t.ToolCalls)
	}
	return n
}

// UserTurns returns the user-authored turns that carry content.
func (s *Session) UserTurns() []ConversationTurn {
	var turns []ConversationTurn
	for _, t := range s.Turns {
		if t.Role == RoleUser && t.Content != "" {
			turns = append(turns, t)
		}
	}
	return turns
}

// CompletionEvent is a single code-completion suggestion extracted from a
// log line. Events are consumed immediately to synthesize pseudo-sessions
// and are not retained beyond session metadata.
type CompletionEvent struct {
	EventID          string    `json:"event_id"`
	Timestamp        time.Time `json:"timestamp"`
	Language         string    `json:"language"`
	SuggestionLength int       `json:"suggestion_length"`
	Accepted         bool      `json:"accepted"`
	LatencyMs        float64   `json:"latency_ms,omitempty"`
	Model            string    `json:"model,omitempty"`
	FilePath         string    `json:"file_path,omitempty"`
	EventType        string    `json:"event_type,omitempty"`
}

// RuleFileInfo is parsed metadata about one instruction/config file. A
// non-existent expected file is still reported with Exists=false — the
// absence is itself a signal. RawContent is held only in memory for the
// duration of one analysis pass and never persisted.
type RuleFileInfo struct {
	FilePath          string    `json:"file_path"`
	FileType          string    `json:"file_type"`
	Tool              Tool      `json:"tool"`
	Exists            bool      `json:"exists"`
	WordCount         int       `json:"word_count"`
	SectionCount      int       `json:"section_count"`
	Sections          []string  `json:"sections,omitempty"`
	HasExamples       bool      `json:"has_examples"`
	HasConstraints    bool      `json:"has_constraints"`
	HasProjectContext bool      `json:"has_project_context"`
	HasStyleGuide     bool      `json:"has_style_guide"`
	HasToolConfig     bool      `json:"has_tool_config"`
	LastModified      time.Time `json:"last_modified,omitzero"`
	RawContent        string    `json:"-"`
}

// AnalysisResult is a single analyzer's output for a set of sessions.
// Score is always within [0,100].
type AnalysisResult struct {
	AnalyzerKey  string         `json:"analyzer_key"`
	AnalyzerName string         `json:"analyzer_name"`
	Score        float64        `json:"score"`
	Metrics      map[string]any `json:"metrics,omitempty"`
	Insights     []Insight      `json:"insights,omitempty"`
	SessionCount int            `json:"session_count"`
	PeriodStart  time.Time      `json:"period_start,omitzero"`
	PeriodEnd    time.Time      `json:"period_end,omitzero"`
}

// InsightSeverity ranks coaching insights.
type InsightSeverity string

const (
	SeverityInfo       InsightSeverity = "info"
	SeveritySuggestion InsightSeverity = "suggestion"
	SeverityWarning    InsightSeverity = "warning"
	SeverityCritical   InsightSeverity = "critical"
)

// TrendDirection describes how a metric moved against its stored history.
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendDeclining        TrendDirection = "declining"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// Insight is a coaching recommendation attached to a report.
type Insight struct {
	Category       string          `json:"category"`
	Title          string          `json:"title"`
	Severity       InsightSeverity `json:"severity"`
	Recommendation string          `json:"recommendation"`
	Evidence       string          `json:"evidence,omitempty"`
	MetricKey      string          `json:"metric_key,omitempty"`
	MetricValue    float64         `json:"metric_value"`
	Trend          TrendDirection  `json:"trend"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`
}

// Report is the complete analysis output for one tool and time window.
type Report struct {
	Tool                 Tool                      `json:"tool"`
	PeriodStart          time.Time                 `json:"period_start"`
	PeriodEnd            time.Time                 `json:"period_end"`
	OverallScore         float64                   `json:"overall_score"`
	OverallAssessment    string                    `json:"overall_assessment,omitempty"`
	Results              []AnalysisResult          `json:"results"`
	Insights             []Insight                 `json:"insights,omitempty"`
	SessionCount         int                       `json:"session_count"`
	TotalTurns           int                       `json:"total_turns"`
	TotalTokens          int                       `json:"total_tokens"`
	TotalDurationMinutes float64                   `json:"total_duration_minutes"`
	Trends               map[string]TrendDirection `json:"trends,omitempty"`
	CreatedAt            time.Time                 `json:"created_at,omitzero"`
}

// ClampScore bounds a composite score to [0,100]. Contract violations are
// clamped rather than raised.
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
