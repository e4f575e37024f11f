package model

import "testing"

func userTurn(content string) ConversationTurn {
	return ConversationTurn{Role: RoleUser, Content: content}
}

func TestClassifySessionDebugging(t *testing.T) {
	turns := []ConversationTurn{
		userTurn("fix the TypeError in auth.py line 42"),
	}
	got := ClassifySession(turns)
	if got != SessionDebugging {
		t.Errorf("expected debugging, got %s", got)
	}
}

func TestClassifySessionEmpty(t *testing.T) {
	if got := ClassifySession(nil); got != SessionUnknown {
		t.Errorf("expected unknown for no turns, got %s", got)
	}

	turns := []ConversationTurn{
		{Role: RoleAssistant, Content: "fix the bug"},
	}
	if got := ClassifySession(turns); got != SessionUnknown {
		t.Errorf("expected unknown when no user text, got %s", got)
	}
}

func TestClassifySessionNoMatch(t *testing.T) {
	turns := []ConversationTurn{userTurn("add a login page")}
	if got := ClassifySession(turns); got != SessionCoding {
		t.Errorf("expected coding fallback, got %s", got)
	}
}

func TestClassifySessionTieBreak(t *testing.T) {
	// One debugging hit and one testing hit: debugging comes first in the
	// ordered groups and must win the tie.
	turns := []ConversationTurn{userTurn("debug this and add a mock")}
	if got := ClassifySession(turns); got != SessionDebugging {
		t.Errorf("expected debugging on tie, got %s", got)
	}

	// Two testing hits beat one debugging hit.
	turns = []ConversationTurn{userTurn("debug the test fixture")}
	if got := ClassifySession(turns); got != SessionTesting {
		t.Errorf("expected testing to win on count, got %s", got)
	}
}

func TestClassifySessionCaseInsensitive(t *testing.T) {
	turns := []ConversationTurn{userTurn("REFACTOR the parser")}
	if got := ClassifySession(turns); got != SessionRefactoring {
		t.Errorf("expected refactoring, got %s", got)
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"user", RoleUser, true},
		{"assistant", RoleAssistant, true},
		{"system", RoleSystem, true},
		{"tool_result", RoleToolResult, true},
		{"tool", RoleToolResult, true},
		{"human", RoleUser, true},
		{"ai", RoleAssistant, true},
		{"function", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeRole(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("NormalizeRole(%q) = %q,%v, want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestSessionCounts(t *testing.T) {
	s := Session{
		Turns: []ConversationTurn{
			{Role: RoleUser, Content: "hi", InputTokens: 10},
			{Role: RoleAssistant, Content: "hello", OutputTokens: 20, ToolCalls: []ToolCall{{Name: "Read"}, {Name: "Edit"}}},
			{Role: RoleToolResult, Content: "ok"},
			{Role: RoleUser, Content: "thanks"},
		},
		TotalInputTokens:  10,
		TotalOutputTokens: 20,
	}
	if s.TurnCount() != 4 {
		t.Errorf("TurnCount = %d, want 4", s.TurnCount())
	}
	if s.UserTurnCount() != 2 {
		t.Errorf("UserTurnCount = %d, want 2", s.UserTurnCount())
	}
	if s.AssistantTurnCount() != 1 {
		t.Errorf("AssistantTurnCount = %d, want 1", s.AssistantTurnCount())
	}
	if s.ToolUseCount() != 2 {
		t.Errorf("ToolUseCount = %d, want 2", s.ToolUseCount())
	}
	if s.TotalTokens() != 30 {
		t.Errorf("TotalTokens = %d, want 30", s.TotalTokens())
	}
	if len(s.UserTurns()) != 2 {
		t.Errorf("UserTurns len = %d, want 2", len(s.UserTurns()))
	}
}

func TestClampScore(t *testing.T) {
	if got := ClampScore(-5); got != 0 {
		t.Errorf("ClampScore(-5) = %v, want 0", got)
	}
	if got := ClampScore(105); got != 100 {
		t.Errorf("ClampScore(105) = %v, want 100", got)
	}
	if got := ClampScore(42.5); got != 42.5 {
		t.Errorf("ClampScore(42.5) = %v, want 42.5", got)
	}
}
