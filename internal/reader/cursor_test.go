package reader

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/aireflect/internal/model"
)

// newCursorFixture creates a workspaceStorage tree with one state.vscdb
// holding the given KV pairs.
func newCursorFixture(t *testing.T, kv map[string]string) string {
	t.Helper()
	root := t.TempDir()
	wsDir := filepath.Join(root, "abc123hash")
	if err := os.MkdirAll(wsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", filepath.Join(wsDir, "state.vscdb"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE cursorDiskKV (key TEXT PRIMARY KEY, value BLOB)"); err != nil {
		t.Fatal(err)
	}
	for k, v := range kv {
		if _, err := db.Exec("INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)", k, v); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestCursorReaderComposerSessions(t *testing.T) {
	composer := `{
		"sess-a": {
			"composerId": "sess-a",
			"createdAt": 1705314600000,
			"model": "gpt-4",
			"conversation": [
				{"role": "human", "text": "refactor the parser", "createdAt": 1705314600000},
				{"role": "ai", "text": "Done, extracted a lexer.", "createdAt": 1705314660000, "outputTokens": 55}
			]
		}
	}`
	root := newCursorFixture(t, map[string]string{"composer.composerData": composer})

	r := NewCursorReader(root)
	if !r.Available() {
		t.Fatal("reader should be available")
	}

	sessions, err := r.ReadSessions(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}

	s := sessions[0]
	if s.SessionID != "cur_sess-a" {
		t.Errorf("session id = %q", s.SessionID)
	}
	if s.Tool != model.ToolCursor {
		t.Errorf("tool = %q", s.Tool)
	}
	if len(s.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(s.Turns))
	}
	// Role aliases normalized.
	if s.Turns[0].Role != model.RoleUser || s.Turns[1].Role != model.RoleAssistant {
		t.Errorf("roles = %q, %q", s.Turns[0].Role, s.Turns[1].Role)
	}
	if s.Model != "gpt-4" {
		t.Errorf("model = %q", s.Model)
	}
	if s.TotalOutputTokens != 55 {
		t.Errorf("output tokens = %d, want 55", s.TotalOutputTokens)
	}
	if s.SessionType != model.SessionRefactoring {
		t.Errorf("session type = %q, want refactoring", s.SessionType)
	}
	if s.WorkspacePath != "abc123hash" {
		t.Errorf("workspace = %q", s.WorkspacePath)
	}
}

func TestCursorReaderPromptGenFallback(t *testing.T) {
	prompts := `[{"sessionId": "p1", "text": "how does the cache work", "createdAt": 1705314600000}]`
	generations := `[{"sessionId": "p1", "text": "It uses an LRU map.", "createdAt": 1705314660000, "outputTokens": 12}]`
	root := newCursorFixture(t, map[string]string{
		"aiService.prompts":     prompts,
		"aiService.generations": generations,
	})

	sessions, err := NewCursorReader(root).ReadSessions(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.SessionID != "cur_p1" {
		t.Errorf("session id = %q", s.SessionID)
	}
	if len(s.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(s.Turns))
	}
	if s.Turns[0].Role != model.RoleUser {
		t.Errorf("first turn role = %q", s.Turns[0].Role)
	}
	if s.SessionType != model.SessionExploration {
		t.Errorf("session type = %q, want exploration", s.SessionType)
	}
}

func TestCursorReaderMissingTable(t *testing.T) {
	root := t.TempDir()
	wsDir := filepath.Join(root, "hash")
	if err := os.MkdirAll(wsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", filepath.Join(wsDir, "state.vscdb"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE other (x INT)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	sessions, err := NewCursorReader(root).ReadSessions(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected 0 sessions, got %d", len(sessions))
	}
}

func TestCursorReaderEmptyRoot(t *testing.T) {
	r := NewCursorReader(filepath.Join(t.TempDir(), "nope"))
	if r.Available() {
		t.Error("missing storage root should not be available")
	}
	sessions, err := r.ReadSessions(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}
