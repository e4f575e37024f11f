package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/aireflect/internal/model"
)

const sampleTranscript = `{"type":"user","sessionId":"sess-1","cwd":"/work/proj","gitBranch":"main","timestamp":"2026-01-15T10:00:00Z","message":{"role":"user","content":"fix the TypeError in auth.py line 42"}}
{"type":"assistant","timestamp":"2026-01-15T10:01:00Z","message":{"role":"assistant","model":"claude-sonnet-4","content":[{"type":"text","text":"Looking at the error now."},{"type":"tool_use","name":"Read","id":"tu_1"}],"usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":400}}}
{"type":"user","timestamp":"2026-01-15T10:02:00Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu_1","content":[{"type":"text","text":"def check(token):"}]}]}}
{"type":"file-history-snapshot","timestamp":"2026-01-15T10:02:30Z"}
{"type":"summary","summary":"Fixed auth bug"}
not json at all
{"type":"assistant","timestamp":"2026-01-15T10:05:00Z","message":{"role":"assistant","content":[{"type":"text","text":"Fixed. The token check was inverted."}],"usage":{"input_tokens":200,"output_tokens":80}}}
`

func writeTranscript(t *testing.T, root, project, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, "projects", project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClaudeReaderParsesTranscript(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "-work-proj", "sess-1.jsonl", sampleTranscript)

	r := NewClaudeReader(root)
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
	if s.SessionID != "cc_sess-1" {
		t.Errorf("session id = %q", s.SessionID)
	}
	if s.Tool != model.ToolClaudeCode {
		t.Errorf("tool = %q", s.Tool)
	}
	if s.WorkspacePath != "/work/proj" {
		t.Errorf("workspace = %q", s.WorkspacePath)
	}
	if s.Branch != "main" {
		t.Errorf("branch = %q", s.Branch)
	}
	if s.Model != "claude-sonnet-4" {
		t.Errorf("model = %q", s.Model)
	}

	// 4 conversation turns: snapshot, summary, and junk line are skipped.
	if len(s.Turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(s.Turns))
	}

	// Cache read tokens fold into input: 100+400, then +200.
	if s.TotalInputTokens != 700 {
		t.Errorf("input tokens = %d, want 700", s.TotalInputTokens)
	}
	if s.TotalOutputTokens != 130 {
		t.Errorf("output tokens = %d, want 130", s.TotalOutputTokens)
	}

	if s.SessionType != model.SessionDebugging {
		t.Errorf("session type = %q, want debugging", s.SessionType)
	}

	first := s.Turns[0]
	if !first.HasErrorContext {
		t.Error("first turn should carry error context")
	}
	foundRef := false
	for _, ref := range first.FileReferences {
		if ref == "auth.py" {
			foundRef = true
		}
	}
	if !foundRef {
		t.Errorf("auth.py not in file references: %v", first.FileReferences)
	}

	if s.DurationMinutes != 5 {
		t.Errorf("duration = %v minutes, want 5", s.DurationMinutes)
	}

	// Tool call captured from the content block.
	if s.ToolUseCount() != 1 {
		t.Errorf("tool use count = %d, want 1", s.ToolUseCount())
	}

	// Third turn is a tool result with flattened nested content; its
	// tool_use_id resolves to the Read call that produced it.
	if s.Turns[2].Role != model.RoleToolResult && s.Turns[2].Role != model.RoleUser {
		t.Errorf("unexpected third turn role %q", s.Turns[2].Role)
	}
	if s.Turns[2].ToolName != "Read" {
		t.Errorf("tool result tool name = %q, want Read", s.Turns[2].ToolName)
	}
}

func TestClaudeReaderIdempotent(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "-work-proj", "sess-1.jsonl", sampleTranscript)

	r := NewClaudeReader(root)
	a, err := r.ReadSessions(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.ReadSessions(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("session counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].SessionID != b[i].SessionID || a[i].TurnCount() != b[i].TurnCount() {
			t.Errorf("session %d differs between reads", i)
		}
	}
}

func TestClaudeReaderMissingRoot(t *testing.T) {
	r := NewClaudeReader(filepath.Join(t.TempDir(), "does-not-exist"))
	if r.Available() {
		t.Error("missing root should not be available")
	}
	sessions, err := r.ReadSessions(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatalf("missing root must not error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}

func TestClaudeReaderTimeFilter(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "-work-proj", "sess-1.jsonl", sampleTranscript)

	r := NewClaudeReader(root)
	sessions, err := r.ReadSessions(context.Background(), ReadOptions{
		Until: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("until filter should exclude the session, got %d", len(sessions))
	}
}

func TestClaudeReaderSkipsEmptyTranscripts(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "-work-proj", "empty.jsonl", "")
	writeTranscript(t, root, "-work-proj", "junk.jsonl", "not json\n{\"type\":\"summary\"}\n")

	r := NewClaudeReader(root)
	sessions, err := r.ReadSessions(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected 0 sessions from empty files, got %d", len(sessions))
	}
}

func TestWorkspaceFromProjectDir(t *testing.T) {
	if got := workspaceFromProjectDir("-Users-me-Dev-proj"); got != "/Users/me/Dev/proj" {
		t.Errorf("got %q", got)
	}
	if got := workspaceFromProjectDir("plain"); got != "plain" {
		t.Errorf("got %q", got)
	}
}

func TestClaudeReaderRuleFiles(t *testing.T) {
	root := t.TempDir()
	workspace := t.TempDir()

	claudeMD := "# Project\n\nAlways run tests.\n\n## Style\n\nUse gofmt, for example: `gofmt -w .`\n"
	if err := os.WriteFile(filepath.Join(workspace, "CLAUDE.md"), []byte(claudeMD), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewClaudeReader(root)
	infos, err := r.ReadRuleFiles(workspace)
	if err != nil {
		t.Fatal(err)
	}

	var claude *model.RuleFileInfo
	missing := 0
	for i := range infos {
		if infos[i].FileType == "claude_md" {
			claude = &infos[i]
		}
		if !infos[i].Exists {
			missing++
		}
	}
	if claude == nil {
		t.Fatal("CLAUDE.md info missing")
	}
	if !claude.Exists {
		t.Error("CLAUDE.md should exist")
	}
	if claude.SectionCount != 2 {
		t.Errorf("section count = %d, want 2", claude.SectionCount)
	}
	if !claude.HasConstraints {
		t.Error("\"Always\" should register as a constraint")
	}
	if !claude.HasExamples {
		t.Error("example keyword should register")
	}
	if !claude.HasStyleGuide {
		t.Error("style section should register")
	}
	// Missing expected files are still reported, with Exists=false.
	if missing == 0 {
		t.Error("expected some missing rule files to be reported")
	}
}
