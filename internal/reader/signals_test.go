package reader

import (
	"strings"
	"testing"
)

func TestHasErrorContext(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"TypeError: cannot read property", true},
		{"the build FAILED on CI", true},
		{"here is a stack trace from prod", true},
		{"add a login page", false},
		{"", false},
	}
	for _, c := range cases {
		if got := HasErrorContext(c.text); got != c.want {
			t.Errorf("HasErrorContext(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestHasCodeSnippet(t *testing.T) {
	if !HasCodeSnippet("```go\nfunc main() {}\n```") {
		t.Error("fenced block should count as code")
	}
	if !HasCodeSnippet("a\nb\nc\nd\ne") {
		t.Error("more than three newlines should count as code")
	}
	if HasCodeSnippet("one liner") {
		t.Error("plain text should not count as code")
	}
}

func TestExtractFileReferences(t *testing.T) {
	refs := ExtractFileReferences("fix the TypeError in auth.py line 42")
	found := false
	for _, r := range refs {
		if r == "auth.py" {
			found = true
		}
	}
	if !found {
		t.Errorf("auth.py not extracted, got %v", refs)
	}
}

func TestExtractFileReferencesDedupAndCap(t *testing.T) {
	refs := ExtractFileReferences("see main.go and main.go again")
	if len(refs) != 1 {
		t.Errorf("expected dedup to 1, got %v", refs)
	}

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("file")
		sb.WriteByte(byte('a' + i%26))
		sb.WriteString(strings.Repeat("x", i/26))
		sb.WriteString(".go ")
	}
	refs = ExtractFileReferences(sb.String())
	if len(refs) > maxFileRefs {
		t.Errorf("cap exceeded: %d refs", len(refs))
	}
}

func TestExtractFileReferencesEmpty(t *testing.T) {
	if refs := ExtractFileReferences(""); refs != nil {
		t.Errorf("expected nil for empty text, got %v", refs)
	}
	if refs := ExtractFileReferences("no paths here"); refs != nil {
		t.Errorf("expected nil when nothing matches, got %v", refs)
	}
}
