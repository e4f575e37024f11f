package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.Preset != "full" {
		t.Errorf("preset = %q, want full", cfg.Preset)
	}
	if cfg.LookbackDays != 30 {
		t.Errorf("lookback_days = %d, want 30", cfg.LookbackDays)
	}
	if !cfg.LLM.Enabled {
		t.Error("llm.enabled default should be true")
	}
	if cfg.ClaudeHome == "~/.claude" {
		t.Error("claude_home should have been expanded")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "preset: quick\nlookback_days: 7\nllm:\n  enabled: false\noutput:\n  width: 120\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Preset != "quick" {
		t.Errorf("preset = %q, want quick", cfg.Preset)
	}
	if cfg.LookbackDays != 7 {
		t.Errorf("lookback_days = %d, want 7", cfg.LookbackDays)
	}
	if cfg.LLM.Enabled {
		t.Error("llm.enabled should be false")
	}
	if cfg.Output.Width != 120 {
		t.Errorf("output.width = %d, want 120", cfg.Output.Width)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandPath("~/x"); got != filepath.Join(home, "x") {
		t.Errorf("expandPath(~/x) = %q", got)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
}
