package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level aireflect configuration.
type Config struct {
	ClaudeHome    string `mapstructure:"claude_home"`
	CursorStorage string `mapstructure:"cursor_storage"`
	CopilotTraces string `mapstructure:"copilot_traces"`
	VSCodeLogs    string `mapstructure:"vscode_logs"`
	Preset        string `mapstructure:"preset"`
	LookbackDays  int    `mapstructure:"lookback_days"`
	LLM           LLM    `mapstructure:"llm"`
	Output        Output `mapstructure:"output"`
}

// LLM configures the optional insight collaborator.
type LLM struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("claude_home", DefaultClaudeHome)
	v.SetDefault("cursor_storage", DefaultCursorStorage)
	v.SetDefault("copilot_traces", DefaultCopilotTraces)
	v.SetDefault("vscode_logs", DefaultVSCodeLogs)
	v.SetDefault("preset", DefaultPreset)
	v.SetDefault("lookback_days", DefaultLookbackDays)
	v.SetDefault("llm.enabled", DefaultLLMEnabled)
	v.SetDefault("llm.model", "")
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.ClaudeHome = expandPath(cfg.ClaudeHome)
	cfg.CursorStorage = expandPath(cfg.CursorStorage)
	cfg.CopilotTraces = expandPath(cfg.CopilotTraces)
	cfg.VSCodeLogs = expandPath(cfg.VSCodeLogs)

	return &cfg, nil
}

// DBPath returns the full path to the SQLite history database.
func DBPath() string {
	return filepath.Join(expandPath(DefaultConfigDir), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
