package reader

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/model"
)

// Keyword groups for scoring markdown instruction files.
var (
	exampleKeywords = []string{"example", "```", "e.g.", "for instance"}

	constraintKeywords = []string{
		"never", "always", "must", "don't", "do not",
		"avoid", "prefer", "required", "forbidden",
	}

	projectContextKeywords = []string{
		"project", "architecture", "stack", "framework",
		"directory", "structure", "overview",
	}

	styleGuideKeywords = []string{
		"style", "naming", "convention", "format",
		"lint", "indent", "camelcase", "snake_case",
	}
)

// readRuleFile reads one instruction/config file. Missing files return an
// info with Exists=false rather than an error: the absence is a finding.
func readRuleFile(path, fileType string, tool model.Tool) model.RuleFileInfo {
	info := model.RuleFileInfo{
		FilePath: path,
		FileType: fileType,
		Tool:     tool,
	}

	st, err := os.Stat(path)
	if err != nil {
		return info
	}
	info.Exists = true
	info.LastModified = st.ModTime().UTC()

	data, err := os.ReadFile(path)
	if err != nil {
		logging.Debug("cannot read %s: %v", path, err)
		info.Exists = false
		return info
	}

	content := string(data)
	info.RawContent = content
	info.WordCount = len(strings.Fields(content))
	return info
}

// analyzeMarkdown fills the quality-signal fields for a markdown
// instruction file. skipFrontmatter drops a leading YAML frontmatter or
// applyTo: header before counting sections (markdown structure only; the
// keyword scan still sees the whole file).
func analyzeMarkdown(info *model.RuleFileInfo, content string, skipFrontmatter bool) {
	lines := strings.Split(content, "\n")

	if skipFrontmatter && len(lines) > 0 {
		if strings.TrimSpace(lines[0]) == "---" {
			for i := 1; i < len(lines); i++ {
				if strings.TrimSpace(lines[i]) == "---" {
					lines = lines[i+1:]
					break
				}
			}
		} else {
			for i, line := range lines {
				if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "applyto:") {
					lines = lines[i+1:]
					break
				}
			}
		}
	}

	var sections []string
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			sections = append(sections, strings.TrimSpace(strings.TrimLeft(line, "#")))
		}
	}
	info.Sections = sections
	info.SectionCount = len(sections)

	lower := strings.ToLower(content)
	info.HasExamples = containsAny(lower, exampleKeywords)
	info.HasConstraints = containsAny(lower, constraintKeywords)
	info.HasProjectContext = containsAny(lower, projectContextKeywords)
	info.HasStyleGuide = containsAny(lower, styleGuideKeywords)
}

// analyzeJSONConfig marks a config file as tool configuration and counts
// its top-level keys as sections. Invalid JSON still counts as config.
func analyzeJSONConfig(info *model.RuleFileInfo, content string) {
	info.HasToolConfig = true
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &data); err == nil {
		info.SectionCount = len(data)
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// fileTimeRange folds a file's mtime into a running earliest/latest range.
func fileTimeRange(path string, earliest, latest *time.Time) {
	st, err := os.Stat(path)
	if err != nil {
		return
	}
	mtime := st.ModTime().UTC()
	if earliest.IsZero() || mtime.Before(*earliest) {
		*earliest = mtime
	}
	if latest.IsZero() || mtime.After(*latest) {
		*latest = mtime
	}
}
