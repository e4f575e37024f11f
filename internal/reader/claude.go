package reader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/model"
)

// maxTranscriptLine bounds a single JSONL line. Assistant turns with large
// tool results can run to hundreds of kilobytes.
const maxTranscriptLine = 10 * 1024 * 1024

// ClaudeReader reads Claude Code session transcripts: one JSONL file per
// session under <root>/projects/<encoded-workspace>/.
type ClaudeReader struct {
	root string
}

// NewClaudeReader builds a reader over the given Claude home directory.
// An empty root defaults to ~/.claude.
func NewClaudeReader(root string) *ClaudeReader {
	if root == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			root = filepath.Join(home, ".claude")
		}
	}
	return &ClaudeReader{root: root}
}

// Root returns the Claude home directory this reader scans.
func (r *ClaudeReader) Root() string { return r.root }

func (r *ClaudeReader) projectsDir() string {
	return filepath.Join(r.root, "projects")
}

func (r *ClaudeReader) Tool() model.Tool { return model.ToolClaudeCode }

func (r *ClaudeReader) Available() bool {
	return len(r.sessionFiles()) > 0
}

func (r *ClaudeReader) DataLocations() []string {
	dirs := map[string]struct{}{}
	for _, f := range r.sessionFiles() {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	out := make([]string, 0, len(dirs))
	for d := range dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (r *ClaudeReader) HistoryRange() (time.Time, time.Time, bool) {
	var earliest, latest time.Time
	for _, f := range r.sessionFiles() {
		fileTimeRange(f, &earliest, &latest)
	}
	return earliest, latest, !earliest.IsZero()
}

// sessionFiles lists all transcript files across all project directories.
func (r *ClaudeReader) sessionFiles() []string {
	entries, err := os.ReadDir(r.projectsDir())
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(r.projectsDir(), entry.Name(), "*.jsonl"))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files
}

// ReadSessions parses every transcript under the projects directory.
// Unreadable or malformed files are logged and skipped. A missing root
// yields an empty result.
func (r *ClaudeReader) ReadSessions(ctx context.Context, opts ReadOptions) ([]model.Session, error) {
	var sessions []model.Session
	for _, path := range r.sessionFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Cheap mtime pre-filter before parsing the whole file.
		if !opts.Since.IsZero() {
			if st, err := os.Stat(path); err == nil && st.ModTime().UTC().Before(opts.Since) {
				continue
			}
		}

		session, err := r.parseTranscript(path)
		if err != nil {
			logging.Warn("skipping %s: %v", path, err)
			continue
		}
		if session == nil {
			continue
		}
		if !opts.inRange(session.StartTime) {
			continue
		}
		if opts.Workspace != "" && session.WorkspacePath != "" &&
			!strings.Contains(session.WorkspacePath, opts.Workspace) {
			continue
		}
		sessions = append(sessions, *session)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions, nil
}

// transcriptEntry is one JSONL line of a Claude Code session file.
type transcriptEntry struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	CWD       string          `json:"cwd"`
	GitBranch string          `json:"gitBranch"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

// transcriptMessage is the message payload inside an entry.
type transcriptMessage struct {
	Role      string          `json:"role"`
	Model     string          `json:"model"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
	Usage     *usageBlock     `json:"usage"`
}

type usageBlock struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

func (r *ClaudeReader) parseTranscript(path string) (*model.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var (
		turns       []model.ConversationTurn
		totalInput  int
		totalOutput int
		firstTS     time.Time
		lastTS      time.Time
		workspace   string
		branch      string
		modelName   string
		sessionID   string
	)

	toolNames := map[string]string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxTranscriptLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry transcriptEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}

		// Snapshot and summary entries carry no conversation.
		if entry.Type == "file-history-snapshot" || entry.Type == "summary" {
			continue
		}

		if sessionID == "" {
			sessionID = entry.SessionID
		}
		if workspace == "" {
			workspace = entry.CWD
		}
		if branch == "" {
			branch = entry.GitBranch
		}

		var msg transcriptMessage
		if len(entry.Message) > 0 {
			if err := json.Unmarshal(entry.Message, &msg); err != nil {
				continue
			}
		}
		if msg.Model != "" {
			modelName = msg.Model
		}

		turn, ok := parseClaudeTurn(&entry, &msg, toolNames)
		if !ok {
			continue
		}
		turns = append(turns, turn)
		totalInput += turn.InputTokens
		totalOutput += turn.OutputTokens

		if !turn.Timestamp.IsZero() {
			if firstTS.IsZero() || turn.Timestamp.Before(firstTS) {
				firstTS = turn.Timestamp
			}
			if lastTS.IsZero() || turn.Timestamp.After(lastTS) {
				lastTS = turn.Timestamp
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	if len(turns) == 0 {
		return nil, nil
	}

	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	duration := 0.0
	if !firstTS.IsZero() && !lastTS.IsZero() {
		duration = lastTS.Sub(firstTS).Minutes()
	}

	if workspace == "" {
		workspace = workspaceFromProjectDir(filepath.Base(filepath.Dir(path)))
	}

	return &model.Session{
		SessionID:         "cc_" + sessionID,
		Tool:              model.ToolClaudeCode,
		Turns:             turns,
		StartTime:         firstTS,
		EndTime:           lastTS,
		DurationMinutes:   duration,
		WorkspacePath:     workspace,
		Branch:            branch,
		Model:             modelName,
		TotalInputTokens:  totalInput,
		TotalOutputTokens: totalOutput,
		SessionType:       model.ClassifySession(turns),
		Metadata: model.Metadata{
			"file_path":   path,
			"project_dir": filepath.Dir(path),
		},
	}, nil
}

// contentBlock is one element of a Claude API content array.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Name      string          `json:"name"`
	ID        string          `json:"id"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
}

func parseClaudeTurn(entry *transcriptEntry, msg *transcriptMessage, toolNames map[string]string) (model.ConversationTurn, bool) {
	rawRole := msg.Role
	if rawRole == "" {
		rawRole = entry.Type
	}
	role, ok := model.NormalizeRole(rawRole)
	if !ok {
		return model.ConversationTurn{}, false
	}

	content, toolCalls, toolUseID := flattenContent(msg.Content)

	// Tool results reference the earlier tool_use block by id; resolve it
	// to the tool's name so the turn records what actually ran.
	for _, tc := range toolCalls {
		if tc.ID != "" {
			toolNames[tc.ID] = tc.Name
		}
	}

	turn := model.ConversationTurn{
		Role:      role,
		Content:   content,
		ToolCalls: toolCalls,
		ToolName:  toolNames[toolUseID],
	}

	if content != "" {
		turn.HasErrorContext = HasErrorContext(content)
		turn.HasCodeSnippet = HasCodeSnippet(content)
		turn.FileReferences = ExtractFileReferences(content)
	}

	// The entry-level timestamp is authoritative; fall back to the message.
	tsStr := entry.Timestamp
	if tsStr == "" {
		tsStr = msg.Timestamp
	}
	if tsStr != "" {
		turn.Timestamp = ParseTimestamp(tsStr)
	}

	if msg.Usage != nil {
		// Cache tokens count as input: they were part of the context window.
		turn.InputTokens = msg.Usage.InputTokens +
			msg.Usage.CacheReadInputTokens +
			msg.Usage.CacheCreationInputTokens
		turn.OutputTokens = msg.Usage.OutputTokens
	}

	return turn, true
}

// flattenContent turns a Claude content value (plain string or block array)
// into display text plus any tool calls found in the blocks. For
// tool_result blocks it reports the referenced tool_use id, which the
// caller resolves to a tool name.
func flattenContent(raw json.RawMessage) (string, []model.ToolCall, string) {
	if len(raw) == 0 {
		return "", nil, ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil, ""
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", nil, ""
	}

	var (
		parts     []string
		toolCalls []model.ToolCall
		toolUseID string
	)
	for _, block := range blocks {
		switch block.Type {
		case "text":
			if block.Text != "" {
				parts = append(parts, block.Text)
			}
		case "tool_use":
			toolCalls = append(toolCalls, model.ToolCall{Name: block.Name, ID: block.ID})
		case "tool_result":
			toolUseID = block.ToolUseID
			var sub string
			if err := json.Unmarshal(block.Content, &sub); err == nil {
				if sub != "" {
					parts = append(parts, sub)
				}
				continue
			}
			var subBlocks []contentBlock
			if err := json.Unmarshal(block.Content, &subBlocks); err == nil {
				for _, sb := range subBlocks {
					if sb.Type == "text" && sb.Text != "" {
						parts = append(parts, sb.Text)
					}
				}
			}
		}
	}
	return strings.Join(parts, "\n"), toolCalls, toolUseID
}

// workspaceFromProjectDir recovers a workspace path from Claude Code's
// encoded project directory name: -Users-me-Dev-proj -> /Users/me/Dev/proj.
// The encoding is lossy for paths that contain literal dashes; the
// transcript cwd field takes priority when present.
func workspaceFromProjectDir(name string) string {
	if strings.HasPrefix(name, "-") {
		return "/" + strings.ReplaceAll(name[1:], "-", "/")
	}
	return name
}

// ReadRuleFiles collects Claude Code instruction files: project CLAUDE.md
// and settings, nested CLAUDE.md one level deep, then user-level settings
// and per-project memory files under the Claude home.
func (r *ClaudeReader) ReadRuleFiles(workspacePath string) ([]model.RuleFileInfo, error) {
	workspace := workspacePath
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
		workspace = wd
	}

	projectFiles := []struct{ rel, fileType string }{
		{"CLAUDE.md", "claude_md"},
		{".claude/settings.json", "claude_settings"},
		{".claude/settings.local.json", "claude_settings_local"},
		{".mcp.json", "mcp_config"},
		{".claudeignore", "claudeignore"},
		{".claude/hooks.json", "claude_hooks"},
	}

	var infos []model.RuleFileInfo
	for _, pf := range projectFiles {
		info := readRuleFile(filepath.Join(workspace, pf.rel), pf.fileType, model.ToolClaudeCode)
		r.analyze(&info)
		infos = append(infos, info)
	}

	// Nested CLAUDE.md files, one level deep.
	if entries, err := os.ReadDir(workspace); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			nested := filepath.Join(workspace, entry.Name(), "CLAUDE.md")
			if _, err := os.Stat(nested); err == nil {
				info := readRuleFile(nested, "claude_md_nested", model.ToolClaudeCode)
				r.analyze(&info)
				infos = append(infos, info)
			}
		}
	}

	// User-level files.
	userFiles := []struct{ path, fileType string }{
		{filepath.Join(r.root, "settings.json"), "claude_user_settings"},
		{filepath.Join(filepath.Dir(r.root), ".claude.json"), "claude_user_mcp"},
	}
	for _, uf := range userFiles {
		info := readRuleFile(uf.path, uf.fileType, model.ToolClaudeCode)
		r.analyze(&info)
		infos = append(infos, info)
	}

	// Per-project memory indexes.
	if entries, err := os.ReadDir(r.projectsDir()); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			memory := filepath.Join(r.projectsDir(), entry.Name(), "memory", "MEMORY.md")
			if _, err := os.Stat(memory); err == nil {
				info := readRuleFile(memory, "claude_memory", model.ToolClaudeCode)
				r.analyze(&info)
				infos = append(infos, info)
			}
		}
	}

	return infos, nil
}

func (r *ClaudeReader) analyze(info *model.RuleFileInfo) {
	if !info.Exists || info.RawContent == "" {
		return
	}
	switch {
	case strings.HasPrefix(info.FileType, "claude_md") || info.FileType == "claude_memory":
		analyzeMarkdown(info, info.RawContent, false)
	case info.FileType == "claude_settings" || info.FileType == "claude_settings_local" ||
		info.FileType == "mcp_config" || info.FileType == "claude_user_settings" ||
		info.FileType == "claude_user_mcp" || info.FileType == "claude_hooks":
		analyzeJSONConfig(info, info.RawContent)
	}
}
