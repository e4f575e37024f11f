package reader

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/model"
)

// completionWindowMinutes is the idle gap that closes a pseudo-session when
// grouping log completion events.
const completionWindowMinutes = 30

// Log line shape: "<timestamp> <level> <message>".
var copilotLogLineRe = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(.*)$`)

// copilotEventPatterns classify log messages into completion event types.
// Order matters: the first hit wins.
var copilotEventPatterns = []struct {
	eventType string
	re        *regexp.Regexp
}{
	{"suggestion_generated", regexp.MustCompile(`(?i)(?:suggestion|completion)\s+(?:generated|shown)`)},
	{"completion_accepted", regexp.MustCompile(`(?i)(?:completion|suggestion)\s+accepted`)},
	{"completion_rejected", regexp.MustCompile(`(?i)(?:completion|suggestion)\s+(?:rejected|dismissed|discarded)`)},
	{"chat_response", regexp.MustCompile(`(?i)chat\s+(?:response|reply|answer)`)},
}

// Field extraction from free-form log messages.
var (
	copilotModelRe    = regexp.MustCompile(`model["']?\s*[:=]\s*["']?([\w\-./:]+)`)
	copilotLanguageRe = regexp.MustCompile(`(?:language|languageId)["']?\s*[:=]\s*["']?(\w+)`)
	copilotFilePathRe = regexp.MustCompile(`(?:file|path)["']?\s*[:=]\s*["']?([^\s"',}]+)`)
	copilotLinesRe    = regexp.MustCompile(`(?:lines?[_\s]?suggested|numLines)["']?\s*[:=]\s*(\d+)`)
)

// CopilotReader reads GitHub Copilot data from two sources: full
// conversation traces captured as JSON files (primary), and VS Code Copilot
// extension logs reduced to completion events (fallback).
type CopilotReader struct {
	tracesRoot string
	logsRoot   string
}

// NewCopilotReader builds a reader over the given trace and log
// directories. Empty roots default to the conventional locations.
func NewCopilotReader(tracesRoot, logsRoot string) *CopilotReader {
	home, _ := os.UserHomeDir()
	if tracesRoot == "" && home != "" {
		tracesRoot = filepath.Join(home, ".aireflect", "copilot_traces")
	}
	if logsRoot == "" && home != "" {
		logsRoot = defaultVSCodeLogsRoot(home)
	}
	return &CopilotReader{tracesRoot: tracesRoot, logsRoot: logsRoot}
}

func defaultVSCodeLogsRoot(home string) string {
	switch {
	case fileExists(filepath.Join(home, "Library", "Application Support", "Code", "logs")):
		return filepath.Join(home, "Library", "Application Support", "Code", "logs")
	case os.Getenv("APPDATA") != "":
		return filepath.Join(os.Getenv("APPDATA"), "Code", "logs")
	default:
		return filepath.Join(home, ".config", "Code", "logs")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r *CopilotReader) Tool() model.Tool { return model.ToolCopilot }

func (r *CopilotReader) Available() bool {
	return len(r.traceFiles()) > 0 || len(r.logFiles()) > 0
}

func (r *CopilotReader) DataLocations() []string {
	var locations []string
	if fileExists(r.tracesRoot) {
		locations = append(locations, r.tracesRoot)
	}
	if fileExists(r.logsRoot) {
		locations = append(locations, r.logsRoot)
	}
	return locations
}

func (r *CopilotReader) HistoryRange() (time.Time, time.Time, bool) {
	var earliest, latest time.Time
	for _, f := range r.traceFiles() {
		fileTimeRange(f, &earliest, &latest)
	}
	for _, f := range r.logFiles() {
		fileTimeRange(f, &earliest, &latest)
	}
	return earliest, latest, !earliest.IsZero()
}

func (r *CopilotReader) traceFiles() []string {
	matches, err := filepath.Glob(filepath.Join(r.tracesRoot, "*.json"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

// logFiles finds Copilot extension logs under the VS Code logs tree:
// logs/<date>/GitHub Copilot*/...*.log, newest first.
func (r *CopilotReader) logFiles() []string {
	if r.logsRoot == "" {
		return nil
	}
	seen := map[string]struct{}{}
	var files []string
	for _, pattern := range []string{
		filepath.Join(r.logsRoot, "*", "GitHub Copilot*", "*.log"),
		filepath.Join(r.logsRoot, "*", "GitHub Copilot*", "*", "*.log"),
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
	}
	sort.Slice(files, func(i, j int) bool {
		si, erri := os.Stat(files[i])
		sj, errj := os.Stat(files[j])
		if erri != nil || errj != nil {
			return files[i] < files[j]
		}
		return si.ModTime().After(sj.ModTime())
	})
	return files
}

// ReadSessions reads trace sessions first, then synthesizes pseudo-sessions
// from log completion events.
func (r *CopilotReader) ReadSessions(ctx context.Context, opts ReadOptions) ([]model.Session, error) {
	var sessions []model.Session

	for _, path := range r.traceFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !opts.Since.IsZero() {
			if st, err := os.Stat(path); err == nil && st.ModTime().UTC().Before(opts.Since) {
				continue
			}
		}
		session, err := r.parseTraceFile(path)
		if err != nil {
			logging.Warn("skipping trace file %s: %v", path, err)
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

	events, err := r.readCompletionEvents(ctx, opts)
	if err != nil {
		return nil, err
	}
	sessions = append(sessions, GroupCompletionEvents(events)...)

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions, nil
}

// copilotTrace is the trace file shape written by the capture extension.
type copilotTrace struct {
	SessionID    string           `json:"sessionId"`
	ID           string           `json:"id"`
	Model        string           `json:"model"`
	Workspace    string           `json:"workspace"`
	CWD          string           `json:"cwd"`
	Timestamp    any              `json:"timestamp"`
	Turns        []map[string]any `json:"turns"`
	Messages     []map[string]any `json:"messages"`
	Conversation []map[string]any `json:"conversation"`
}

func (r *CopilotReader) parseTraceFile(path string) (*model.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	var trace copilotTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("parse trace: %w", err)
	}

	sessionID := trace.SessionID
	if sessionID == "" {
		sessionID = trace.ID
	}
	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	workspace := trace.Workspace
	if workspace == "" {
		workspace = trace.CWD
	}

	rawTurns := trace.Turns
	if len(rawTurns) == 0 {
		rawTurns = trace.Messages
	}
	if len(rawTurns) == 0 {
		rawTurns = trace.Conversation
	}

	var (
		turns       []model.ConversationTurn
		totalInput  int
		totalOutput int
		modelName   = trace.Model
	)
	for _, raw := range rawTurns {
		turn, ok := parseCopilotTurn(raw)
		if !ok {
			continue
		}
		if modelName == "" {
			modelName = firstString(raw, "model")
		}
		turns = append(turns, turn)
		totalInput += turn.InputTokens
		totalOutput += turn.OutputTokens
	}
	if len(turns) == 0 {
		return nil, nil
	}

	start, end := turnTimeRange(turns)
	if start.IsZero() && trace.Timestamp != nil {
		start = ParseTimestamp(trace.Timestamp)
	}
	if end.IsZero() {
		end = start
	}

	return &model.Session{
		SessionID:         "cop_" + sessionID,
		Tool:              model.ToolCopilot,
		Turns:             turns,
		StartTime:         start,
		EndTime:           end,
		DurationMinutes:   safeDurationMinutes(start, end),
		WorkspacePath:     workspace,
		Model:             modelName,
		TotalInputTokens:  totalInput,
		TotalOutputTokens: totalOutput,
		SessionType:       model.ClassifySession(turns),
		Metadata: model.Metadata{
			"source":    "trace_file",
			"file_path": path,
		},
	}, nil
}

func parseCopilotTurn(raw map[string]any) (model.ConversationTurn, bool) {
	role, ok := model.NormalizeRole(firstString(raw, "role"))
	if !ok {
		return model.ConversationTurn{}, false
	}

	content := ""
	switch c := firstNonNil(raw, "content", "text").(type) {
	case string:
		content = c
	case []any:
		var parts []string
		for _, block := range c {
			switch b := block.(type) {
			case string:
				parts = append(parts, b)
			case map[string]any:
				if t, ok := b["text"].(string); ok && t != "" {
					parts = append(parts, t)
				}
			}
		}
		content = strings.Join(parts, "\n")
	}

	var toolCalls []model.ToolCall
	tcs, _ := firstNonNil(raw, "toolCalls", "tool_calls").([]any)
	for _, tc := range tcs {
		tcMap, ok := tc.(map[string]any)
		if !ok {
			continue
		}
		name := firstString(tcMap, "name")
		if name == "" {
			if fn, ok := tcMap["function"].(map[string]any); ok {
				name = firstString(fn, "name")
			}
		}
		toolCalls = append(toolCalls, model.ToolCall{Name: name, ID: firstString(tcMap, "id")})
	}

	turn := model.ConversationTurn{
		Role:           role,
		Content:        content,
		Timestamp:      extractTimestamp(raw),
		ToolCalls:      toolCalls,
		InputTokens:    inputTokens(raw),
		OutputTokens:   outputTokens(raw),
		HasCodeSnippet: strings.Contains(content, "```"),
	}
	if role == model.RoleUser {
		turn.FileReferences = ExtractFileReferences(content)
		turn.HasErrorContext = HasErrorContext(content)
	}
	return turn, true
}

// readCompletionEvents parses every Copilot log file into completion
// events, sorted by timestamp with the since/until window applied.
func (r *CopilotReader) readCompletionEvents(ctx context.Context, opts ReadOptions) ([]model.CompletionEvent, error) {
	var events []model.CompletionEvent
	for _, path := range r.logFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !opts.Since.IsZero() {
			if st, err := os.Stat(path); err == nil && st.ModTime().UTC().Before(opts.Since) {
				continue
			}
		}
		fileEvents, err := parseCopilotLog(path)
		if err != nil {
			logging.Warn("skipping log file %s: %v", path, err)
			continue
		}
		for _, e := range fileEvents {
			if !opts.Since.IsZero() && e.Timestamp.Before(opts.Since) {
				continue
			}
			if !opts.Until.IsZero() && e.Timestamp.After(opts.Until) {
				continue
			}
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

func parseCopilotLog(path string) ([]model.CompletionEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	var events []model.CompletionEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		m := copilotLogLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if event, ok := parseCopilotLogEvent(m[1], m[3]); ok {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log: %w", err)
	}
	return events, nil
}

func parseCopilotLogEvent(tsStr, message string) (model.CompletionEvent, bool) {
	eventType := ""
	for _, ep := range copilotEventPatterns {
		if ep.re.MatchString(message) {
			eventType = ep.eventType
			break
		}
	}
	if eventType == "" {
		return model.CompletionEvent{}, false
	}

	ts := ParseTimestamp(tsStr)
	if ts.IsZero() {
		return model.CompletionEvent{}, false
	}

	event := model.CompletionEvent{
		Timestamp: ts,
		Language:  "unknown",
		Accepted:  eventType == "completion_accepted",
		EventType: eventType,
	}
	if m := copilotModelRe.FindStringSubmatch(message); m != nil {
		event.Model = m[1]
	}
	if m := copilotLanguageRe.FindStringSubmatch(message); m != nil {
		event.Language = m[1]
	}
	if m := copilotFilePathRe.FindStringSubmatch(message); m != nil {
		event.FilePath = m[1]
	}
	if m := copilotLinesRe.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			event.SuggestionLength = n
		}
	}

	// Content-derived ID so a line parses to the same event on every run.
	head := message
	if len(head) > 50 {
		head = head[:50]
	}
	sum := md5.Sum([]byte(tsStr + ":" + eventType + ":" + head))
	event.EventID = hex.EncodeToString(sum[:])[:12]

	return event, true
}

// GroupCompletionEvents groups time-ordered completion events into
// pseudo-sessions: a gap longer than 30 minutes between consecutive events
// closes the current session and starts a new one.
func GroupCompletionEvents(events []model.CompletionEvent) []model.Session {
	if len(events) == 0 {
		return nil
	}

	var sessions []model.Session
	current := []model.CompletionEvent{events[0]}
	for _, event := range events[1:] {
		gap := event.Timestamp.Sub(current[len(current)-1].Timestamp).Minutes()
		if gap > completionWindowMinutes {
			if s := eventsToSession(current); s != nil {
				sessions = append(sessions, *s)
			}
			current = []model.CompletionEvent{event}
		} else {
			current = append(current, event)
		}
	}
	if s := eventsToSession(current); s != nil {
		sessions = append(sessions, *s)
	}
	return sessions
}

func eventsToSession(events []model.CompletionEvent) *model.Session {
	if len(events) == 0 {
		return nil
	}

	start := events[0].Timestamp
	end := events[len(events)-1].Timestamp

	turns := make([]model.ConversationTurn, 0, len(events))
	accepted := 0
	languageSet := map[string]struct{}{}
	for _, event := range events {
		action := "suggested"
		if event.Accepted {
			action = "accepted"
			accepted++
		}
		content := fmt.Sprintf("Copilot %s completion in %s", action, event.Language)
		if event.FilePath != "" {
			content += " (" + event.FilePath + ")"
		}
		turn := model.ConversationTurn{
			Role:      model.RoleAssistant,
			Content:   content,
			Timestamp: event.Timestamp,
		}
		if event.FilePath != "" {
			turn.FileReferences = []string{event.FilePath}
		}
		turns = append(turns, turn)
		if event.Language != "unknown" {
			languageSet[event.Language] = struct{}{}
		}
	}

	languages := make([]string, 0, len(languageSet))
	for l := range languageSet {
		languages = append(languages, l)
	}
	sort.Strings(languages)

	return &model.Session{
		SessionID:       "cop_log_" + start.Format("20060102_150405"),
		Tool:            model.ToolCopilot,
		Turns:           turns,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: safeDurationMinutes(start, end),
		Model:           events[0].Model,
		SessionType:     model.SessionCoding,
		Metadata: model.Metadata{
			"source":               "vscode_logs",
			"completion_events":    len(events),
			"completions_accepted": accepted,
			"acceptance_rate":      float64(accepted) / float64(len(events)),
			"languages":            languages,
			"events":               events,
		},
	}
}

// ReadRuleFiles collects Copilot instruction files: repository instructions,
// path-scoped instruction files, prompt files, AGENTS.md at the root and one
// level deep, and VS Code settings.
func (r *CopilotReader) ReadRuleFiles(workspacePath string) ([]model.RuleFileInfo, error) {
	workspace := workspacePath
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
		workspace = wd
	}

	projectFiles := []struct{ rel, fileType string }{
		{filepath.Join(".github", "copilot-instructions.md"), "copilot_instructions"},
		{"AGENTS.md", "agents_md"},
		{".agent.md", "agent_md"},
		{filepath.Join(".vscode", "settings.json"), "vscode_settings"},
	}

	var infos []model.RuleFileInfo
	for _, pf := range projectFiles {
		info := readRuleFile(filepath.Join(workspace, pf.rel), pf.fileType, model.ToolCopilot)
		r.analyze(&info)
		infos = append(infos, info)
	}

	if matches, err := filepath.Glob(filepath.Join(workspace, ".github", "instructions", "*.instructions.md")); err == nil {
		sort.Strings(matches)
		for _, m := range matches {
			info := readRuleFile(m, "copilot_scoped_instructions", model.ToolCopilot)
			r.analyze(&info)
			infos = append(infos, info)
		}
	}

	if matches, err := filepath.Glob(filepath.Join(workspace, ".github", "prompts", "*.md")); err == nil {
		sort.Strings(matches)
		for _, m := range matches {
			info := readRuleFile(m, "copilot_prompt", model.ToolCopilot)
			r.analyze(&info)
			infos = append(infos, info)
		}
	}

	info := readRuleFile(filepath.Join(workspace, ".github", "copilot-skills.md"), "copilot_skills", model.ToolCopilot)
	r.analyze(&info)
	infos = append(infos, info)

	// Nested AGENTS.md, one level deep.
	if entries, err := os.ReadDir(workspace); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			nested := filepath.Join(workspace, entry.Name(), "AGENTS.md")
			if fileExists(nested) {
				info := readRuleFile(nested, "agents_md_nested", model.ToolCopilot)
				r.analyze(&info)
				infos = append(infos, info)
			}
		}
	}

	return infos, nil
}

func (r *CopilotReader) analyze(info *model.RuleFileInfo) {
	if !info.Exists || info.RawContent == "" {
		return
	}
	switch info.FileType {
	case "copilot_instructions", "agents_md", "agent_md", "agents_md_nested",
		"copilot_prompt", "copilot_skills":
		analyzeMarkdown(info, info.RawContent, false)
	case "copilot_scoped_instructions":
		analyzeMarkdown(info, info.RawContent, true)
	case "vscode_settings":
		r.analyzeVSCodeSettings(info)
	}
}

// analyzeVSCodeSettings counts Copilot-related keys rather than all keys:
// the rest of the settings file says nothing about assistant configuration.
func (r *CopilotReader) analyzeVSCodeSettings(info *model.RuleFileInfo) {
	info.HasToolConfig = true
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(info.RawContent), &data); err != nil {
		return
	}
	count := 0
	for key := range data {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "copilot") || strings.Contains(lower, "github") {
			count++
		}
	}
	info.SectionCount = count
}
