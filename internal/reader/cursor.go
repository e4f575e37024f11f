package reader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blackwell-systems/aireflect/internal/logging"
	"github.com/blackwell-systems/aireflect/internal/model"
)

// cursorTargetKeys are the cursorDiskKV keys that hold conversation data.
// composerData carries full sessions; prompts and generations are the
// fallback when a workspace has no composer history.
var cursorTargetKeys = []string{
	"composer.composerData",
	"aiService.prompts",
	"aiService.generations",
}

// CursorReader reads Cursor IDE sessions from per-workspace state.vscdb
// SQLite databases under <storageRoot>/<hash>/state.vscdb.
type CursorReader struct {
	storageRoot string
}

// NewCursorReader builds a reader over the given workspaceStorage
// directory. An empty root defaults to the platform's Cursor location.
func NewCursorReader(storageRoot string) *CursorReader {
	if storageRoot == "" {
		storageRoot = defaultCursorStorageRoot()
	}
	return &CursorReader{storageRoot: storageRoot}
}

func defaultCursorStorageRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	var base string
	switch runtime.GOOS {
	case "darwin":
		base = filepath.Join(home, "Library", "Application Support", "Cursor")
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			base = filepath.Join(appdata, "Cursor")
		} else {
			base = filepath.Join(home, "Cursor")
		}
	default:
		base = filepath.Join(home, ".config", "Cursor")
	}
	return filepath.Join(base, "User", "workspaceStorage")
}

func (r *CursorReader) Tool() model.Tool { return model.ToolCursor }

func (r *CursorReader) Available() bool {
	return len(r.dbFiles()) > 0
}

func (r *CursorReader) DataLocations() []string {
	return r.dbFiles()
}

func (r *CursorReader) HistoryRange() (time.Time, time.Time, bool) {
	var earliest, latest time.Time
	for _, f := range r.dbFiles() {
		fileTimeRange(f, &earliest, &latest)
	}
	return earliest, latest, !earliest.IsZero()
}

// dbFiles finds every state.vscdb under the storage root, newest first.
func (r *CursorReader) dbFiles() []string {
	if r.storageRoot == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(r.storageRoot, "*", "state.vscdb"))
	if err != nil {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		si, erri := os.Stat(matches[i])
		sj, errj := os.Stat(matches[j])
		if erri != nil || errj != nil {
			return matches[i] < matches[j]
		}
		return si.ModTime().After(sj.ModTime())
	})
	return matches
}

// ReadSessions reads sessions from every workspace database. Databases
// that cannot be opened or lack the KV table are logged and skipped so one
// corrupt workspace never hides the rest.
func (r *CursorReader) ReadSessions(ctx context.Context, opts ReadOptions) ([]model.Session, error) {
	var sessions []model.Session
	for _, dbPath := range r.dbFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !opts.Since.IsZero() {
			if st, err := os.Stat(dbPath); err == nil && st.ModTime().UTC().Before(opts.Since) {
				continue
			}
		}

		dbSessions, err := r.readDatabase(ctx, dbPath, opts)
		if err != nil {
			logging.Warn("skipping cursor db %s: %v", dbPath, err)
			continue
		}
		sessions = append(sessions, dbSessions...)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions, nil
}

func (r *CursorReader) readDatabase(ctx context.Context, dbPath string, opts ReadOptions) ([]model.Session, error) {
	workspaceHash := filepath.Base(filepath.Dir(dbPath))

	// Read-only open: Cursor may hold the database at the same time.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var tableName string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='cursorDiskKV'",
	).Scan(&tableName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inspect schema: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cursorTargetKeys)), ",")
	args := make([]any, len(cursorTargetKeys))
	for i, k := range cursorTargetKeys {
		args[i] = k
	}
	rows, err := db.QueryContext(ctx,
		"SELECT key, value FROM cursorDiskKV WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("query kv store: %w", err)
	}
	defer rows.Close()

	var composer, prompts, generations []cursorRecord
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan kv row: %w", err)
		}
		if len(value) == 0 {
			continue
		}
		var data any
		if err := json.Unmarshal(value, &data); err != nil {
			continue
		}
		switch key {
		case "composer.composerData":
			composer = parseComposerData(data)
		case "aiService.prompts":
			prompts = parsePromptRecords(data, "aiService.prompts", false)
		case "aiService.generations":
			generations = parsePromptRecords(data, "aiService.generations", true)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv rows: %w", err)
	}

	var sessions []model.Session
	if len(composer) > 0 {
		sessions = buildComposerSessions(composer, workspaceHash, dbPath)
	} else {
		sessions = buildPromptGenSessions(append(prompts, generations...), workspaceHash, dbPath)
	}

	filtered := sessions[:0]
	for _, s := range sessions {
		if !opts.inRange(s.StartTime) {
			continue
		}
		if opts.Workspace != "" && s.WorkspacePath != "" &&
			!strings.Contains(s.WorkspacePath, opts.Workspace) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered, nil
}

// cursorRecord is one normalized entry pulled from the KV store, before
// session assembly.
type cursorRecord struct {
	sessionID    string
	timestamp    time.Time
	model        string
	prompt       string
	completion   string
	inputTokens  int
	outputTokens int
	turns        []any
	sourceKey    string
}

// parseComposerData flattens composer.composerData, which appears either as
// a map of session id -> session (or list of entries) or as a plain list.
func parseComposerData(data any) []cursorRecord {
	var items []map[string]any
	switch d := data.(type) {
	case map[string]any:
		for sessionID, v := range d {
			switch sv := v.(type) {
			case map[string]any:
				sv["_session_id"] = sessionID
				items = append(items, sv)
			case []any:
				for _, e := range sv {
					if em, ok := e.(map[string]any); ok {
						em["_session_id"] = sessionID
						items = append(items, em)
					}
				}
			}
		}
	case []any:
		for _, e := range d {
			if em, ok := e.(map[string]any); ok {
				items = append(items, em)
			}
		}
	}

	records := make([]cursorRecord, 0, len(items))
	for _, item := range items {
		records = append(records, cursorRecord{
			sessionID:    firstString(item, "_session_id", "composerId", "id"),
			timestamp:    extractTimestamp(item),
			model:        firstString(item, "model", "modelId"),
			prompt:       firstString(item, "prompt", "text", "input"),
			completion:   firstString(item, "completion", "response", "output"),
			inputTokens:  inputTokens(item),
			outputTokens: outputTokens(item),
			turns:        firstList(item, "conversation", "turns", "messages"),
			sourceKey:    "composer.composerData",
		})
	}
	return records
}

// parsePromptRecords handles aiService.prompts and aiService.generations,
// which are lists (or single objects) of prompt/completion entries.
func parsePromptRecords(data any, sourceKey string, isGeneration bool) []cursorRecord {
	var items []map[string]any
	switch d := data.(type) {
	case []any:
		for _, e := range d {
			if em, ok := e.(map[string]any); ok {
				items = append(items, em)
			}
		}
	case map[string]any:
		items = append(items, d)
	}

	records := make([]cursorRecord, 0, len(items))
	for _, item := range items {
		rec := cursorRecord{
			sessionID:   firstString(item, "sessionId", "id"),
			timestamp:   extractTimestamp(item),
			model:       firstString(item, "model", "modelId"),
			inputTokens: inputTokens(item),
			sourceKey:   sourceKey,
		}
		if isGeneration {
			rec.prompt = firstString(item, "prompt", "input")
			rec.completion = firstString(item, "completion", "text", "output")
			rec.outputTokens = outputTokens(item)
		} else {
			rec.prompt = firstString(item, "prompt", "text", "content")
		}
		records = append(records, rec)
	}
	return records
}

// buildComposerSessions converts composer records, one session each.
func buildComposerSessions(records []cursorRecord, workspaceHash, sourceFile string) []model.Session {
	var sessions []model.Session
	for _, rec := range records {
		sessionID := rec.sessionID
		if sessionID == "" {
			sessionID = "unknown"
		}

		var turns []model.ConversationTurn
		totalInput := rec.inputTokens
		totalOutput := rec.outputTokens

		for _, raw := range rec.turns {
			rawMap, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			turn, ok := parseCursorTurn(rawMap)
			if !ok {
				continue
			}
			turns = append(turns, turn)
			totalInput += turn.InputTokens
			totalOutput += turn.OutputTokens
		}

		// No embedded conversation: synthesize turns from the
		// prompt/completion pair.
		if len(turns) == 0 {
			if rec.prompt != "" {
				turns = append(turns, userTurnFromText(rec.prompt, rec.timestamp))
			}
			if rec.completion != "" {
				turns = append(turns, model.ConversationTurn{
					Role:      model.RoleAssistant,
					Content:   rec.completion,
					Timestamp: rec.timestamp,
				})
			}
		}
		if len(turns) == 0 {
			continue
		}

		start, end := turnTimeRange(turns)
		if !rec.timestamp.IsZero() {
			start = rec.timestamp
		}
		if end.IsZero() {
			end = start
		}

		sessions = append(sessions, model.Session{
			SessionID:         "cur_" + sessionID,
			Tool:              model.ToolCursor,
			Turns:             turns,
			StartTime:         start,
			EndTime:           end,
			DurationMinutes:   safeDurationMinutes(start, end),
			WorkspacePath:     workspaceHash,
			Model:             rec.model,
			TotalInputTokens:  totalInput,
			TotalOutputTokens: totalOutput,
			SessionType:       model.ClassifySession(turns),
			Metadata: model.Metadata{
				"source_file":    sourceFile,
				"source_key":     rec.sourceKey,
				"workspace_hash": workspaceHash,
			},
		})
	}
	return sessions
}

// buildPromptGenSessions pairs prompt and generation records grouped by
// session id, ordered by timestamp within each group.
func buildPromptGenSessions(records []cursorRecord, workspaceHash, sourceFile string) []model.Session {
	groups := map[string][]cursorRecord{}
	var order []string
	for _, rec := range records {
		sid := rec.sessionID
		if sid == "" {
			sid = "unknown"
		}
		if _, ok := groups[sid]; !ok {
			order = append(order, sid)
		}
		groups[sid] = append(groups[sid], rec)
	}
	sort.Strings(order)

	var sessions []model.Session
	for _, sid := range order {
		group := groups[sid]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].timestamp.Before(group[j].timestamp)
		})

		var turns []model.ConversationTurn
		totalInput := 0
		totalOutput := 0
		modelName := ""

		for _, rec := range group {
			if modelName == "" {
				modelName = rec.model
			}
			if rec.prompt != "" {
				turn := userTurnFromText(rec.prompt, rec.timestamp)
				turn.InputTokens = rec.inputTokens
				turns = append(turns, turn)
				totalInput += rec.inputTokens
			}
			if rec.completion != "" {
				turns = append(turns, model.ConversationTurn{
					Role:         model.RoleAssistant,
					Content:      rec.completion,
					Timestamp:    rec.timestamp,
					OutputTokens: rec.outputTokens,
				})
				totalOutput += rec.outputTokens
			}
		}
		if len(turns) == 0 {
			continue
		}

		start, end := turnTimeRange(turns)
		sessions = append(sessions, model.Session{
			SessionID:         "cur_" + sid,
			Tool:              model.ToolCursor,
			Turns:             turns,
			StartTime:         start,
			EndTime:           end,
			DurationMinutes:   safeDurationMinutes(start, end),
			WorkspacePath:     workspaceHash,
			Model:             modelName,
			TotalInputTokens:  totalInput,
			TotalOutputTokens: totalOutput,
			SessionType:       model.ClassifySession(turns),
			Metadata: model.Metadata{
				"source_file":    sourceFile,
				"source_key":     "aiService.prompts+generations",
				"workspace_hash": workspaceHash,
			},
		})
	}
	return sessions
}

// parseCursorTurn normalizes one embedded composer conversation turn.
func parseCursorTurn(raw map[string]any) (model.ConversationTurn, bool) {
	rawRole := firstString(raw, "role", "type")
	role, ok := model.NormalizeRole(rawRole)
	if !ok {
		return model.ConversationTurn{}, false
	}

	content := ""
	switch c := firstNonNil(raw, "content", "text", "message").(type) {
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
	if tcs, ok := raw["tool_calls"].([]any); ok {
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
			toolCalls = append(toolCalls, model.ToolCall{
				Name: name,
				ID:   firstString(tcMap, "id"),
			})
		}
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

func firstNonNil(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func userTurnFromText(text string, ts time.Time) model.ConversationTurn {
	return model.ConversationTurn{
		Role:            model.RoleUser,
		Content:         text,
		Timestamp:       ts,
		FileReferences:  ExtractFileReferences(text),
		HasErrorContext: HasErrorContext(text),
		HasCodeSnippet:  strings.Contains(text, "```"),
	}
}

func turnTimeRange(turns []model.ConversationTurn) (time.Time, time.Time) {
	var start, end time.Time
	for _, t := range turns {
		if t.Timestamp.IsZero() {
			continue
		}
		if start.IsZero() || t.Timestamp.Before(start) {
			start = t.Timestamp
		}
		if end.IsZero() || t.Timestamp.After(end) {
			end = t.Timestamp
		}
	}
	return start, end
}

func safeDurationMinutes(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	d := end.Sub(start).Minutes()
	if d < 0 {
		return 0
	}
	return d
}

// ReadRuleFiles collects Cursor instruction files: .cursorrules, modern
// .cursor/rules/*.mdc, slash commands, and MCP/hooks config at project and
// user level.
func (r *CursorReader) ReadRuleFiles(workspacePath string) ([]model.RuleFileInfo, error) {
	workspace := workspacePath
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
		workspace = wd
	}

	projectFiles := []struct{ rel, fileType string }{
		{".cursorrules", "cursorrules"},
		{".cursor/rules.md", "cursor_rules_md"},
		{".cursor/mcp.json", "cursor_mcp"},
		{".cursor/hooks.json", "cursor_hooks"},
		{".cursorignore", "cursorignore"},
	}

	var infos []model.RuleFileInfo
	for _, pf := range projectFiles {
		info := readRuleFile(filepath.Join(workspace, pf.rel), pf.fileType, model.ToolCursor)
		r.analyze(&info)
		infos = append(infos, info)
	}

	if matches, err := filepath.Glob(filepath.Join(workspace, ".cursor", "rules", "*.mdc")); err == nil {
		sort.Strings(matches)
		for _, m := range matches {
			info := readRuleFile(m, "cursor_mdc", model.ToolCursor)
			r.analyze(&info)
			infos = append(infos, info)
		}
	}

	if matches, err := filepath.Glob(filepath.Join(workspace, ".cursor", "commands", "*.md")); err == nil {
		sort.Strings(matches)
		for _, m := range matches {
			info := readRuleFile(m, "cursor_command", model.ToolCursor)
			r.analyze(&info)
			infos = append(infos, info)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		for _, uf := range []struct{ rel, fileType string }{
			{filepath.Join(".cursor", "mcp.json"), "cursor_user_mcp"},
			{filepath.Join(".cursor", "hooks.json"), "cursor_user_hooks"},
		} {
			info := readRuleFile(filepath.Join(home, uf.rel), uf.fileType, model.ToolCursor)
			r.analyze(&info)
			infos = append(infos, info)
		}
	}

	return infos, nil
}

func (r *CursorReader) analyze(info *model.RuleFileInfo) {
	if !info.Exists || info.RawContent == "" {
		return
	}
	switch info.FileType {
	case "cursorrules", "cursor_rules_md", "cursor_command":
		analyzeMarkdown(info, info.RawContent, false)
	case "cursor_mdc":
		// .mdc files carry YAML frontmatter (description, globs).
		analyzeMarkdown(info, info.RawContent, true)
	case "cursor_mcp", "cursor_hooks", "cursor_user_mcp", "cursor_user_hooks":
		analyzeJSONConfig(info, info.RawContent)
	}
}
