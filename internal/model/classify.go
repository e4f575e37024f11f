package model

import (
	"regexp"
	"strings"
)

// sessionTypeGroup pairs a session type with the patterns that signal it.
// Groups are ordered: when two types tie on total match count, the earlier
// group wins, so classification is deterministic across runs.
type sessionTypeGroup struct {
	Type     SessionType
	Patterns []*regexp.Regexp
}

var sessionTypeGroups = []sessionTypeGroup{
	{SessionDebugging, compileAll(
		`\b(debug|error|traceback|exception|fix|bug|issue|broken|crash|fail)\b`,
	)},
	{SessionTesting, compileAll(
		`\b(test|spec|assert|mock|fixture|coverage|pytest|jest|unittest)\b`,
	)},
	{SessionRefactoring, compileAll(
		`\b(refactor|rename|extract|restructure|reorganize|clean.?up|simplif)\b`,
	)},
	{SessionDocs, compileAll(
		`\b(document|readme|docstring|comment|explain|description|api.?doc)\b`,
	)},
	{SessionExploration, compileAll(
		`\b(explore|search|find|where|how does|what is|understand|investigate)\b`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// ClassifySession infers the session type from the lowercased concatenation
// of all user turn content. Empty user text yields SessionUnknown; text that
// matches no pattern group yields SessionCoding.
func ClassifySession(turns []ConversationTurn) SessionType {
	var parts []string
	for _, t := range turns {
		if t.Role == RoleUser && t.Content != "" {
			parts = append(parts, t.Content)
		}
	}
	text := strings.ToLower(strings.Join(parts, " "))
	if text == "" {
		return SessionUnknown
	}

	best := SessionCoding
	bestCount := 0
	for _, group := range sessionTypeGroups {
		count := 0
		for _, re := range group.Patterns {
			count += len(re.FindAllStringIndex(text, -1))
		}
		if count > bestCount {
			best = group.Type
			bestCount = count
		}
	}
	return best
}
