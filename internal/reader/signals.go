package reader

import (
	"regexp"
	"sort"
	"strings"
)

var (
	errorContextRe = regexp.MustCompile(`(?i)(error|exception|traceback|stack trace|failed|errno)`)
	fileRefRe      = regexp.MustCompile(`[\w./\\-]+\.\w{1,10}`)
)

// maxFileRefs caps extracted file references per turn.
const maxFileRefs = 20

// HasErrorContext reports whether text looks like it carries an error
// message, traceback, or failure report.
func HasErrorContext(text string) bool {
	return text != "" && errorContextRe.MatchString(text)
}

// HasCodeSnippet reports whether text appears to include code: a fenced
// block, or more than three newlines.
func HasCodeSnippet(text string) bool {
	if text == "" {
		return false
	}
	return strings.Contains(text, "```") || strings.Count(text, "\n") > 3
}

// ExtractFileReferences pulls deduplicated path-like tokens (something with
// an extension) out of text, capped at 20 and sorted so output is stable.
func ExtractFileReferences(text string) []string {
	if text == "" {
		return nil
	}
	seen := map[string]struct{}{}
	for _, m := range fileRefRe.FindAllString(text, -1) {
		seen[m] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	refs := make([]string, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	if len(refs) > maxFileRefs {
		refs = refs[:maxFileRefs]
	}
	return refs
}
