package output

import (
	"fmt"
	"strings"
)

// Table is a simple styled table renderer for status and trend listings.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with the given column headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow adds a row of values. Missing cells render empty; extra cells are
// dropped. Cells may carry ANSI styling; widths use the visible length.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := range t.headers {
		if i < len(values) {
			row[i] = values[i]
		}
		if w := visualLen(row[i]); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// Render returns the formatted table as a string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow := func(cells []string, style func(string) string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(style(pad(cell, t.widths[i])))
		}
		sb.WriteString("\n")
	}

	writeRow(t.headers, func(s string) string { return StyleHeader.Render(s) })

	separators := make([]string, len(t.widths))
	for i, w := range t.widths {
		separators[i] = strings.Repeat("─", w)
	}
	writeRow(separators, func(s string) string { return StyleMuted.Render(s) })

	for _, row := range t.rows {
		writeRow(row, func(s string) string { return s })
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return t.Render()
}

// Print writes the table to stdout.
func (t *Table) Print() {
	fmt.Print(t.Render())
}

// pad right-pads a string to the given visible width.
func pad(s string, width int) string {
	if w := visualLen(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// visualLen returns the length of a string with ANSI escape sequences
// stripped, so styled cells align.
func visualLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			n++
		}
	}
	return n
}
