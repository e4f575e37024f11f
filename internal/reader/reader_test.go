package reader

import (
	"testing"
	"time"
)

func TestReadOptionsInRange(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		opts  ReadOptions
		start time.Time
		want  bool
	}{
		{"no filters, dated", ReadOptions{}, base, true},
		{"no filters, undated", ReadOptions{}, time.Time{}, true},
		{"since admits later", ReadOptions{Since: base}, base.Add(time.Hour), true},
		{"since rejects earlier", ReadOptions{Since: base}, base.Add(-time.Hour), false},
		{"since rejects undated", ReadOptions{Since: base}, time.Time{}, false},
		{"until alone keeps undated", ReadOptions{Until: base}, time.Time{}, true},
		{"until rejects later", ReadOptions{Until: base}, base.Add(time.Hour), false},
		{"window admits inside", ReadOptions{Since: base, Until: base.Add(2 * time.Hour)}, base.Add(time.Hour), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.opts.inRange(tc.start); got != tc.want {
				t.Errorf("inRange(%v) = %v, want %v", tc.start, got, tc.want)
			}
		})
	}
}
