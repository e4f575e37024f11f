// Package reader extracts conversation sessions from each tool's native
// local storage and normalizes them into the canonical session model.
// Readers never write to the stores they read.
package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/aireflect/internal/model"
)

// ReadOptions narrows which sessions a reader returns. Zero times mean
// unbounded; an empty Workspace matches everything.
type ReadOptions struct {
	Since     time.Time
	Until     time.Time
	Workspace string
}

// Reader extracts sessions and rule files from one tool's local storage.
type Reader interface {
	// Tool identifies which assistant this reader handles.
	Tool() model.Tool

	// Available reports whether the tool's data exists on this machine.
	Available() bool

	// DataLocations returns the paths the reader would scan.
	DataLocations() []string

	// HistoryRange returns the earliest and latest data timestamps; ok is
	// false when no data exists.
	HistoryRange() (earliest, latest time.Time, ok bool)

	// ReadSessions reads sessions matching opts, sorted by start time.
	// A missing storage root is not an error: it yields an empty slice.
	ReadSessions(ctx context.Context, opts ReadOptions) ([]model.Session, error)

	// ReadRuleFiles parses the tool's instruction/config files relative to
	// the workspace. Expected-but-missing files are reported with
	// Exists=false.
	ReadRuleFiles(workspacePath string) ([]model.RuleFileInfo, error)
}

// Status summarizes one tool's data availability for the status command.
type Status struct {
	Tool          model.Tool `json:"tool"`
	Available     bool       `json:"available"`
	DataLocations []string   `json:"data_locations"`
	EarliestData  time.Time  `json:"earliest_data,omitzero"`
	LatestData    time.Time  `json:"latest_data,omitzero"`
}

// StatusOf builds the availability summary for a reader.
func StatusOf(r Reader) Status {
	st := Status{Tool: r.Tool(), Available: r.Available()}
	if !st.Available {
		return st
	}
	st.DataLocations = r.DataLocations()
	if earliest, latest, ok := r.HistoryRange(); ok {
		st.EarliestData = earliest
		st.LatestData = latest
	}
	return st
}

// Registry holds one reader per supported tool, in auto-detection order.
type Registry struct {
	readers []Reader
}

// NewRegistry builds a registry from the given readers, preserving order.
func NewRegistry(readers ...Reader) *Registry {
	return &Registry{readers: readers}
}

// All returns every registered reader.
func (r *Registry) All() []Reader {
	return r.readers
}

// ForTool returns the reader for the named tool.
func (r *Registry) ForTool(tool model.Tool) (Reader, error) {
	for _, rd := range r.readers {
		if rd.Tool() == tool {
			return rd, nil
		}
	}
	return nil, fmt.Errorf("no reader registered for tool %q", tool)
}

// Detect returns the first available reader in registration order. When no
// tool has data, it fails with a message listing what was checked.
func (r *Registry) Detect() (Reader, error) {
	var checked []model.Tool
	for _, rd := range r.readers {
		if rd.Available() {
			return rd, nil
		}
		checked = append(checked, rd.Tool())
	}
	return nil, fmt.Errorf("no AI tool data found (checked: %v); use --tool to pick one explicitly", checked)
}

// inRange applies the since/until window to a session start time. Sessions
// without a start time pass only when no since filter is set: a dated
// lower bound can't be checked against an undated session.
func (o ReadOptions) inRange(start time.Time) bool {
	if start.IsZero() {
		return o.Since.IsZero()
	}
	if !o.Since.IsZero() && start.Before(o.Since) {
		return false
	}
	if !o.Until.IsZero() && start.After(o.Until) {
		return false
	}
	return true
}
