// Package query derives filtered and ordered views of a task collection.
// Every function here is pure: inputs are never modified and each call
// returns a fresh slice.
package query

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/thruflo/taskdeck/internal/task"
)

// All is the filter value that matches every task.
const All = "all"

var (
	// ErrInvalidFilter is returned for an unknown filter key or value.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidSortKey is returned for an unknown sort key.
	ErrInvalidSortKey = errors.New("invalid sort key")
	// ErrInvalidSortDir is returned for a direction other than asc or desc.
	ErrInvalidSortDir = errors.New("invalid sort direction")
)

// FilterKey names one of the filter controls.
type FilterKey string

// Filter keys.
const (
	FilterStatus FilterKey = "status"
	FilterPhase  FilterKey = "phase"
	FilterAgent  FilterKey = "agent"
	FilterSearch FilterKey = "search"
)

// Filters are the active filter criteria. Status, Phase and Agent hold All
// or one value of the matching task enum; Search is free text.
type Filters struct {
	Status string
	Phase  string
	Agent  string
	Search string
}

// DefaultFilters matches every task.
func DefaultFilters() Filters {
	return Filters{Status: All, Phase: All, Agent: All}
}

// With returns a copy of f with key set to value, after validating value
// against the key's value set.
func (f Filters) With(key FilterKey, value string) (Filters, error) {
	switch key {
	case FilterStatus:
		if value != All && !task.Status(value).Valid() {
			return f, fmt.Errorf("%w: status %q", ErrInvalidFilter, value)
		}
		f.Status = value
	case FilterPhase:
		if value != All && !task.Phase(value).Valid() {
			return f, fmt.Errorf("%w: phase %q", ErrInvalidFilter, value)
		}
		f.Phase = value
	case FilterAgent:
		if value != All && !slices.Contains(task.NextAgents, task.Agent(value)) {
			return f, fmt.Errorf("%w: agent %q", ErrInvalidFilter, value)
		}
		f.Agent = value
	case FilterSearch:
		f.Search = value
	default:
		return f, fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, key)
	}
	return f, nil
}

// Matches reports whether t satisfies every active criterion.
func (f Filters) Matches(t task.Task) bool {
	if f.Status != "" && f.Status != All && string(t.Status) != f.Status {
		return false
	}
	if f.Phase != "" && f.Phase != All && string(t.EffectivePhase()) != f.Phase {
		return false
	}
	if f.Agent != "" && f.Agent != All && string(t.NextAgent) != f.Agent {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.ID), q) {
			return false
		}
	}
	return true
}

// Filter returns the tasks matching f, in input order.
func Filter(tasks []task.Task, f Filters) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortKey names a sortable column.
type SortKey string

// Sort keys.
const (
	SortTitle     SortKey = "title"
	SortStatus    SortKey = "status"
	SortPhase     SortKey = "phase"
	SortNextAgent SortKey = "nextAgent"
	SortCreated   SortKey = "created"
	SortDuration  SortKey = "duration"
	SortHandoffs  SortKey = "handoffs"
)

// SortKeys lists every key in column order.
var SortKeys = []SortKey{SortStatus, SortTitle, SortPhase, SortNextAgent, SortCreated, SortDuration, SortHandoffs}

// ParseSortKey validates a sort key.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)
	if slices.Contains(SortKeys, k) {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
}

// SortDir is the sort direction.
type SortDir string

// Sort directions.
const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// ParseSortDir validates a sort direction.
func ParseSortDir(s string) (SortDir, error) {
	switch d := SortDir(s); d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortDir, s)
}

// ToggleSort returns the sort state after a click on key: the active key
// flips direction, any other key becomes active ascending.
func ToggleSort(curKey SortKey, curDir SortDir, key SortKey) (SortKey, SortDir) {
	if key != curKey {
		return key, Asc
	}
	if curDir == Asc {
		return curKey, Desc
	}
	return curKey, Asc
}

// Sort returns tasks ordered by key. The sort is stable in both directions.
func Sort(tasks []task.Task, key SortKey, dir SortDir) []task.Task {
	out := slices.Clone(tasks)
	if out == nil {
		out = []task.Task{}
	}
	compare := comparator(key)
	sign := 1
	if dir == Desc {
		sign = -1
	}
	slices.SortStableFunc(out, func(a, b task.Task) int {
		return sign * compare(a, b)
	})
	return out
}

func comparator(key SortKey) func(a, b task.Task) int {
	switch key {
	case SortTitle:
		return func(a, b task.Task) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortStatus:
		return func(a, b task.Task) int {
			return strings.Compare(string(a.Status), string(b.Status))
		}
	case SortPhase:
		return func(a, b task.Task) int {
			return strings.Compare(string(a.EffectivePhase()), string(b.EffectivePhase()))
		}
	case SortNextAgent:
		return func(a, b task.Task) int {
			return strings.Compare(string(a.NextAgent), string(b.NextAgent))
		}
	case SortCreated:
		return func(a, b task.Task) int {
			return strings.Compare(a.CreatedAt, b.CreatedAt)
		}
	case SortDuration:
		return func(a, b task.Task) int {
			return cmp.Compare(a.DurationMinutes(), b.DurationMinutes())
		}
	case SortHandoffs:
		return func(a, b task.Task) int {
			return cmp.Compare(a.Stats.TotalHandoffs, b.Stats.TotalHandoffs)
		}
	}
	return func(a, b task.Task) int { return 0 }
}

// Apply filters then sorts.
func Apply(tasks []task.Task, f Filters, key SortKey, dir SortDir) []task.Task {
	return Sort(Filter(tasks, f), key, dir)
}
