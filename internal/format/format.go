// Package format turns task data into display strings.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/thruflo/taskdeck/internal/task"
)

// Placeholder is shown in place of an absent value.
const Placeholder = "—"

// Duration formats minutes as "45m" or "2h 10m". Absent and zero durations
// yield Placeholder.
func Duration(minutes *int) string {
	if minutes == nil || *minutes <= 0 {
		return Placeholder
	}
	m := *minutes
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}

// accepted timestamp layouts, most specific first.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses the timestamp forms found in task feeds.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Formatter renders timestamps in a fixed location.
type Formatter struct {
	loc *time.Location
}

// NewFormatter returns a Formatter for loc. A nil loc means UTC.
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc}
}

// Location returns the formatter's time zone.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// Timestamp formats ts as "Mar 1, 09:05". Empty input yields "" and
// unparseable input is returned unchanged.
func (f *Formatter) Timestamp(ts string) string {
	if ts == "" {
		return ""
	}
	t, ok := ParseTime(ts)
	if !ok {
		return ts
	}
	return t.In(f.loc).Format("Jan 2, 15:04")
}

// DateTime formats ts as "Mar 1, 2024 09:05", or Placeholder when absent.
func (f *Formatter) DateTime(ts string) string {
	if ts == "" {
		return Placeholder
	}
	t, ok := ParseTime(ts)
	if !ok {
		return ts
	}
	return t.In(f.loc).Format("Jan 2, 2006 15:04")
}

// ShortDate formats ts as "Mar 1", or Placeholder when absent.
func (f *Formatter) ShortDate(ts string) string {
	if ts == "" {
		return Placeholder
	}
	t, ok := ParseTime(ts)
	if !ok {
		return ts
	}
	return t.In(f.loc).Format("Jan 2")
}

// TimeAgo describes how long before now ts was: "just now", "5m ago",
// "3h ago" or "2d ago".
func TimeAgo(ts string, now time.Time) string {
	t, ok := ParseTime(ts)
	if !ok {
		return ""
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
}

var phaseLabels = map[task.Phase]string{
	task.PhasePlan:         "Plan",
	task.PhaseHumanApprove: "Approve",
	task.PhaseImplement:    "Implement",
	task.PhaseHumanFinal:   "Final Review",
	task.PhaseClosed:       "Closed",
}

// PhaseLabel is the short step label of a phase ("Final Review").
func PhaseLabel(p task.Phase) string {
	if l, ok := phaseLabels[p]; ok {
		return l
	}
	return string(p)
}

// PhaseName is the phase identifier with underscores shown as spaces
// ("HUMAN FINAL"), or Placeholder when absent.
func PhaseName(p task.Phase) string {
	if p == "" {
		return Placeholder
	}
	return strings.ReplaceAll(string(p), "_", " ")
}

// AgentNames maps agents to display names.
type AgentNames struct {
	// Human is shown for the human agent.
	Human string
}

// DefaultHumanName is used when no human display name is configured.
const DefaultHumanName = "Human"

// Name returns the display name of a.
func (n AgentNames) Name(a task.Agent) string {
	switch a {
	case task.AgentClaude:
		return "Claude"
	case task.AgentCodex:
		return "Codex"
	case task.AgentHuman:
		if n.Human != "" {
			return n.Human
		}
		return DefaultHumanName
	case task.AgentSystem:
		return "System"
	case task.AgentAll:
		return "All"
	case task.AgentNone:
		return "None"
	}
	return string(a)
}

// Percent returns part as a percentage of total, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}
