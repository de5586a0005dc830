// Package dashboard holds the per-session dashboard state and renders it.
//
// A Dashboard owns one Store. Every change goes through one of its mutation
// points (Navigate, SetFilter, SetSort, SetTab, Load), each of which mutates
// the Store and then runs the render loop: the Store is rendered to HTML,
// committed to the display region, enhanced with syntax highlighting and
// published to subscribers. Nothing observes the Store directly.
package dashboard

import (
	"errors"
	"fmt"

	"github.com/thruflo/taskdeck/internal/query"
	"github.com/thruflo/taskdeck/internal/task"
)

// Page is the page selected by the router.
type Page string

// Pages.
const (
	PageOverview Page = "overview"
	PageDetail   Page = "detail"
)

// Tab is a section of the detail page.
type Tab string

// Tabs, in display order.
const (
	TabChat     Tab = "chat"
	TabTask     Tab = "task"
	TabPlan     Tab = "plan"
	TabReview   Tab = "review"
	TabImpl     Tab = "impl"
	TabDecision Tab = "decision"
	TabHandoffs Tab = "handoffs"
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TabChat, TabTask, TabPlan, TabReview, TabImpl, TabDecision, TabHandoffs}

var tabLabels = map[Tab]string{
	TabChat:     "Chat",
	TabTask:     "Task",
	TabPlan:     "Plan",
	TabReview:   "Review",
	TabImpl:     "Implementation",
	TabDecision: "Decision",
	TabHandoffs: "Handoff Log",
}

// Label returns the tab's button label.
func (t Tab) Label() string {
	return tabLabels[t]
}

// ErrInvalidTab is returned for an unknown tab name.
var ErrInvalidTab = errors.New("invalid tab")

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	t := Tab(s)
	if _, ok := tabLabels[t]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTab, s)
}

// Store is the complete state of one dashboard session.
type Store struct {
	Loading     bool
	Error       string
	PublishedAt string
	Tasks       []task.Task

	Page     Page
	TaskID   string
	Tab      Tab
	Fragment string

	Filters query.Filters
	SortKey query.SortKey
	SortDir query.SortDir
}

// NewStore returns a Store in its initial state: loading, on the
// overview, newest tasks first.
func NewStore() *Store {
	return &Store{
		Loading: true,
		Tasks:   []task.Task{},
		Page:    PageOverview,
		Tab:     TabChat,
		Filters: query.DefaultFilters(),
		SortKey: query.SortCreated,
		SortDir: query.Desc,
	}
}

// CurrentTask resolves TaskID against the task collection.
func (s *Store) CurrentTask() (task.Task, bool) {
	if s.TaskID == "" {
		return task.Task{}, false
	}
	return task.Find(s.Tasks, s.TaskID)
}
