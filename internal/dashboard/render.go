package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/thruflo/taskdeck/internal/format"
	"github.com/thruflo/taskdeck/internal/logging"
	"github.com/thruflo/taskdeck/internal/query"
	"github.com/thruflo/taskdeck/internal/task"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Markdown converts markdown source to trusted HTML.
type Markdown interface {
	Render(src string) (template.HTML, error)
}

// Options configure a Renderer.
type Options struct {
	// Location is the time zone timestamps are shown in. Default UTC.
	Location *time.Location
	// PrimaryAgent's chat messages are aligned right. Default codex.
	PrimaryAgent task.Agent
	// HumanName is the display name of the human agent.
	HumanName string
	// Now is the clock used for relative times. Default time.Now.
	Now func() time.Time
	// Logger receives per-field markdown failures.
	Logger *logging.Logger
}

// Renderer derives HTML views from a Store. Task-supplied text only ever
// reaches the output through html/template escaping; markdown output is
// the one trusted input.
type Renderer struct {
	tmpl    *template.Template
	md      Markdown
	times   *format.Formatter
	names   format.AgentNames
	primary task.Agent
	now     func() time.Time
	logger  *logging.Logger
}

// NewRenderer creates a Renderer that converts markdown fields with md.
func NewRenderer(md Markdown, opts Options) (*Renderer, error) {
	r := &Renderer{
		md:      md,
		times:   format.NewFormatter(opts.Location),
		names:   format.AgentNames{Human: opts.HumanName},
		primary: opts.PrimaryAgent,
		now:     opts.Now,
		logger:  opts.Logger,
	}
	if r.primary == "" {
		r.primary = task.AgentCodex
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}

	tmpl, err := template.New("dashboard").Funcs(template.FuncMap{
		"agentName": r.names.Name,
		"phaseName": format.PhaseName,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Render is the sole mapping from state to view: loading wins over error,
// error over content.
func (r *Renderer) Render(s *Store) (template.HTML, error) {
	switch {
	case s.Loading:
		return r.execute("loading", nil)
	case s.Error != "":
		return r.execute("error", s.Error)
	case s.Page == PageDetail:
		return r.RenderDetail(s)
	default:
		return r.RenderOverview(s)
	}
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// Overview

type option struct {
	Value    string
	Label    string
	Selected bool
}

type filterControls struct {
	Status []option
	Phase  []option
	Agent  []option
	Search string
}

type sortHeader struct {
	Key   query.SortKey
	Label string
	Arrow string
}

type flowStage struct {
	Phase task.Phase
	Count int
}

type taskRow struct {
	ID        string
	Title     string
	Href      string
	Status    task.Status
	Phase     task.Phase
	NextAgent task.Agent
	Created   string
	Duration  string
	Handoffs  int
}

type overviewView struct {
	PublishedAt  string
	PublishedAgo string
	Total        int
	Open         int
	Closed       int
	Handoffs     int
	Flow         []flowStage
	Filters      filterControls
	Headers      []sortHeader
	Rows         []taskRow
}

var sortLabels = map[query.SortKey]string{
	query.SortStatus:    "Status",
	query.SortTitle:     "Title",
	query.SortPhase:     "Phase",
	query.SortNextAgent: "Next Agent",
	query.SortCreated:   "Created",
	query.SortDuration:  "Duration",
	query.SortHandoffs:  "Handoffs",
}

// RenderOverview renders summary statistics over the whole collection and
// the filtered, sorted task table.
func (r *Renderer) RenderOverview(s *Store) (template.HTML, error) {
	v := overviewView{
		PublishedAt: r.times.DateTime(s.PublishedAt),
		Total:       len(s.Tasks),
		Filters:     r.filterControls(s.Filters),
	}
	if s.PublishedAt != "" {
		v.PublishedAgo = format.TimeAgo(s.PublishedAt, r.now())
	}

	openByPhase := make(map[task.Phase]int)
	for _, t := range s.Tasks {
		switch t.Status {
		case task.StatusOpen:
			v.Open++
			openByPhase[t.Phase]++
		case task.StatusClosed:
			v.Closed++
		}
		v.Handoffs += t.Stats.TotalHandoffs
	}
	for _, p := range task.Workflow {
		v.Flow = append(v.Flow, flowStage{Phase: p, Count: openByPhase[p]})
	}
	v.Flow = append(v.Flow, flowStage{Phase: task.PhaseClosed, Count: v.Closed})

	for _, k := range query.SortKeys {
		h := sortHeader{Key: k, Label: sortLabels[k], Arrow: "↕"}
		if k == s.SortKey {
			h.Arrow = "▼"
			if s.SortDir == query.Asc {
				h.Arrow = "▲"
			}
		}
		v.Headers = append(v.Headers, h)
	}

	for _, t := range query.Apply(s.Tasks, s.Filters, s.SortKey, s.SortDir) {
		v.Rows = append(v.Rows, taskRow{
			ID:        t.ID,
			Title:     t.DisplayTitle(),
			Href:      TaskFragment(t.ID),
			Status:    t.Status,
			Phase:     t.EffectivePhase(),
			NextAgent: t.NextAgent,
			Created:   r.times.ShortDate(t.CreatedAt),
			Duration:  format.Duration(t.Stats.DurationMinutes),
			Handoffs:  t.Stats.TotalHandoffs,
		})
	}

	return r.execute("overview", v)
}

func (r *Renderer) filterControls(f query.Filters) filterControls {
	opts := func(current, allLabel string, values []string, label func(string) string) []option {
		out := []option{{Value: query.All, Label: allLabel, Selected: current == query.All || current == ""}}
		for _, val := range values {
			out = append(out, option{Value: val, Label: label(val), Selected: current == val})
		}
		return out
	}

	statuses := make([]string, 0, len(task.Statuses))
	for _, st := range task.Statuses {
		statuses = append(statuses, string(st))
	}
	phases := make([]string, 0, len(task.Flow))
	for _, p := range task.Flow {
		phases = append(phases, string(p))
	}
	agents := make([]string, 0, len(task.NextAgents))
	for _, a := range task.NextAgents {
		agents = append(agents, string(a))
	}

	return filterControls{
		Status: opts(f.Status, "All Status", statuses, func(v string) string {
			return strings.ToUpper(v[:1]) + strings.ToLower(v[1:])
		}),
		Phase: opts(f.Phase, "All Phases", phases, func(v string) string {
			return format.PhaseLabel(task.Phase(v))
		}),
		Agent: opts(f.Agent, "All Agents", agents, func(v string) string {
			return r.names.Name(task.Agent(v))
		}),
		Search: f.Search,
	}
}

// Detail

type turnSegment struct {
	Agent task.Agent
	Count int
	Width string
}

type planSummary struct {
	Claude       int
	Codex        int
	HasAgreement bool
	ClaudeAgreed string
	CodexAgreed  string
}

type tabButton struct {
	ID     Tab
	Label  string
	Active bool
}

type detailView struct {
	Found     bool
	ID        string
	Title     string
	Status    task.Status
	Requester string
	Created   string
	Closed    string
	Duration  string
	Stepper   stepperView
	Turns     []turnSegment
	Plan      *planSummary
	Tabs      []tabButton
	Content   template.HTML
}

// RenderDetail renders the task selected by the Store, or a not-found
// state when the id does not resolve.
func (r *Renderer) RenderDetail(s *Store) (template.HTML, error) {
	t, ok := s.CurrentTask()
	if !ok {
		return r.execute("detail", detailView{ID: s.TaskID})
	}

	v := detailView{
		Found:     true,
		ID:        t.ID,
		Title:     t.DisplayTitle(),
		Status:    t.Status,
		Requester: t.Requester,
		Created:   r.times.DateTime(t.CreatedAt),
		Duration:  format.Duration(t.Stats.DurationMinutes),
		Stepper:   stepper(t.Phase, t.Status),
	}
	if v.Requester == "" {
		v.Requester = format.Placeholder
	}
	if t.ClosedAt != "" {
		v.Closed = r.times.DateTime(t.ClosedAt)
	}

	if total := t.TotalTurns(); total > 0 {
		for _, a := range task.Actors {
			n := t.Stats.AgentTurns[a]
			v.Turns = append(v.Turns, turnSegment{
				Agent: a,
				Count: n,
				Width: fmt.Sprintf("%.2f", format.Percent(n, total)),
			})
		}
	}

	if t.PlanRound != nil {
		p := &planSummary{
			Claude: t.PlanRound[task.AgentClaude],
			Codex:  t.PlanRound[task.AgentCodex],
		}
		if t.PlanAgreed != nil {
			p.HasAgreement = true
			p.ClaudeAgreed = yesNo(t.PlanAgreed[task.AgentClaude])
			p.CodexAgreed = yesNo(t.PlanAgreed[task.AgentCodex])
		}
		v.Plan = p
	}

	tab := s.Tab
	if tab == "" {
		tab = TabChat
	}
	for _, id := range Tabs {
		v.Tabs = append(v.Tabs, tabButton{ID: id, Label: id.Label(), Active: id == tab})
	}

	content, err := r.tabContent(t, tab)
	if err != nil {
		return "", err
	}
	v.Content = content

	return r.execute("detail", v)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func (r *Renderer) tabContent(t task.Task, tab Tab) (template.HTML, error) {
	switch tab {
	case TabChat:
		return r.RenderChatFeed(t.Chat)
	case TabTask:
		return r.renderMarkdown(t.TaskMd, "No content yet.")
	case TabPlan:
		return r.renderMarkdown(t.PlanDiscussionMd, "No content yet.")
	case TabReview:
		return r.renderReview(t.ClaudeReviewMd)
	case TabImpl:
		return r.renderMarkdown(t.CodexImplMd, "No content yet.")
	case TabDecision:
		return r.renderMarkdown(t.DecisionMd, "No content yet.")
	case TabHandoffs:
		return r.RenderHandoffTimeline(t.Handoffs)
	}
	return "", nil
}

// renderMarkdown converts one markdown field. A conversion failure only
// affects this field, which then shows its raw text preformatted.
func (r *Renderer) renderMarkdown(src, empty string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return r.execute("empty", empty)
	}
	html, err := r.md.Render(src)
	if err != nil {
		r.logger.Warn("markdown conversion failed", "error", err)
		return r.execute("markdown-fallback", src)
	}
	return r.execute("markdown", html)
}

var severityBadges = strings.NewReplacer(
	"[BLOCKER]", `<span class="severity severity-BLOCKER">BLOCKER</span>`,
	"[MEDIUM]", `<span class="severity severity-MEDIUM">MEDIUM</span>`,
	"[LOW]", `<span class="severity severity-LOW">LOW</span>`,
)

func (r *Renderer) renderReview(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return r.execute("empty", "No review yet.")
	}
	html, err := r.renderMarkdown(src, "")
	if err != nil {
		return "", err
	}
	return template.HTML(severityBadges.Replace(string(html))), nil
}

// Chat feed

type chatBubble struct {
	Sender    task.Agent
	Align     string
	System    bool
	Recipient task.Agent
	Time      string
	Text      string
}

// RenderChatFeed renders a chat transcript in order. Messages from the
// primary agent are aligned right, system messages centred and the rest
// left.
func (r *Renderer) RenderChatFeed(msgs []task.ChatMessage) (template.HTML, error) {
	bubbles := make([]chatBubble, 0, len(msgs))
	for _, m := range msgs {
		sender := m.Sender()
		b := chatBubble{
			Sender: sender,
			Align:  "left",
			System: sender == task.AgentSystem,
			Time:   r.times.Timestamp(m.Timestamp),
			Text:   m.Message,
		}
		switch {
		case b.System:
			b.Align = "center"
		case sender == r.primary:
			b.Align = "right"
		}
		if m.To != "" && m.To != task.AgentAll {
			b.Recipient = m.To
		}
		bubbles = append(bubbles, b)
	}
	return r.execute("chat", bubbles)
}

// Handoff timeline

type handoffRow struct {
	Seq     int
	Time    string
	From    task.Agent
	To      task.Agent
	Phase   task.Phase
	Summary string
}

// RenderHandoffTimeline renders handoffs as a numbered table in order.
func (r *Renderer) RenderHandoffTimeline(handoffs []task.Handoff) (template.HTML, error) {
	rows := make([]handoffRow, 0, len(handoffs))
	for i, h := range handoffs {
		rows = append(rows, handoffRow{
			Seq:     i + 1,
			Time:    r.times.Timestamp(h.Timestamp),
			From:    h.From,
			To:      h.To,
			Phase:   h.Phase,
			Summary: h.Summary,
		})
	}
	return r.execute("timeline", rows)
}

// Phase stepper

// StepState is the visual state of one stepper step.
type StepState string

// Step states.
const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepFuture    StepState = "future"
)

type step struct {
	Number int
	Label  string
	State  StepState
}

type stepperView struct {
	Steps  []step
	Closed bool
}

func stepper(phase task.Phase, status task.Status) stepperView {
	if phase == "" {
		phase = task.PhasePlan
	}
	current := phase.Index()
	closed := status == task.StatusClosed

	v := stepperView{Closed: closed}
	for i, p := range task.Workflow {
		st := StepFuture
		switch {
		case closed, i < current:
			st = StepCompleted
		case i == current:
			st = StepCurrent
		}
		v.Steps = append(v.Steps, step{Number: i + 1, Label: format.PhaseLabel(p), State: st})
	}
	return v
}

// StepStates returns the state of each Workflow step for a task.
func StepStates(phase task.Phase, status task.Status) []StepState {
	v := stepper(phase, status)
	out := make([]StepState, len(v.Steps))
	for i, s := range v.Steps {
		out[i] = s.State
	}
	return out
}

// RenderPhaseStepper renders workflow progress for a task, with a
// terminal Closed step for closed tasks.
func (r *Renderer) RenderPhaseStepper(phase task.Phase, status task.Status) (template.HTML, error) {
	return r.execute("stepper", stepper(phase, status))
}
