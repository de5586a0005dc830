// Package task defines the task feed document: tasks, their chat transcripts
// and handoff logs, and the closed value sets for status, phase and agent.
package task

// Task is a unit of multi-agent work tracked through phases to closure.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Status    Status `json:"status"`
	Phase     Phase  `json:"phase,omitempty"`
	NextAgent Agent  `json:"nextAgent,omitempty"`
	Requester string `json:"requester,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	ClosedAt  string `json:"closedAt,omitempty"`
	Stats     Stats  `json:"stats"`

	// PlanRound and PlanAgreed are only present when a planning
	// negotiation took place.
	PlanRound  map[Agent]int  `json:"planRound,omitempty"`
	PlanAgreed map[Agent]bool `json:"planAgreed,omitempty"`

	Chat     []ChatMessage `json:"chat,omitempty"`
	Handoffs []Handoff     `json:"handoffs,omitempty"`

	TaskMd           string `json:"taskMd,omitempty"`
	PlanDiscussionMd string `json:"planDiscussionMd,omitempty"`
	ClaudeReviewMd   string `json:"claudeReviewMd,omitempty"`
	CodexImplMd      string `json:"codexImplMd,omitempty"`
	DecisionMd       string `json:"decisionMd,omitempty"`
}

// Stats holds metrics derived upstream from the task's history.
type Stats struct {
	DurationMinutes *int          `json:"durationMinutes,omitempty"`
	TotalHandoffs   int           `json:"totalHandoffs"`
	AgentTurns      map[Agent]int `json:"agentTurns,omitempty"`
}

// ChatMessage is one entry of a task's chat transcript.
type ChatMessage struct {
	From      Agent  `json:"from"`
	To        Agent  `json:"to,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Sender returns the message author, treating a missing sender as system.
func (m ChatMessage) Sender() Agent {
	if m.From == "" {
		return AgentSystem
	}
	return m.From
}

// Handoff records a transfer of responsibility between agents.
type Handoff struct {
	From      Agent  `json:"from"`
	To        Agent  `json:"to"`
	Phase     Phase  `json:"phase,omitempty"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

// DisplayTitle returns the title, falling back to the id.
func (t Task) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.ID
}

// EffectivePhase is the phase used for filtering, sorting and display.
// Closed tasks always report PhaseClosed regardless of their stored phase.
func (t Task) EffectivePhase() Phase {
	if t.Status == StatusClosed {
		return PhaseClosed
	}
	return t.Phase
}

// DurationMinutes returns the recorded duration, or 0 when absent.
func (t Task) DurationMinutes() int {
	if t.Stats.DurationMinutes == nil {
		return 0
	}
	return *t.Stats.DurationMinutes
}

// TotalTurns sums the turns taken by the acting agents.
func (t Task) TotalTurns() int {
	total := 0
	for _, a := range Actors {
		total += t.Stats.AgentTurns[a]
	}
	return total
}

// Find returns the first task with the given id.
func Find(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
