package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thruflo/taskdeck/internal/task"
)

// SamplePublishedAt is the publishedAt value of SampleFeed.
const SamplePublishedAt = "2024-03-04T12:00:00Z"

// SampleReviewMd is a review containing every severity tag.
const SampleReviewMd = `## Review

- [BLOCKER] cache key ignores tenant
- [MEDIUM] missing metrics
- [LOW] typo in comment
`

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

// SampleTasks returns a mixed collection of tasks:
//
//	T-101 OPEN   PLAN          claude  45m  2 handoffs
//	T-102 OPEN   IMPLEMENT     codex   -    5 handoffs
//	T-103 CLOSED (IMPLEMENT)   none    130m 3 handoffs
//	T-104 OPEN   HUMAN_APPROVE human   10m  0 handoffs, no title, no createdAt
//	T-105 OPEN   PLAN          claude  30m  1 handoff
//
// Returns a new slice each time to prevent test interference.
func SampleTasks() []task.Task {
	return []task.Task{
		{
			ID:        "T-101",
			Title:     "Add login flow",
			Status:    task.StatusOpen,
			Phase:     task.PhasePlan,
			NextAgent: task.AgentClaude,
			Requester: "malcolm",
			CreatedAt: "2024-03-01T09:00:00Z",
			Stats: task.Stats{
				DurationMinutes: IntPtr(45),
				TotalHandoffs:   2,
				AgentTurns:      map[task.Agent]int{task.AgentClaude: 2, task.AgentCodex: 1},
			},
			Chat: []task.ChatMessage{
				{From: task.AgentSystem, Message: "Task opened", Timestamp: "2024-03-01T09:00:00Z"},
				{From: task.AgentClaude, To: task.AgentCodex, Message: "Drafting the plan now", Timestamp: "2024-03-01T09:05:00Z"},
				{From: task.AgentCodex, To: task.AgentAll, Message: "Looks good <b>so far</b>", Timestamp: "2024-03-01T09:10:00Z"},
			},
			Handoffs: []task.Handoff{
				{From: task.AgentClaude, To: task.AgentCodex, Phase: task.PhasePlan, Summary: "Plan drafted", Timestamp: "2024-03-01T09:06:00Z"},
				{From: task.AgentCodex, To: task.AgentClaude, Summary: "Questions on scope", Timestamp: "2024-03-01T09:20:00Z"},
			},
			TaskMd: "# Login\n\nUsers need to sign in.",
		},
		{
			ID:        "T-102",
			Title:     "Refactor cache layer",
			Status:    task.StatusOpen,
			Phase:     task.PhaseImplement,
			NextAgent: task.AgentCodex,
			CreatedAt: "2024-03-03T10:00:00Z",
			Stats:     task.Stats{TotalHandoffs: 5},
			PlanRound: map[task.Agent]int{task.AgentClaude: 2, task.AgentCodex: 2},
			PlanAgreed: map[task.Agent]bool{
				task.AgentClaude: true,
				task.AgentCodex:  false,
			},
			ClaudeReviewMd: SampleReviewMd,
			CodexImplMd:    "```go\nfunc main() {}\n```",
		},
		{
			ID:        "T-103",
			Title:     "Fix flaky test",
			Status:    task.StatusClosed,
			Phase:     task.PhaseImplement,
			NextAgent: task.AgentNone,
			CreatedAt: "2024-02-20T08:00:00Z",
			ClosedAt:  "2024-02-20T10:10:00Z",
			Stats: task.Stats{
				DurationMinutes: IntPtr(130),
				TotalHandoffs:   3,
				AgentTurns:      map[task.Agent]int{task.AgentClaude: 1, task.AgentCodex: 1, task.AgentHuman: 2},
			},
			DecisionMd: "Merged.",
		},
		{
			ID:        "T-104",
			Status:    task.StatusOpen,
			Phase:     task.PhaseHumanApprove,
			NextAgent: task.AgentHuman,
			Stats:     task.Stats{DurationMinutes: IntPtr(10)},
		},
		{
			ID:        "T-105",
			Title:     "add Metrics endpoint",
			Status:    task.StatusOpen,
			Phase:     task.PhasePlan,
			NextAgent: task.AgentClaude,
			CreatedAt: "2024-03-02T11:30:00Z",
			Stats:     task.Stats{DurationMinutes: IntPtr(30), TotalHandoffs: 1},
		},
	}
}

// SampleFeed wraps SampleTasks in a feed document.
func SampleFeed() *task.Feed {
	return &task.Feed{PublishedAt: SamplePublishedAt, Tasks: SampleTasks()}
}

// SampleFeedJSON returns SampleFeed encoded as JSON.
func SampleFeedJSON(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(SampleFeed())
	require.NoError(t, err)
	return data
}
