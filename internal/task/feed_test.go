package task

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	doc := `{
		"publishedAt": "2024-03-01T12:00:00Z",
		"tasks": [
			{
				"id": "T1",
				"title": "Add login",
				"status": "OPEN",
				"phase": "IMPLEMENT",
				"nextAgent": "codex",
				"stats": {"durationMinutes": 95, "totalHandoffs": 4, "agentTurns": {"claude": 3, "codex": 2}},
				"planRound": {"claude": 2, "codex": 1},
				"planAgreed": {"claude": true, "codex": false},
				"chat": [{"from": "claude", "to": "codex", "message": "hi", "timestamp": "2024-03-01T10:00:00Z"}],
				"handoffs": [{"from": "claude", "to": "codex", "phase": "PLAN", "summary": "go", "timestamp": "2024-03-01T10:05:00Z"}]
			},
			{"id": "T2", "status": "CLOSED", "stats": {"totalHandoffs": 0}}
		]
	}`

	feed, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:00:00Z", feed.PublishedAt)
	require.Len(t, feed.Tasks, 2)

	t1 := feed.Tasks[0]
	assert.Equal(t, StatusOpen, t1.Status)
	assert.Equal(t, PhaseImplement, t1.Phase)
	assert.Equal(t, AgentCodex, t1.NextAgent)
	assert.Equal(t, 95, t1.DurationMinutes())
	assert.Equal(t, 5, t1.TotalTurns())
	assert.Equal(t, 2, t1.PlanRound[AgentClaude])
	assert.False(t, t1.PlanAgreed[AgentCodex])
	require.Len(t, t1.Chat, 1)
	assert.Equal(t, AgentCodex, t1.Chat[0].To)

	t2 := feed.Tasks[1]
	assert.Nil(t, t2.Stats.DurationMinutes)
	assert.Equal(t, 0, t2.DurationMinutes())
	assert.Equal(t, "T2", t2.DisplayTitle())
}

func TestDecode_MissingTasks(t *testing.T) {
	t.Parallel()

	feed, err := Decode(strings.NewReader(`{"publishedAt": "2024-03-01T12:00:00Z"}`))
	require.NoError(t, err)
	assert.NotNil(t, feed.Tasks)
	assert.Empty(t, feed.Tasks)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"malformed json", `{"tasks": [`},
		{"not an object", `[1, 2]`},
		{"null", `null`},
		{"trailing garbage", `{"tasks": []} trailing garbage`},
		{"second document", `{"tasks": []} {"tasks": []}`},
		{"missing id", `{"tasks": [{"status": "OPEN"}]}`},
		{"unknown status", `{"tasks": [{"id": "A", "status": "DONE"}]}`},
		{"unknown phase", `{"tasks": [{"id": "A", "status": "OPEN", "phase": "REVIEW"}]}`},
		{"unknown next agent", `{"tasks": [{"id": "A", "status": "OPEN", "nextAgent": "gemini"}]}`},
		{"all is not a next agent", `{"tasks": [{"id": "A", "status": "OPEN", "nextAgent": "all"}]}`},
		{"unknown chat sender", `{"tasks": [{"id": "A", "status": "OPEN", "chat": [{"from": "bot", "message": "x"}]}]}`},
		{"unknown handoff agent", `{"tasks": [{"id": "A", "status": "OPEN", "handoffs": [{"from": "claude", "to": "", "summary": "x"}]}]}`},
		{"unknown handoff phase", `{"tasks": [{"id": "A", "status": "OPEN", "handoffs": [{"from": "claude", "to": "codex", "phase": "X"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFeed), "error should wrap ErrInvalidFeed: %v", err)
		})
	}
}

func TestEffectivePhase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task Task
		want Phase
	}{
		{"open keeps phase", Task{Status: StatusOpen, Phase: PhaseImplement}, PhaseImplement},
		{"open without phase", Task{Status: StatusOpen}, ""},
		{"closed overrides phase", Task{Status: StatusClosed, Phase: PhaseImplement}, PhaseClosed},
		{"closed without phase", Task{Status: StatusClosed}, PhaseClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.EffectivePhase())
		})
	}
}

func TestFind_FirstMatch(t *testing.T) {
	t.Parallel()

	tasks := []Task{
		{ID: "A", Title: "first"},
		{ID: "B"},
		{ID: "A", Title: "second"},
	}

	got, ok := Find(tasks, "A")
	require.True(t, ok)
	assert.Equal(t, "first", got.Title)

	_, ok = Find(tasks, "missing")
	assert.False(t, ok)
}

func TestPhaseIndex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, PhasePlan.Index())
	assert.Equal(t, 3, PhaseHumanFinal.Index())
	assert.Equal(t, -1, PhaseClosed.Index())
	assert.Equal(t, -1, Phase("").Index())
}

func TestChatMessageSender(t *testing.T) {
	t.Parallel()

	assert.Equal(t, AgentSystem, ChatMessage{}.Sender())
	assert.Equal(t, AgentClaude, ChatMessage{From: AgentClaude}.Sender())
}
