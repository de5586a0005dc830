package task

// Status is the lifecycle state of a task.
type Status string

// Status values.
const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusOpen, StatusClosed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed:
		return true
	}
	return false
}

// Phase is the workflow stage of an open task.
type Phase string

// Phase values. PhaseClosed is synthetic: it never appears as a stored phase
// with a meaning of its own and is produced by Task.EffectivePhase.
const (
	PhasePlan         Phase = "PLAN"
	PhaseHumanApprove Phase = "HUMAN_APPROVE"
	PhaseImplement    Phase = "IMPLEMENT"
	PhaseHumanFinal   Phase = "HUMAN_FINAL"
	PhaseClosed       Phase = "CLOSED"
)

// Workflow is the ordered list of phases an open task moves through.
var Workflow = []Phase{PhasePlan, PhaseHumanApprove, PhaseImplement, PhaseHumanFinal}

// Flow is Workflow followed by the terminal closed stage.
var Flow = []Phase{PhasePlan, PhaseHumanApprove, PhaseImplement, PhaseHumanFinal, PhaseClosed}

// Valid reports whether p is a known phase, including the closed stage.
func (p Phase) Valid() bool {
	switch p {
	case PhasePlan, PhaseHumanApprove, PhaseImplement, PhaseHumanFinal, PhaseClosed:
		return true
	}
	return false
}

// Index returns the position of p in Workflow, or -1.
func (p Phase) Index() int {
	for i, w := range Workflow {
		if w == p {
			return i
		}
	}
	return -1
}

// Agent identifies an actor in the workflow or one of the synthetic
// system/none/all markers.
type Agent string

// Agent values.
const (
	AgentClaude Agent = "claude"
	AgentCodex  Agent = "codex"
	AgentHuman  Agent = "human"
	AgentNone   Agent = "none"
	AgentSystem Agent = "system"
	AgentAll    Agent = "all"
)

// Actors are the agents that take turns on a task.
var Actors = []Agent{AgentClaude, AgentCodex, AgentHuman}

// NextAgents are the values allowed for Task.NextAgent.
var NextAgents = []Agent{AgentClaude, AgentCodex, AgentHuman, AgentNone}

// Valid reports whether a is a known agent or marker.
func (a Agent) Valid() bool {
	switch a {
	case AgentClaude, AgentCodex, AgentHuman, AgentNone, AgentSystem, AgentAll:
		return true
	}
	return false
}

// IsActor reports whether a is one of Actors.
func (a Agent) IsActor() bool {
	switch a {
	case AgentClaude, AgentCodex, AgentHuman:
		return true
	}
	return false
}
