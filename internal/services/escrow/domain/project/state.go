package project

import (
	"strings"
	"time"
)

// State is the project lifecycle state.
type State uint8

const (
	StateInProgress State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "IN_PROGRESS"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s accepts no further pledges or resolutions.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// ParseState parses the textual form produced by String.
func ParseState(value string) (State, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "IN_PROGRESS":
		return StateInProgress, true
	case "SUCCEEDED":
		return StateSucceeded, true
	case "FAILED":
		return StateFailed, true
	default:
		return StateInProgress, false
	}
}

// Result is the outcome of a milestone.
type Result uint8

const (
	ResultUnresolved Result = iota
	ResultSucceeded
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultUnresolved:
		return "UNRESOLVED"
	case ResultSucceeded:
		return "SUCCEEDED"
	case ResultFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// stateCell holds the project state. It only moves out of IN_PROGRESS once.
type stateCell struct {
	value State
}

func (c stateCell) get() State { return c.value }

func (c *stateCell) finish(to State) error {
	if c.value.Terminal() || !to.Terminal() {
		return ErrStateAlreadyTerminal
	}
	c.value = to
	return nil
}

// resultCell holds a milestone result. It only moves out of UNRESOLVED once.
type resultCell struct {
	value Result
}

func (c resultCell) get() Result { return c.value }

func (c *resultCell) resolve(to Result) error {
	if c.value != ResultUnresolved || to == ResultUnresolved {
		return ErrMilestoneAlreadyResolved
	}
	c.value = to
	return nil
}

// FailureRecord describes why and when the project failed.
type FailureRecord struct {
	Failed         bool
	At             time.Time
	MilestoneIndex int
	Reason         string
}

// Failure reasons.
const (
	ReasonRejected = "rejected"
	ReasonOverdue  = "overdue"
)
