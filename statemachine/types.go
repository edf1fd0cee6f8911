package statemachine

import (
	"context"
	"time"
)

// Cause identifies what drove a transition attempt.
type Cause string

const (
	CauseTrigger   Cause = "trigger"
	CauseCondition Cause = "condition"
	CauseAge       Cause = "age"
	CauseReset     Cause = "reset"
	CauseUpdate    Cause = "update"
)

// Event is the payload delivered to state and machine listeners.
// For OnUpdate notifications without a transition, From and To are both
// the current state.
type Event[S comparable, T comparable, B any] struct {
	From       S
	To         S
	Trigger    T
	HasTrigger bool
	Blackboard B
	IsReset    bool
	Cause      Cause
	At         time.Time
}

// Handler receives state machine events.
type Handler[S comparable, T comparable, B any] func(ctx context.Context, ev Event[S, T, B])

// Step reports the state values around a transition attempt.
type Step[S comparable] struct {
	From      S
	To        S
	Committed bool
}

// Clock supplies timestamps for entry times and age transitions.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}
