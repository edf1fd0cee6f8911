package testing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amp-labs/fsm/statemachine"
)

// Action selects what a Step does.
type Action int

const (
	// ActionFire runs Step.Trigger.
	ActionFire Action = iota
	// ActionFeed runs Update with Step.Blackboard.
	ActionFeed
	// ActionWait advances the clock by Step.Wait and checks age transitions.
	ActionWait
	// ActionReset returns to the starting state.
	ActionReset
)

// Step is one stimulus in a scenario together with its expected outcome.
type Step[S, T comparable, B any] struct {
	Action     Action
	Trigger    T
	Blackboard B
	Wait       time.Duration

	Want      S    // current state after the step
	Committed bool // whether the step should commit a transition
}

// Scenario describes a machine, a sequence of steps and the matchers that
// must hold at the end.
type Scenario[S, T comparable, B any] struct {
	Name    string
	Start   S
	Options []statemachine.Option
	Build   func(t *testing.T, tm *TestMachine[S, T, B])
	Steps   []Step[S, T, B]
	Expect  []Matcher[S]
}

// RunScenario executes a scenario as a subtest.
func RunScenario[S, T comparable, B any](t *testing.T, scenario Scenario[S, T, B]) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		tm := NewTestMachine[S, T, B](t, scenario.Start, scenario.Options...)

		if scenario.Build != nil {
			scenario.Build(t, tm)
		}

		for i, step := range scenario.Steps {
			committed := tm.apply(step)

			assert.Equal(t, step.Committed, committed, "step %d committed", i+1)
			assert.Equal(t, step.Want, tm.CurrentStateValue(), "step %d state", i+1)
		}

		tm.Expect(scenario.Expect...)
	})
}

func (tm *TestMachine[S, T, B]) apply(step Step[S, T, B]) bool {
	tm.t.Helper()

	switch step.Action {
	case ActionFeed:
		return tm.Feed(step.Blackboard)
	case ActionWait:
		return tm.Wait(step.Wait)
	case ActionReset:
		return tm.Reset(step.Blackboard)
	default:
		return tm.Fire(step.Trigger, step.Blackboard)
	}
}
