package testing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/fsm/statemachine"
)

// Matcher errors.
var (
	ErrNoTransitions      = errors.New("no transitions recorded")
	ErrNoMatchersPassed   = errors.New("no matchers passed")
	ErrStateNotVisited    = errors.New("state was not visited")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrUnexpectedState    = errors.New("unexpected current state")
	ErrUnexpectedCount    = errors.New("unexpected transition count")
	ErrUnexpectedPath     = errors.New("unexpected path")
)

// View is what matchers inspect. TestMachine implements it.
type View[S comparable] interface {
	Current() S
	Trace() []TraceEntry[S]
}

// Matcher defines an assertion matcher interface.
type Matcher[S comparable] interface {
	Match(v View[S]) (bool, error)
	Description() string
}

// MatcherFunc adapts a function to a Matcher.
type MatcherFunc[S comparable] struct {
	Desc string
	Fn   func(v View[S]) (bool, error)
}

func (m MatcherFunc[S]) Match(v View[S]) (bool, error) {
	return m.Fn(v)
}

func (m MatcherFunc[S]) Description() string {
	return m.Desc
}

// CurrentStateIs matches when the machine is in state.
func CurrentStateIs[S comparable](state S) Matcher[S] {
	return MatcherFunc[S]{
		Desc: fmt.Sprintf("current state should be '%v'", state),
		Fn: func(v View[S]) (bool, error) {
			if current := v.Current(); current != state {
				return false, fmt.Errorf("%w: '%v', expected '%v'", ErrUnexpectedState, current, state)
			}

			return true, nil
		},
	}
}

// StateWasVisited matches when some transition entered state.
func StateWasVisited[S comparable](state S) Matcher[S] {
	return MatcherFunc[S]{
		Desc: fmt.Sprintf("state '%v' should be visited", state),
		Fn: func(v View[S]) (bool, error) {
			for _, entry := range v.Trace() {
				if entry.To == state {
					return true, nil
				}
			}

			return false, fmt.Errorf("%w: '%v'", ErrStateNotVisited, state)
		},
	}
}

// TransitionWasTaken matches when a transition from one state to the other
// was committed.
func TransitionWasTaken[S comparable](from, to S) Matcher[S] {
	return TransitionWasCausedBy(from, to, "")
}

// TransitionWasCausedBy is like TransitionWasTaken but also requires the
// cause. An empty cause matches any.
func TransitionWasCausedBy[S comparable](from, to S, cause statemachine.Cause) Matcher[S] {
	desc := fmt.Sprintf("transition from '%v' to '%v' should be taken", from, to)
	if cause != "" {
		desc += " by " + string(cause)
	}

	return MatcherFunc[S]{
		Desc: desc,
		Fn: func(v View[S]) (bool, error) {
			for _, entry := range v.Trace() {
				if entry.From == from && entry.To == to && (cause == "" || entry.Cause == cause) {
					return true, nil
				}
			}

			return false, fmt.Errorf("%w: from '%v' to '%v'", ErrTransitionNotTaken, from, to)
		},
	}
}

// PathWas matches when the states entered, in order, are exactly path.
func PathWas[S comparable](path ...S) Matcher[S] {
	return MatcherFunc[S]{
		Desc: fmt.Sprintf("path should be %v", path),
		Fn: func(v View[S]) (bool, error) {
			trace := v.Trace()
			entered := make([]S, 0, len(trace))

			for _, entry := range trace {
				entered = append(entered, entry.To)
			}

			if !slices.Equal(entered, path) {
				return false, fmt.Errorf("%w: %v, expected %v", ErrUnexpectedPath, entered, path)
			}

			return true, nil
		},
	}
}

// TransitionCountIs matches when exactly n transitions were committed.
func TransitionCountIs[S comparable](n int) Matcher[S] {
	return MatcherFunc[S]{
		Desc: fmt.Sprintf("%d transition(s) should be committed", n),
		Fn: func(v View[S]) (bool, error) {
			if got := len(v.Trace()); got != n {
				return false, fmt.Errorf("%w: %d, expected %d", ErrUnexpectedCount, got, n)
			}

			return true, nil
		},
	}
}

// LastTriggerWas matches when the most recent transition was caused by the
// trigger whose fmt.Sprint form is trigger.
func LastTriggerWas[S comparable](trigger string) Matcher[S] {
	return MatcherFunc[S]{
		Desc: fmt.Sprintf("last trigger should be '%s'", trigger),
		Fn: func(v View[S]) (bool, error) {
			trace := v.Trace()
			if len(trace) == 0 {
				return false, ErrNoTransitions
			}

			if last := trace[len(trace)-1]; last.Trigger != trigger {
				return false, fmt.Errorf("%w: last trigger was '%s'", ErrTransitionNotTaken, last.Trigger)
			}

			return true, nil
		},
	}
}

// All creates a matcher that requires all sub-matchers to pass.
func All[S comparable](matchers ...Matcher[S]) Matcher[S] {
	return MatcherFunc[S]{
		Desc: "all matchers should pass",
		Fn: func(v View[S]) (bool, error) {
			for _, matcher := range matchers {
				matched, err := matcher.Match(v)
				if !matched || err != nil {
					return false, err
				}
			}

			return true, nil
		},
	}
}

// Any creates a matcher that requires at least one sub-matcher to pass.
func Any[S comparable](matchers ...Matcher[S]) Matcher[S] {
	return MatcherFunc[S]{
		Desc: "at least one matcher should pass",
		Fn: func(v View[S]) (bool, error) {
			for _, matcher := range matchers {
				matched, err := matcher.Match(v)
				if matched && err == nil {
					return true, nil
				}
			}

			return false, ErrNoMatchersPassed
		},
	}
}
