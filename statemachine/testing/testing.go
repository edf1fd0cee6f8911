// Package testing provides a harness for driving state machines in tests.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/amp-labs/fsm/statemachine"
)

// Epoch is the time every FakeClock created by NewTestMachine starts at.
var Epoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// FakeClock is a statemachine.Clock that only moves when told to.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock stopped at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the clock's current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)

	return c.now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}

// TraceEntry records one committed transition.
type TraceEntry[S comparable] struct {
	At      time.Time
	From    S
	To      S
	Cause   statemachine.Cause
	Trigger string // empty unless Cause is trigger
	IsReset bool
}

// Assertion records the outcome of one Expect or Assert call.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// TestMachine wraps a Machine with a fake clock, a transition trace and
// assertion helpers.
type TestMachine[S, T comparable, B any] struct {
	*statemachine.Machine[S, T, B]

	Clock *FakeClock

	t          *testing.T
	trace      []TraceEntry[S]
	assertions []Assertion
}

// NewTestMachine creates a machine starting in start, driven by a FakeClock
// at Epoch and logging to t. Options are applied after the harness
// defaults, so callers can override them.
func NewTestMachine[S, T comparable, B any](
	t *testing.T, start S, opts ...statemachine.Option,
) *TestMachine[S, T, B] {
	t.Helper()

	clock := NewFakeClock(Epoch)

	defaults := []statemachine.Option{
		statemachine.WithName(t.Name()),
		statemachine.WithClock(clock),
		statemachine.WithLogger(statemachine.NewSlogLogger(slogt.New(t))),
	}

	tm := &TestMachine[S, T, B]{
		Machine: statemachine.New[S, T, B](start, append(defaults, opts...)...),
		Clock:   clock,
		t:       t,
	}

	tm.OnTransition(func(_ context.Context, ev statemachine.Event[S, T, B]) {
		entry := TraceEntry[S]{
			At:      ev.At,
			From:    ev.From,
			To:      ev.To,
			Cause:   ev.Cause,
			IsReset: ev.IsReset,
		}

		if ev.HasTrigger {
			entry.Trigger = fmt.Sprint(ev.Trigger)
		}

		tm.trace = append(tm.trace, entry)
	})

	return tm
}

// WithStates registers every value as a plain state.
func (tm *TestMachine[S, T, B]) WithStates(values ...S) *TestMachine[S, T, B] {
	tm.t.Helper()

	for _, v := range values {
		require.NoError(tm.t, tm.AddState(v))
	}

	return tm
}

// Fire runs a trigger and fails the test if the machine reports an error.
func (tm *TestMachine[S, T, B]) Fire(trigger T, bb B) bool {
	tm.t.Helper()

	ok, err := tm.Trigger(trigger, bb)
	require.NoError(tm.t, err, "trigger %v", trigger)

	return ok
}

// Feed runs Update with bb and fails the test on error.
func (tm *TestMachine[S, T, B]) Feed(bb B) bool {
	tm.t.Helper()

	ok, err := tm.Update(bb)
	require.NoError(tm.t, err, "update")

	return ok
}

// Wait advances the clock by d and checks the current state's age
// transition at the new time.
func (tm *TestMachine[S, T, B]) Wait(d time.Duration) bool {
	tm.t.Helper()

	ok, err := tm.UpdateAt(tm.Clock.Advance(d))
	require.NoError(tm.t, err, "update at +%s", d)

	return ok
}

// Current implements View.
func (tm *TestMachine[S, T, B]) Current() S {
	return tm.CurrentStateValue()
}

// Trace implements View.
func (tm *TestMachine[S, T, B]) Trace() []TraceEntry[S] {
	return tm.trace
}

// Visited returns the starting state followed by every state entered, in
// order.
func (tm *TestMachine[S, T, B]) Visited() []S {
	out := []S{tm.StartingStateValue()}
	for _, entry := range tm.trace {
		out = append(out, entry.To)
	}

	return out
}

// Expect runs matchers against the machine and fails the test on the first
// that does not pass.
func (tm *TestMachine[S, T, B]) Expect(matchers ...Matcher[S]) {
	tm.t.Helper()

	for _, matcher := range matchers {
		matched, err := matcher.Match(tm)

		tm.assertions = append(tm.assertions, Assertion{
			Name:   matcher.Description(),
			Passed: matched && err == nil,
			Error:  err,
		})

		require.True(tm.t, matched, "%s: %v", matcher.Description(), err)
	}
}

// AssertState checks the current state.
func (tm *TestMachine[S, T, B]) AssertState(expected S) {
	tm.t.Helper()

	tm.Expect(CurrentStateIs(expected))
}

// AssertStateVisited checks that a state was entered at some point.
func (tm *TestMachine[S, T, B]) AssertStateVisited(state S) {
	tm.t.Helper()

	tm.Expect(StateWasVisited(state))
}

// AssertTransitionTaken checks that from was left for to at some point.
func (tm *TestMachine[S, T, B]) AssertTransitionTaken(from, to S) {
	tm.t.Helper()

	tm.Expect(TransitionWasTaken(from, to))
}

// AssertTransitionCount checks how many transitions were committed.
func (tm *TestMachine[S, T, B]) AssertTransitionCount(expected int) {
	tm.t.Helper()

	tm.Expect(TransitionCountIs[S](expected))
}

// GetTrace returns the transition trace for inspection.
func (tm *TestMachine[S, T, B]) GetTrace() []TraceEntry[S] {
	return tm.trace
}

// GetAssertions returns all assertions made.
func (tm *TestMachine[S, T, B]) GetAssertions() []Assertion {
	return tm.assertions
}
