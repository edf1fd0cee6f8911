package statemachine

import (
	"context"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

type door string

const (
	closed  door = "closed"
	halfway door = "halfway"
	opened  door = "opened"
)

type board = map[string]any

type doorMachine = Machine[door, string, board]

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)

	return c.now
}

// newDoor builds a door machine with the three door states registered and
// logging routed to the test log.
func newDoor(t *testing.T, opts ...Option) *doorMachine {
	t.Helper()

	base := []Option{
		WithName("door"),
		WithStartTime(t0),
		WithLogger(NewSlogLogger(slogt.New(t))),
	}

	m := New[door, string, board](closed, append(base, opts...)...)
	require.NoError(t, m.AddState(closed))
	require.NoError(t, m.AddState(halfway))
	require.NoError(t, m.AddState(opened))

	return m
}

type recorded struct {
	kind    string
	ev      Event[door, string, board]
	current door
}

// record registers enter, exit and update handlers on every state and
// returns the log they append to.
func record(m *doorMachine) *[]recorded {
	var log []recorded

	for _, v := range m.States() {
		st, _ := m.State(v)

		for kind, register := range map[string]func(Handler[door, string, board]) Subscription{
			"enter":  st.RegisterOnEnter,
			"exit":   st.RegisterOnExit,
			"update": st.RegisterOnUpdate,
		} {
			register(func(_ context.Context, ev Event[door, string, board]) {
				log = append(log, recorded{kind: kind, ev: ev, current: m.CurrentStateValue()})
			})
		}
	}

	return &log
}

func kinds(log []recorded) []string {
	out := make([]string, len(log))
	for i, r := range log {
		out[i] = r.kind + ":" + string(r.ev.From) + "->" + string(r.ev.To)
	}

	return out
}
