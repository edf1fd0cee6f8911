package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Triggers(t *testing.T) {
	t.Parallel()

	st := NewState[door, string, board](closed)

	assert.True(t, st.AddTrigger("open", opened))
	assert.False(t, st.AddTrigger("open", halfway), "first registration wins")
	assert.True(t, st.AddTrigger("nudge", halfway))

	to, ok := st.ShouldTransitionFromTrigger("open")
	assert.True(t, ok)
	assert.Equal(t, opened, to)

	_, ok = st.ShouldTransitionFromTrigger("kick")
	assert.False(t, ok)

	assert.Equal(t, []TriggerTransition[door, string]{
		{Trigger: "open", To: opened},
		{Trigger: "nudge", To: halfway},
	}, st.Triggers())

	assert.True(t, st.RemoveTrigger("open"))
	assert.False(t, st.RemoveTrigger("open"))
	assert.Equal(t, []TriggerTransition[door, string]{{Trigger: "nudge", To: halfway}}, st.Triggers())
}

func TestState_Conditions(t *testing.T) {
	t.Parallel()

	st := NewState[door, string, board](closed)
	first := MustCompile[board]("a")
	second := MustCompile[board]("b")

	assert.True(t, st.AddCondition(first, halfway))
	assert.False(t, st.AddCondition(first, opened), "same condition is skipped")
	assert.True(t, st.AddCondition(second, opened))
	assert.False(t, st.AddCondition(nil, opened))
	assert.Len(t, st.Conditions(), 2)

	to, ok := st.ShouldTransitionFromUpdate(board{"a": true, "b": true})
	assert.True(t, ok)
	assert.Equal(t, halfway, to)

	to, ok = st.ShouldTransitionFromUpdate(board{"a": false, "b": true})
	assert.True(t, ok)
	assert.Equal(t, opened, to)

	_, ok = st.ShouldTransitionFromUpdate(board{"a": false, "b": false})
	assert.False(t, ok)

	assert.True(t, st.RemoveCondition(first))
	assert.False(t, st.RemoveCondition(first))

	to, ok = st.ShouldTransitionFromUpdate(board{"a": true, "b": true})
	assert.True(t, ok)
	assert.Equal(t, opened, to)
}

func TestState_Age(t *testing.T) {
	t.Parallel()

	st := NewState[door, string, board](closed)
	st.enteredAt = t0

	_, ok := st.ShouldTransitionFromAge(t0.Add(time.Hour))
	assert.False(t, ok, "no age transition configured")

	st.SetAgeTransition(2*time.Second, halfway)
	st.SetAgeTransition(2*time.Second, opened)

	age, ok := st.AgeTransition()
	require.True(t, ok)
	assert.Equal(t, AgeTransition[door]{MaxAge: 2 * time.Second, To: opened}, age)

	tests := []struct {
		elapsed time.Duration
		want    bool
	}{
		{elapsed: time.Second, want: false},
		{elapsed: 2 * time.Second, want: false},
		{elapsed: 2*time.Second + time.Nanosecond, want: true},
		{elapsed: time.Minute, want: true},
	}

	for _, tt := range tests {
		to, ok := st.ShouldTransitionFromAge(t0.Add(tt.elapsed))
		assert.Equal(t, tt.want, ok, "elapsed %s", tt.elapsed)

		if ok {
			assert.Equal(t, opened, to)
		}
	}

	assert.True(t, st.ClearAgeTransition())
	assert.False(t, st.ClearAgeTransition())
}

func TestState_ValidateTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(st *State[door, string, board])
		want  bool
	}{
		{
			name:  "empty",
			setup: func(*State[door, string, board]) {},
			want:  true,
		},
		{
			name: "trigger to another state",
			setup: func(st *State[door, string, board]) {
				st.AddTrigger("open", opened)
			},
			want: true,
		},
		{
			name: "trigger to itself",
			setup: func(st *State[door, string, board]) {
				st.AddTrigger("stay", closed)
			},
			want: false,
		},
		{
			name: "condition to itself",
			setup: func(st *State[door, string, board]) {
				st.AddCondition(MustCompile[board]("true"), closed)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := NewState[door, string, board](closed)
			tt.setup(st)

			assert.Equal(t, tt.want, st.ValidateTransitions())
		})
	}
}
