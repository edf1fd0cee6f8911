package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amp-labs/fsm/logger"
)

func TestValidateContainsAllStates(t *testing.T) {
	t.Parallel()

	t.Run("no domain", func(t *testing.T) {
		t.Parallel()

		m := New[door, string, board](closed)
		assert.True(t, m.ValidateContainsAllStates())
	})

	t.Run("complete domain", func(t *testing.T) {
		t.Parallel()

		m := newDoor(t, WithStateDomain(closed, halfway, opened))
		assert.True(t, m.ValidateContainsAllStates())
		assert.True(t, m.ValidateFiniteStateMachine())
	})

	t.Run("missing member", func(t *testing.T) {
		t.Parallel()

		m := newDoor(t, WithStateDomain(closed, halfway, opened, "jammed"))
		assert.False(t, m.ValidateContainsAllStates())
		assert.False(t, m.ValidateFiniteStateMachine())

		err := m.Validate()
		require.ErrorIs(t, err, ErrMissingDomainState)
	})

	t.Run("plain strings convert to the state type", func(t *testing.T) {
		t.Parallel()

		m := newDoor(t, WithStateDomain("closed", "halfway", "opened"))
		assert.True(t, m.ValidateContainsAllStates())
		require.NoError(t, m.Validate())

		m = newDoor(t, WithStateDomain("closed", "jammed"))
		assert.False(t, m.ValidateContainsAllStates())
		require.ErrorIs(t, m.Validate(), ErrMissingDomainState)
	})

	t.Run("domain of another kind is reported", func(t *testing.T) {
		t.Parallel()

		m := newDoor(t, WithStateDomain(1, 2, 3))
		assert.False(t, m.ValidateContainsAllStates())
		assert.False(t, m.ValidateFiniteStateMachine())
		require.ErrorIs(t, m.Validate(), ErrInvalidOption)
	})
}

func TestValidate_CodecOfAnotherType(t *testing.T) {
	t.Parallel()

	m := newDoor(t, WithStateCodec(TextCodec[int]()), WithTriggerCodec(TextCodec[door]()))

	err := m.Validate()
	require.ErrorIs(t, err, ErrInvalidOption)
	assert.Contains(t, err.Error(), "state codec")
	assert.Contains(t, err.Error(), "trigger codec")

	// The default codecs stay in place.
	data, err := m.Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(data), "startingStateValue: closed")
}

func TestValidate_SelfTransitions(t *testing.T) {
	t.Parallel()

	m := newDoor(t)
	require.NoError(t, m.AddTransition(closed, opened, "open"))
	assert.True(t, m.ValidateFiniteStateMachine())
	require.NoError(t, m.Validate())

	require.NoError(t, m.AddTransition(opened, opened, "stay"))
	require.NoError(t, m.AddConditionalTransition(halfway, halfway, MustCompile[board]("true")))

	assert.False(t, m.ValidateFiniteStateMachine())

	err := m.Validate()
	require.ErrorIs(t, err, ErrSelfTransition)

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, transitionErr.From, transitionErr.To)

	attrs := logger.ErrorAttrs(err)
	require.NotEmpty(t, attrs)
}

func TestValidate_NilState(t *testing.T) {
	t.Parallel()

	m := newDoor(t)
	require.NoError(t, m.AddCustomState("ghost", nil))

	assert.True(t, m.ContainsState("ghost"))

	_, ok := m.State("ghost")
	assert.False(t, ok)

	require.ErrorIs(t, m.Validate(), ErrNilState)
	assert.False(t, m.ValidateFiniteStateMachine())
}

func TestValidate_AgeSelfTransitionIsAllowed(t *testing.T) {
	t.Parallel()

	m := newDoor(t)
	require.NoError(t, m.AddAgeTransition(closed, closed, 1))

	assert.True(t, m.ValidateFiniteStateMachine())
}
