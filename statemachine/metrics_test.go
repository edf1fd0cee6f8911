package statemachine

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Each test uses its own machine name so the shared global counters can be
// read without resetting them.

func TestTransitionsMetric(t *testing.T) {
	t.Parallel()

	m := newDoor(t, WithName("metrics-transitions"))
	require.NoError(t, m.AddTransition(closed, opened, "open"))
	require.NoError(t, m.AddTransition(opened, closed, "close"))

	for range 3 {
		_, err := m.Trigger("open", nil)
		require.NoError(t, err)

		_, err = m.Trigger("close", nil)
		require.NoError(t, err)
	}

	assert.InDelta(t, 3, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-transitions", "closed", "opened", "trigger")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-transitions", "opened", "closed", "trigger")), 0)
}

func TestRejectedMetric(t *testing.T) {
	t.Parallel()

	m := newDoor(t, WithName("metrics-rejected"))

	assert.False(t, m.Reset(nil))
	assert.False(t, m.Reset(nil))

	assert.InDelta(t, 2, testutil.ToFloat64(
		transitionsRejectedTotal.WithLabelValues("metrics-rejected", "reset")), 0)
}

func TestConditionErrorsMetric(t *testing.T) {
	t.Parallel()

	m := newDoor(t, WithName("metrics-conditions"))
	require.NoError(t, m.AddConditionalTransition(closed, opened, MustCompile[board]("speed > 1")))

	ok, err := m.Update(board{"speed": "fast"})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.InDelta(t, 1, testutil.ToFloat64(
		conditionErrorsTotal.WithLabelValues("metrics-conditions", "closed")), 0)
}

func TestSanitizeMachine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", sanitizeMachine(""))
	assert.Equal(t, "door", sanitizeMachine("door"))
}
