package shutdown

import (
	"context"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsHooksBeforeCancel(t *testing.T) {
	t.Parallel()

	h := &Handler{}
	ctx := h.Setup(context.Background())

	var order []string

	h.BeforeShutdown(func() {
		assert.NoError(t, ctx.Err(), "context should be alive inside hooks")

		order = append(order, "first")
	})
	h.BeforeShutdown(func() { order = append(order, "second") })

	h.Shutdown()

	require.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	h := &Handler{}
	_ = h.Setup(context.Background())

	var calls atomic.Int32

	h.BeforeShutdown(func() { calls.Add(1) })

	h.Shutdown()
	h.Shutdown()

	assert.Equal(t, int32(1), calls.Load())
}

func TestShutdownWithoutSetup(t *testing.T) {
	t.Parallel()

	h := &Handler{}

	var called bool

	h.BeforeShutdown(func() { called = true })
	h.Shutdown()

	assert.False(t, called)
}

func TestParentCancelSkipsHooks(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	h := &Handler{}
	ctx := h.Setup(parent, syscall.SIGUSR1)

	var called atomic.Bool

	h.BeforeShutdown(func() { called.Store(true) })
	cancel()

	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	assert.False(t, called.Load())
}

//nolint:paralleltest // Test sends a real signal to the process
func TestSignalTriggersShutdown(t *testing.T) {
	h := &Handler{}
	ctx := h.Setup(context.Background(), syscall.SIGUSR2)

	var called atomic.Bool

	h.BeforeShutdown(func() { called.Store(true) })

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR2))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not canceled after signal")
	}

	assert.True(t, called.Load())
}
