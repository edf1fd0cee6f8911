// Package shutdown turns SIGINT and SIGTERM into context cancellation and
// runs registered cleanup hooks first.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/amp-labs/fsm/logger"
)

// Handler owns the hooks and the cancel function of one process lifetime.
type Handler struct {
	mut    sync.Mutex
	hooks  []func()
	cancel context.CancelFunc
	done   bool
}

var std = &Handler{} //nolint:gochecknoglobals

// BeforeShutdown registers a hook on the default handler. Hooks run in
// registration order while the context is still alive.
func BeforeShutdown(h func()) {
	std.BeforeShutdown(h)
}

// Shutdown triggers the default handler programmatically.
func Shutdown() {
	std.Shutdown()
}

// SetupHandler installs the signal handler on the default handler and
// returns a context that is canceled once the hooks have run.
func SetupHandler(ctx context.Context) context.Context {
	return std.Setup(ctx, syscall.SIGINT, syscall.SIGTERM)
}

func (h *Handler) BeforeShutdown(hook func()) {
	h.mut.Lock()
	defer h.mut.Unlock()

	h.hooks = append(h.hooks, hook)
}

// Setup derives a context from parent that is canceled when one of sigs
// arrives or Shutdown is called. Hooks run exactly once before the
// cancellation.
func (h *Handler) Setup(parent context.Context, sigs ...os.Signal) context.Context {
	ctx, cancel := context.WithCancel(parent)

	h.mut.Lock()
	h.cancel = cancel
	h.done = false
	h.mut.Unlock()

	if len(sigs) == 0 {
		return ctx
	}

	notify, stop := signal.NotifyContext(ctx, sigs...)

	go func() {
		<-notify.Done()
		stop()

		if ctx.Err() == nil {
			logger.Get(parent).Warn("received signal, shutting down")
			h.Shutdown()
		}
	}()

	return ctx
}

// Shutdown runs the hooks and cancels the context returned by Setup.
// Calls after the first are no-ops.
func (h *Handler) Shutdown() {
	h.mut.Lock()

	if h.done || h.cancel == nil {
		h.mut.Unlock()

		return
	}

	h.done = true
	hooks := h.hooks
	h.hooks = nil
	cancel := h.cancel
	h.mut.Unlock()

	for _, hook := range hooks {
		hook()
	}

	cancel()
}
