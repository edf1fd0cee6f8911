package statemachine

import (
	"time"

	"github.com/google/uuid"
)

type config struct {
	id        uuid.UUID
	name      string
	clock     Clock
	startTime time.Time
	logger    Logger

	stateCodec   any
	triggerCodec any
	domain       any
}

// Option configures a Machine.
type Option func(*config)

func newConfig(opts []Option) *config {
	cfg := &config{
		clock:  wallClock{},
		logger: NewDefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return cfg
}

// WithName names the machine for logs, metrics and documents.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithID sets the machine's identifier instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithClock sets the time source used for entry times. Defaults to the wall clock.
func WithClock(clock Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithStartTime sets the construction time used as the initial entry time.
// Defaults to the clock's current time.
func WithStartTime(t time.Time) Option {
	return func(c *config) {
		c.startTime = t
	}
}

// WithLogger sets the machine's logger. A nil logger disables logging.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l == nil {
			l = NopLogger{}
		}

		c.logger = l
	}
}

// WithStateCodec sets how state values are written to documents and labels.
// If V is not the machine's state type the codec is not used and Validate
// reports ErrInvalidOption.
func WithStateCodec[V any](codec Codec[V]) Option {
	return func(c *config) {
		c.stateCodec = codec
	}
}

// WithTriggerCodec sets how triggers are written to documents and labels.
// If V is not the machine's trigger type the codec is not used and Validate
// reports ErrInvalidOption.
func WithTriggerCodec[V any](codec Codec[V]) Option {
	return func(c *config) {
		c.triggerCodec = codec
	}
}

// WithStateDomain declares every value the state type can take, enabling
// ValidateContainsAllStates. Values of another type with the same kind are
// converted to the state type; any other V is reported by Validate and
// fails ValidateContainsAllStates.
func WithStateDomain[V any](values ...V) Option {
	return func(c *config) {
		c.domain = append([]V(nil), values...)
	}
}
