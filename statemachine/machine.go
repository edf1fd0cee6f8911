// Package statemachine provides a generic finite state machine driven by
// triggers, blackboard conditions and state age, with enter, exit and
// update notifications and a YAML document form.
package statemachine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/amp-labs/fsm/logger"
)

// Machine is a finite state machine over state values S, triggers T and a
// caller-supplied blackboard B.
//
// A Machine is not safe for concurrent use. Handlers run synchronously and
// must not change the machine's transition tables while they run.
type Machine[S comparable, T comparable, B any] struct {
	id   uuid.UUID
	name string

	starting S
	current  S

	states map[S]*State[S, T, B]
	order  []S
	domain []S

	// Options that could not be applied to this machine's types.
	domainErr  error
	optionErrs []error

	clock        Clock
	createdAt    time.Time
	logger       Logger
	stateCodec   Codec[S]
	triggerCodec Codec[T]

	listeners Notifier[Event[S, T, B]]
	finalized bool

	inFlight    atomic.Int32
	transitions atomic.Uint64
}

// New creates a machine whose starting and current state is start. The
// starting state is not registered automatically; add it with AddState.
func New[S comparable, T comparable, B any](start S, opts ...Option) *Machine[S, T, B] {
	cfg := newConfig(opts)

	m := &Machine[S, T, B]{
		id:           cfg.id,
		name:         cfg.name,
		starting:     start,
		current:      start,
		states:       make(map[S]*State[S, T, B]),
		clock:        cfg.clock,
		logger:       cfg.logger,
		stateCodec:   TextCodec[S](),
		triggerCodec: TextCodec[T](),
	}

	if m.id == uuid.Nil {
		m.id = uuid.New()
	}

	m.createdAt = cfg.startTime
	if m.createdAt.IsZero() {
		m.createdAt = m.clock.Now()
	}

	m.applyTyped(cfg)

	return m
}

func (m *Machine[S, T, B]) applyTyped(cfg *config) {
	ctx := logger.With(context.Background(), "machine", m.name)

	reject := func(err error) {
		logger.Get(ctx).Warn("ignoring option", "error", err)
		m.optionErrs = append(m.optionErrs, err)
	}

	if cfg.stateCodec != nil {
		if c, ok := cfg.stateCodec.(Codec[S]); ok {
			m.stateCodec = c
		} else {
			reject(fmt.Errorf("%w: state codec %T does not encode %s",
				ErrInvalidOption, cfg.stateCodec, reflect.TypeFor[S]()))
		}
	}

	if cfg.triggerCodec != nil {
		if c, ok := cfg.triggerCodec.(Codec[T]); ok {
			m.triggerCodec = c
		} else {
			reject(fmt.Errorf("%w: trigger codec %T does not encode %s",
				ErrInvalidOption, cfg.triggerCodec, reflect.TypeFor[T]()))
		}
	}

	if cfg.domain != nil {
		d, err := convertDomain[S](cfg.domain)
		if err != nil {
			m.domainErr = err
			reject(err)
		} else {
			m.domain = d
		}
	}
}

// convertDomain turns the slice given to WithStateDomain into []S. Values
// of another type with the same kind, such as untyped string literals for
// a named string state type, are converted.
func convertDomain[S any](raw any) ([]S, error) {
	if d, ok := raw.([]S); ok {
		return d, nil
	}

	target := reflect.TypeFor[S]()
	rv := reflect.ValueOf(raw)
	out := make([]S, 0, rv.Len())

	for i := range rv.Len() {
		el := rv.Index(i)

		convertible := el.Type().AssignableTo(target) ||
			(el.Kind() == target.Kind() && el.Type().ConvertibleTo(target))
		if !convertible {
			return nil, fmt.Errorf("%w: state domain of %s cannot describe %s states", ErrInvalidOption, el.Type(), target)
		}

		s, _ := el.Convert(target).Interface().(S)
		out = append(out, s)
	}

	return out, nil
}

// ID returns the machine's unique identifier.
func (m *Machine[S, T, B]) ID() uuid.UUID {
	return m.id
}

// Name returns the machine's name, which may be empty.
func (m *Machine[S, T, B]) Name() string {
	return m.name
}

// StartingStateValue returns the reset target.
func (m *Machine[S, T, B]) StartingStateValue() S {
	return m.starting
}

// CurrentStateValue returns the current state value.
func (m *Machine[S, T, B]) CurrentStateValue() S {
	return m.current
}

// SetStartingStateValue changes the reset target. The current state is
// left alone.
func (m *Machine[S, T, B]) SetStartingStateValue(s S) error {
	if m.finalized {
		return ErrFinalized
	}

	m.starting = s

	return nil
}

// Transitions returns how many transitions the machine has committed.
func (m *Machine[S, T, B]) Transitions() uint64 {
	return m.transitions.Load()
}

// Finalize locks the machine's states and transitions. Every later
// mutation fails with ErrFinalized. Driving the machine is unaffected.
func (m *Machine[S, T, B]) Finalize() {
	m.finalized = true
}

// IsFinalized reports whether Finalize has been called.
func (m *Machine[S, T, B]) IsFinalized() bool {
	return m.finalized
}

// AddState registers an empty State for s. Registering an existing value
// keeps the existing State.
func (m *Machine[S, T, B]) AddState(s S) error {
	return m.AddCustomState(s, NewState[S, T, B](s))
}

// AddCustomState registers st under s. Registering an existing value keeps
// the existing State. A nil st is registered as-is and reported by Validate.
func (m *Machine[S, T, B]) AddCustomState(s S, st *State[S, T, B]) error {
	if m.finalized {
		return ErrFinalized
	}

	if _, exists := m.states[s]; exists {
		return nil
	}

	if st != nil {
		st.value = s
		if st.triggers == nil {
			st.triggers = make(map[T]S)
		}

		if st.enteredAt.IsZero() {
			st.enteredAt = m.createdAt
		}
	}

	m.states[s] = st
	m.order = append(m.order, s)

	return nil
}

// RemoveState unregisters s. Removing the current or starting state is
// allowed; the caller must restore a consistent machine before driving it.
func (m *Machine[S, T, B]) RemoveState(s S) error {
	if m.finalized {
		return ErrFinalized
	}

	if _, exists := m.states[s]; !exists {
		return nil
	}

	delete(m.states, s)

	for i, v := range m.order {
		if v == s {
			m.order = append(m.order[:i], m.order[i+1:]...)

			break
		}
	}

	return nil
}

// ContainsState reports whether s is registered.
func (m *Machine[S, T, B]) ContainsState(s S) bool {
	_, ok := m.states[s]

	return ok
}

// State returns the State registered for s.
func (m *Machine[S, T, B]) State(s S) (*State[S, T, B], bool) {
	st, ok := m.states[s]

	return st, ok && st != nil
}

// States returns the registered state values in registration order.
func (m *Machine[S, T, B]) States() []S {
	out := make([]S, len(m.order))
	copy(out, m.order)

	return out
}

// AddTransition maps trigger t on from to the destination to. It does
// nothing unless both states are registered, and the first mapping for a
// trigger wins.
func (m *Machine[S, T, B]) AddTransition(from, to S, t T) error {
	return m.withPair(from, to, func(st *State[S, T, B]) {
		st.AddTrigger(t, to)
	})
}

// AddConditionalTransition appends a conditional transition to from. It
// does nothing unless both states are registered.
func (m *Machine[S, T, B]) AddConditionalTransition(from, to S, cond Condition[B]) error {
	return m.withPair(from, to, func(st *State[S, T, B]) {
		st.AddCondition(cond, to)
	})
}

// AddAgeTransition sets from's age transition, replacing any existing one.
// It does nothing unless both states are registered.
func (m *Machine[S, T, B]) AddAgeTransition(from, to S, maxAge time.Duration) error {
	return m.withPair(from, to, func(st *State[S, T, B]) {
		st.SetAgeTransition(maxAge, to)
	})
}

func (m *Machine[S, T, B]) withPair(from, to S, fn func(st *State[S, T, B])) error {
	if m.finalized {
		return ErrFinalized
	}

	st, ok := m.State(from)
	if !ok || !m.ContainsState(to) {
		return nil
	}

	fn(st)

	return nil
}

// RemoveTransition removes the trigger mapping for t on from, if present.
func (m *Machine[S, T, B]) RemoveTransition(from S, t T) error {
	return m.withState(from, func(st *State[S, T, B]) {
		st.RemoveTrigger(t)
	})
}

// RemoveConditionalTransition removes cond from from's conditions, if present.
func (m *Machine[S, T, B]) RemoveConditionalTransition(from S, cond Condition[B]) error {
	return m.withState(from, func(st *State[S, T, B]) {
		st.RemoveCondition(cond)
	})
}

// RemoveAgeTransition clears from's age transition, if present.
func (m *Machine[S, T, B]) RemoveAgeTransition(from S) error {
	return m.withState(from, func(st *State[S, T, B]) {
		st.ClearAgeTransition()
	})
}

func (m *Machine[S, T, B]) withState(s S, fn func(st *State[S, T, B])) error {
	if m.finalized {
		return ErrFinalized
	}

	if st, ok := m.State(s); ok {
		fn(st)
	}

	return nil
}

// OnTransition registers a handler that runs after every committed
// transition, once the current state has advanced.
func (m *Machine[S, T, B]) OnTransition(h Handler[S, T, B]) Subscription {
	return m.listeners.Subscribe(h)
}

// RemoveTransitionListener removes a handler added with OnTransition.
func (m *Machine[S, T, B]) RemoveTransitionListener(sub Subscription) bool {
	return m.listeners.Unsubscribe(sub)
}

func (m *Machine[S, T, B]) label(s S) string {
	return encodeLabel(m.stateCodec, s)
}

func (m *Machine[S, T, B]) triggerLabel(t T) string {
	return encodeLabel(m.triggerCodec, t)
}
