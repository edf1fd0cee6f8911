package statemachine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Trigger fires t against the current state. It reports whether a
// transition was committed. A trigger the current state does not map is
// not an error.
func (m *Machine[S, T, B]) Trigger(t T, bb B) (bool, error) {
	step, err := m.TriggerContext(context.Background(), t, bb)

	return step.Committed, err
}

// TriggerContext is like Trigger but carries ctx to handlers, logs and
// spans, and returns the state values around the attempt.
func (m *Machine[S, T, B]) TriggerContext(ctx context.Context, t T, bb B) (Step[S], error) {
	st, err := m.currentState()
	if err != nil {
		return m.unchanged(), err
	}

	to, ok := st.ShouldTransitionFromTrigger(t)
	if !ok {
		return m.unchanged(), nil
	}

	return m.commit(ctx, Event[S, T, B]{
		From:       m.current,
		To:         to,
		Trigger:    t,
		HasTrigger: true,
		Blackboard: bb,
		Cause:      CauseTrigger,
		At:         m.clock.Now(),
	}), nil
}

// Update evaluates the current state's conditions against bb in order and
// transitions on the first that holds. When none holds, the state's
// OnUpdate handlers run and Update returns false.
func (m *Machine[S, T, B]) Update(bb B) (bool, error) {
	step, err := m.UpdateContext(context.Background(), bb)

	return step.Committed, err
}

// UpdateContext is like Update but carries ctx and returns the state values
// around the attempt.
func (m *Machine[S, T, B]) UpdateContext(ctx context.Context, bb B) (Step[S], error) {
	st, err := m.currentState()
	if err != nil {
		return m.unchanged(), err
	}

	now := m.clock.Now()

	to, ok := st.firstMatch(bb, func(cond Condition[B], err error) {
		m.conditionFailed(ctx, cond, err)
	})
	if !ok {
		st.fireUpdate(ctx, Event[S, T, B]{
			From:       m.current,
			To:         m.current,
			Blackboard: bb,
			Cause:      CauseUpdate,
			At:         now,
		})

		return m.unchanged(), nil
	}

	return m.commit(ctx, Event[S, T, B]{
		From:       m.current,
		To:         to,
		Blackboard: bb,
		Cause:      CauseCondition,
		At:         now,
	}), nil
}

// UpdateAt checks the current state's age transition at now and commits it
// once the state has been current for longer than its max age.
func (m *Machine[S, T, B]) UpdateAt(now time.Time) (bool, error) {
	step, err := m.UpdateAtContext(context.Background(), now)

	return step.Committed, err
}

// UpdateAtContext is like UpdateAt but carries ctx and returns the state
// values around the attempt.
func (m *Machine[S, T, B]) UpdateAtContext(ctx context.Context, now time.Time) (Step[S], error) {
	st, err := m.currentState()
	if err != nil {
		return m.unchanged(), err
	}

	// A handler calling back in while a commit is running must not start
	// another one.
	if m.inFlight.Load() > 0 {
		return m.unchanged(), nil
	}

	to, ok := st.ShouldTransitionFromAge(now)
	if !ok {
		return m.unchanged(), nil
	}

	return m.commit(ctx, Event[S, T, B]{
		From:  m.current,
		To:    to,
		Cause: CauseAge,
		At:    now,
	}), nil
}

// Reset transitions back to the starting state. It returns false when the
// machine is already there, and also when the current or starting state is
// no longer registered; unlike Trigger and Update it reports no
// ErrStateNotFound, so check ContainsState to tell the cases apart.
func (m *Machine[S, T, B]) Reset(bb B) bool {
	return m.ResetContext(context.Background(), bb).Committed
}

// ResetContext is like Reset but carries ctx and returns the state values
// around the attempt.
func (m *Machine[S, T, B]) ResetContext(ctx context.Context, bb B) Step[S] {
	return m.commit(ctx, Event[S, T, B]{
		From:       m.current,
		To:         m.starting,
		Blackboard: bb,
		IsReset:    true,
		Cause:      CauseReset,
		At:         m.clock.Now(),
	})
}

func (m *Machine[S, T, B]) currentState() (*State[S, T, B], error) {
	st, ok := m.State(m.current)
	if !ok {
		return nil, WrapStateError(m.label(m.current), ErrStateNotFound)
	}

	return st, nil
}

func (m *Machine[S, T, B]) unchanged() Step[S] {
	return Step[S]{From: m.current, To: m.current}
}

// commit runs the transition described by ev: exit handlers of ev.From,
// then enter handlers of ev.To, then the current state advances. Handlers
// therefore observe the pre-transition current state. Both states' entry
// clocks restart at ev.At.
func (m *Machine[S, T, B]) commit(ctx context.Context, ev Event[S, T, B]) Step[S] {
	machine := sanitizeMachine(m.name)
	from := m.label(ev.From)
	to := m.label(ev.To)

	fromState, fromOK := m.State(ev.From)
	toState, toOK := m.State(ev.To)

	if !fromOK || !toOK || ev.To == m.current {
		transitionsRejectedTotal.WithLabelValues(machine, string(ev.Cause)).Inc()
		m.logger.TransitionRejected(ctx, machine, from, to, ev.Cause)

		return m.unchanged()
	}

	ctx, span := startTransitionSpan(ctx, machine, m.id.String(), from, to, ev.Cause)
	defer span.End()

	if ev.HasTrigger {
		span.SetAttributes(attribute.String("trigger", m.triggerLabel(ev.Trigger)))
	}

	m.inFlight.Inc()
	defer m.inFlight.Dec()

	fromState.fireExit(ctx, ev)
	toState.fireEnter(ctx, ev)

	m.current = ev.To
	fromState.enteredAt = ev.At
	toState.enteredAt = ev.At

	m.transitions.Inc()

	transitionsTotal.WithLabelValues(machine, from, to, string(ev.Cause)).Inc()
	m.logger.TransitionCommitted(ctx, machine, from, to, ev.Cause)

	span.SetStatus(codes.Ok, "committed")
	logSpanDebug(ctx, "completed", "statemachine.transition", span)

	m.listeners.Notify(ctx, ev)

	return Step[S]{From: ev.From, To: ev.To, Committed: true}
}

func (m *Machine[S, T, B]) conditionFailed(ctx context.Context, cond Condition[B], err error) {
	machine := sanitizeMachine(m.name)
	state := m.label(m.current)

	conditionErrorsTotal.WithLabelValues(machine, state).Inc()
	m.logger.ConditionFailed(ctx, machine, state, conditionLabel(cond), err)
}

func conditionLabel[B any](cond Condition[B]) string {
	if sc, ok := cond.(SerializableCondition[B]); ok {
		return sc.Source()
	}

	return "<predicate>"
}
