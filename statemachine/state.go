package statemachine

import (
	"context"
	"slices"
	"time"
)

// TriggerTransition maps a trigger to a destination state.
type TriggerTransition[S comparable, T comparable] struct {
	Trigger T
	To      S
}

// ConditionTransition maps a blackboard condition to a destination state.
type ConditionTransition[S comparable, B any] struct {
	Condition Condition[B]
	To        S
}

// AgeTransition moves to To once a state has been current for longer than MaxAge.
type AgeTransition[S comparable] struct {
	MaxAge time.Duration
	To     S
}

// State owns the outgoing transitions of one state value and its
// enter, exit and update notifications.
type State[S comparable, T comparable, B any] struct {
	value S

	triggers     map[T]S
	triggerOrder []T
	conditions   []ConditionTransition[S, B]
	age          *AgeTransition[S]

	onEnter  *Notifier[Event[S, T, B]]
	onExit   *Notifier[Event[S, T, B]]
	onUpdate *Notifier[Event[S, T, B]]

	enteredAt time.Time
}

// NewState creates an empty state for value.
func NewState[S comparable, T comparable, B any](value S) *State[S, T, B] {
	return &State[S, T, B]{
		value:    value,
		triggers: make(map[T]S),
	}
}

// Value returns the state value this State is registered under.
func (s *State[S, T, B]) Value() S {
	return s.value
}

// EnteredAt returns when the state last became current, or when its
// clock was last reset.
func (s *State[S, T, B]) EnteredAt() time.Time {
	return s.enteredAt
}

// AddTrigger maps t to the destination to. The first registration for a
// trigger wins; it reports whether the mapping was added.
func (s *State[S, T, B]) AddTrigger(t T, to S) bool {
	if s.triggers == nil {
		s.triggers = make(map[T]S)
	}

	if _, exists := s.triggers[t]; exists {
		return false
	}

	s.triggers[t] = to
	s.triggerOrder = append(s.triggerOrder, t)

	return true
}

// RemoveTrigger removes the mapping for t, reporting whether it existed.
func (s *State[S, T, B]) RemoveTrigger(t T) bool {
	if _, exists := s.triggers[t]; !exists {
		return false
	}

	delete(s.triggers, t)
	s.triggerOrder = slices.DeleteFunc(s.triggerOrder, func(other T) bool {
		return other == t
	})

	return true
}

// AddCondition appends a conditional transition. Conditions are evaluated
// in the order they were added. Adding the same condition twice is a no-op.
func (s *State[S, T, B]) AddCondition(cond Condition[B], to S) bool {
	if cond == nil || s.conditionIndex(cond) >= 0 {
		return false
	}

	s.conditions = append(s.conditions, ConditionTransition[S, B]{Condition: cond, To: to})

	return true
}

// RemoveCondition removes a conditional transition, reporting whether it existed.
func (s *State[S, T, B]) RemoveCondition(cond Condition[B]) bool {
	idx := s.conditionIndex(cond)
	if idx < 0 {
		return false
	}

	s.conditions = slices.Delete(s.conditions, idx, idx+1)

	return true
}

func (s *State[S, T, B]) conditionIndex(cond Condition[B]) int {
	return slices.IndexFunc(s.conditions, func(ct ConditionTransition[S, B]) bool {
		return ct.Condition == cond
	})
}

// SetAgeTransition sets the state's age transition, replacing any existing one.
func (s *State[S, T, B]) SetAgeTransition(maxAge time.Duration, to S) {
	s.age = &AgeTransition[S]{MaxAge: maxAge, To: to}
}

// ClearAgeTransition removes the age transition, reporting whether one was set.
func (s *State[S, T, B]) ClearAgeTransition() bool {
	had := s.age != nil
	s.age = nil

	return had
}

// Triggers returns the trigger transitions in registration order.
func (s *State[S, T, B]) Triggers() []TriggerTransition[S, T] {
	out := make([]TriggerTransition[S, T], 0, len(s.triggerOrder))
	for _, t := range s.triggerOrder {
		out = append(out, TriggerTransition[S, T]{Trigger: t, To: s.triggers[t]})
	}

	return out
}

// Conditions returns the conditional transitions in evaluation order.
func (s *State[S, T, B]) Conditions() []ConditionTransition[S, B] {
	return slices.Clone(s.conditions)
}

// AgeTransition returns the state's age transition, if any.
func (s *State[S, T, B]) AgeTransition() (AgeTransition[S], bool) {
	if s.age == nil {
		return AgeTransition[S]{}, false
	}

	return *s.age, true
}

// ShouldTransitionFromTrigger looks up the destination for t.
func (s *State[S, T, B]) ShouldTransitionFromTrigger(t T) (S, bool) {
	to, ok := s.triggers[t]

	return to, ok
}

// ShouldTransitionFromUpdate returns the destination of the first condition
// that holds for bb. Conditions that fail to evaluate are skipped.
func (s *State[S, T, B]) ShouldTransitionFromUpdate(bb B) (S, bool) {
	return s.firstMatch(bb, nil)
}

func (s *State[S, T, B]) firstMatch(bb B, onErr func(Condition[B], error)) (S, bool) {
	for _, ct := range s.conditions {
		ok, err := ct.Condition.Evaluate(bb)
		if err != nil {
			if onErr != nil {
				onErr(ct.Condition, err)
			}

			continue
		}

		if ok {
			return ct.To, true
		}
	}

	var zero S

	return zero, false
}

// ShouldTransitionFromAge returns the age destination once the state has
// been current for strictly longer than its max age at now.
func (s *State[S, T, B]) ShouldTransitionFromAge(now time.Time) (S, bool) {
	if s.age == nil || now.Sub(s.enteredAt) <= s.age.MaxAge {
		var zero S

		return zero, false
	}

	return s.age.To, true
}

// ValidateTransitions reports whether no trigger or conditional transition
// targets this state.
func (s *State[S, T, B]) ValidateTransitions() bool {
	for _, to := range s.triggers {
		if to == s.value {
			return false
		}
	}

	for _, ct := range s.conditions {
		if ct.To == s.value {
			return false
		}
	}

	return true
}

// RegisterOnEnter adds a handler fired when the state is entered.
func (s *State[S, T, B]) RegisterOnEnter(h Handler[S, T, B]) Subscription {
	if s.onEnter == nil {
		s.onEnter = &Notifier[Event[S, T, B]]{}
	}

	return s.onEnter.Subscribe(h)
}

// RegisterOnExit adds a handler fired when the state is left.
func (s *State[S, T, B]) RegisterOnExit(h Handler[S, T, B]) Subscription {
	if s.onExit == nil {
		s.onExit = &Notifier[Event[S, T, B]]{}
	}

	return s.onExit.Subscribe(h)
}

// RegisterOnUpdate adds a handler fired when an Update leaves the state unchanged.
func (s *State[S, T, B]) RegisterOnUpdate(h Handler[S, T, B]) Subscription {
	if s.onUpdate == nil {
		s.onUpdate = &Notifier[Event[S, T, B]]{}
	}

	return s.onUpdate.Subscribe(h)
}

func (s *State[S, T, B]) UnregisterOnEnter(sub Subscription) bool {
	return s.onEnter != nil && s.onEnter.Unsubscribe(sub)
}

func (s *State[S, T, B]) UnregisterOnExit(sub Subscription) bool {
	return s.onExit != nil && s.onExit.Unsubscribe(sub)
}

func (s *State[S, T, B]) UnregisterOnUpdate(sub Subscription) bool {
	return s.onUpdate != nil && s.onUpdate.Unsubscribe(sub)
}

func (s *State[S, T, B]) fireEnter(ctx context.Context, ev Event[S, T, B]) {
	s.onEnter.Notify(ctx, ev)
}

func (s *State[S, T, B]) fireExit(ctx context.Context, ev Event[S, T, B]) {
	s.onExit.Notify(ctx, ev)
}

func (s *State[S, T, B]) fireUpdate(ctx context.Context, ev Event[S, T, B]) {
	s.onUpdate.Notify(ctx, ev)
}
