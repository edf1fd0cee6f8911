package statemachine

import (
	fsmerrors "github.com/amp-labs/fsm/errors"
	"github.com/amp-labs/fsm/logger"
)

// ValidateContainsAllStates reports whether every value declared with
// WithStateDomain has a registered State. Machines without a declared
// domain always pass; a domain that could not be applied never does.
func (m *Machine[S, T, B]) ValidateContainsAllStates() bool {
	if m.domainErr != nil {
		return false
	}

	for _, v := range m.domain {
		if !m.ContainsState(v) {
			return false
		}
	}

	return true
}

// ValidateFiniteStateMachine reports whether Validate finds no problems.
func (m *Machine[S, T, B]) ValidateFiniteStateMachine() bool {
	return m.Validate() == nil
}

// Validate checks that every option fit the machine's types, that the
// declared state domain is fully registered, that no registered value is
// backed by a nil State, and that no trigger or conditional transition
// targets its own state. All problems are
// returned joined together. Validation is advisory: nothing else in the
// machine depends on it.
func (m *Machine[S, T, B]) Validate() error {
	var errs fsmerrors.Collection

	errs.AddAll(m.optionErrs...)

	for _, v := range m.domain {
		if !m.ContainsState(v) {
			errs.Add(WrapStateError(m.label(v), ErrMissingDomainState))
		}
	}

	for _, v := range m.order {
		st := m.states[v]
		if st == nil {
			errs.Add(WrapStateError(m.label(v), ErrNilState))

			continue
		}

		if st.ValidateTransitions() {
			continue
		}

		for _, tt := range st.Triggers() {
			if tt.To == v {
				errs.Add(WrapTransitionError(m.label(v), m.label(tt.To),
					logger.AnnotateError(ErrSelfTransition, "trigger", m.triggerLabel(tt.Trigger))))
			}
		}

		for _, ct := range st.conditions {
			if ct.To == v {
				errs.Add(WrapTransitionError(m.label(v), m.label(ct.To),
					logger.AnnotateError(ErrSelfTransition, "condition", conditionLabel(ct.Condition))))
			}
		}
	}

	return errs.GetError()
}
