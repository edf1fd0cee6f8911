package validator

import (
	"errors"
	"fmt"

	"github.com/amp-labs/fsm/statemachine"
)

var (
	// ErrStateNotFound is returned when a fix names a state the definition lacks.
	ErrStateNotFound = errors.New("state not found")
	// ErrStateAlreadyExists is returned when adding a state that is already defined.
	ErrStateAlreadyExists = errors.New("state already exists")
	// ErrConditionNotFound is returned when removing a condition that isn't there.
	ErrConditionNotFound = errors.New("condition not found")
	// ErrNothingToFix is returned when a fix finds nothing to change.
	ErrNothingToFix = errors.New("nothing to fix")
)

// Fix represents an automatic fix for a validation issue.
type Fix struct {
	Description string
	Apply       func(def *statemachine.Definition) error
}

// AddMissingState creates a fix that adds an empty state.
func AddMissingState(name string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Add state '%s'", name),
		Apply: func(def *statemachine.Definition) error {
			if _, ok := def.States[name]; ok {
				return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, name)
			}

			if def.States == nil {
				def.States = make(statemachine.StateMap)
			}

			def.States[name] = statemachine.StateDefinition{}

			return nil
		},
	}
}

// RemoveSelfTransitions creates a fix that drops the trigger and condition
// transitions of a state that point back at it.
func RemoveSelfTransitions(name string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove transitions from '%s' to itself", name),
		Apply: func(def *statemachine.Definition) error {
			st, ok := def.States[name]
			if !ok {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, name)
			}

			removed := 0

			for trigger, to := range st.Transitions {
				if to == name {
					delete(st.Transitions, trigger)

					removed++
				}
			}

			kept := st.SerializedConditionTransitions[:0]
			for _, cond := range st.SerializedConditionTransitions {
				if cond.To == name {
					removed++

					continue
				}

				kept = append(kept, cond)
			}

			if removed == 0 {
				return fmt.Errorf("%w: '%s' has no self-transitions", ErrNothingToFix, name)
			}

			st.SerializedConditionTransitions = kept
			def.States[name] = st

			return nil
		},
	}
}

// RemoveUnreachableState creates a fix that removes a state together with
// every transition that targets it.
func RemoveUnreachableState(name string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable state '%s'", name),
		Apply: func(def *statemachine.Definition) error {
			if _, ok := def.States[name]; !ok {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, name)
			}

			delete(def.States, name)

			for from, st := range def.States {
				for trigger, to := range st.Transitions {
					if to == name {
						delete(st.Transitions, trigger)
					}
				}

				kept := st.SerializedConditionTransitions[:0]
				for _, cond := range st.SerializedConditionTransitions {
					if cond.To != name {
						kept = append(kept, cond)
					}
				}

				st.SerializedConditionTransitions = kept

				if st.AgeTransition != nil && st.AgeTransition.To == name {
					st.AgeTransition = nil
				}

				def.States[from] = st
			}

			return nil
		},
	}
}

// RemoveShadowedCondition creates a fix that drops one condition from a state.
func RemoveShadowedCondition(name, expression string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove condition '%s' from state '%s'", expression, name),
		Apply: func(def *statemachine.Definition) error {
			st, ok := def.States[name]
			if !ok {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, name)
			}

			for i, cond := range st.SerializedConditionTransitions {
				if cond.Expression == expression {
					st.SerializedConditionTransitions = append(
						st.SerializedConditionTransitions[:i:i], st.SerializedConditionTransitions[i+1:]...)
					def.States[name] = st

					return nil
				}
			}

			return fmt.Errorf("%w: '%s' in state '%s'", ErrConditionNotFound, expression, name)
		},
	}
}

// ApplyFixes applies a list of fixes to a definition in order.
func ApplyFixes(def *statemachine.Definition, fixes []*Fix) error {
	for _, fix := range fixes {
		if fix != nil && fix.Apply != nil {
			err := fix.Apply(def)
			if err != nil {
				return fmt.Errorf("failed to apply fix '%s': %w", fix.Description, err)
			}
		}
	}

	return nil
}
