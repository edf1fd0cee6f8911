//nolint:lll // Long validation messages
package validator

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/amp-labs/fsm/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that checks a definition for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(def *statemachine.Definition) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&missingStartingStateRule{},
		&missingCurrentStateRule{},
		&unknownDestinationRule{},
		&selfTransitionRule{},
		&unreachableStateRule{},
		&deadEndStateRule{},
		&shadowedConditionRule{},
	}
}

var (
	registeredMu    sync.RWMutex
	registeredRules []Rule
)

// RegisterRule adds a custom rule that Validate runs after the defaults.
func RegisterRule(rule Rule) {
	registeredMu.Lock()
	defer registeredMu.Unlock()

	registeredRules = append(registeredRules, rule)
}

// RegisteredRules returns the custom rules added with RegisterRule.
func RegisteredRules() []Rule {
	registeredMu.RLock()
	defer registeredMu.RUnlock()

	return slices.Clone(registeredRules)
}

type missingStartingStateRule struct{}

func (r *missingStartingStateRule) Name() string {
	return "MissingStartingState"
}

func (r *missingStartingStateRule) Severity() Severity {
	return SeverityError
}

func (r *missingStartingStateRule) Check(def *statemachine.Definition) RuleResult {
	if _, ok := def.States[def.StartingStateValue]; ok {
		return RuleResult{}
	}

	return RuleResult{Errors: []ValidationError{{
		Code:     "MISSING_STARTING_STATE",
		Message:  fmt.Sprintf("Starting state '%s' is not defined", def.StartingStateValue),
		Location: Location{State: def.StartingStateValue},
		Fix:      AddMissingState(def.StartingStateValue),
	}}}
}

type missingCurrentStateRule struct{}

func (r *missingCurrentStateRule) Name() string {
	return "MissingCurrentState"
}

func (r *missingCurrentStateRule) Severity() Severity {
	return SeverityError
}

func (r *missingCurrentStateRule) Check(def *statemachine.Definition) RuleResult {
	if _, ok := def.States[def.CurrentStateValue]; ok {
		return RuleResult{}
	}

	return RuleResult{Errors: []ValidationError{{
		Code:     "MISSING_CURRENT_STATE",
		Message:  fmt.Sprintf("Current state '%s' is not defined", def.CurrentStateValue),
		Location: Location{State: def.CurrentStateValue},
		Fix:      AddMissingState(def.CurrentStateValue),
	}}}
}

// unknownDestinationRule reports transitions to states the definition
// does not contain. Each missing destination is reported once.
type unknownDestinationRule struct{}

func (r *unknownDestinationRule) Name() string {
	return "UnknownDestination"
}

func (r *unknownDestinationRule) Severity() Severity {
	return SeverityError
}

func (r *unknownDestinationRule) Check(def *statemachine.Definition) RuleResult {
	var errors []ValidationError

	reported := make(map[string]bool)

	for _, name := range def.StateNames() {
		for _, to := range def.States[name].Destinations() {
			if _, ok := def.States[to]; ok || reported[to] {
				continue
			}

			reported[to] = true

			errors = append(errors, ValidationError{
				Code:     "UNKNOWN_DESTINATION",
				Message:  fmt.Sprintf("State '%s' transitions to undefined state '%s'", name, to),
				Location: Location{State: name},
				Fix:      AddMissingState(to),
			})
		}
	}

	return RuleResult{Errors: errors}
}

// selfTransitionRule reports trigger and condition transitions that target
// their own state. Age transitions may.
type selfTransitionRule struct{}

func (r *selfTransitionRule) Name() string {
	return "SelfTransition"
}

func (r *selfTransitionRule) Severity() Severity {
	return SeverityError
}

func (r *selfTransitionRule) Check(def *statemachine.Definition) RuleResult {
	var errors []ValidationError

	for _, name := range def.StateNames() {
		st := def.States[name]

		var via []string

		for _, trigger := range st.Transitions.Triggers() {
			if st.Transitions[trigger] == name {
				via = append(via, "trigger '"+trigger+"'")
			}
		}

		for _, cond := range st.SerializedConditionTransitions {
			if cond.To == name {
				via = append(via, "condition '"+cond.Expression+"'")
			}
		}

		if len(via) == 0 {
			continue
		}

		errors = append(errors, ValidationError{
			Code:     "SELF_TRANSITION",
			Message:  fmt.Sprintf("State '%s' transitions to itself via %s", name, strings.Join(via, ", ")),
			Location: Location{State: name},
			Fix:      RemoveSelfTransitions(name),
		})
	}

	return RuleResult{Errors: errors}
}

// unreachableStateRule finds states that cannot be reached from the
// starting state or the current state.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *unreachableStateRule) Check(def *statemachine.Definition) RuleResult {
	var warnings []ValidationWarning

	reachable := make(map[string]bool)
	queue := []string{def.StartingStateValue, def.CurrentStateValue}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if reachable[current] {
			continue
		}

		reachable[current] = true

		queue = append(queue, def.States[current].Destinations()...)
	}

	for _, name := range def.StateNames() {
		if reachable[name] {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "UNREACHABLE_STATE",
			Message:  fmt.Sprintf("State '%s' cannot be reached from starting state '%s'", name, def.StartingStateValue),
			Location: Location{State: name},
			Fix:      RemoveUnreachableState(name),
		})
	}

	return RuleResult{Warnings: warnings}
}

// deadEndStateRule flags states with no way out. Terminal states are
// legitimate, so this is only a warning.
type deadEndStateRule struct{}

func (r *deadEndStateRule) Name() string {
	return "DeadEndState"
}

func (r *deadEndStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *deadEndStateRule) Check(def *statemachine.Definition) RuleResult {
	var warnings []ValidationWarning

	for _, name := range def.StateNames() {
		if len(def.States[name].Destinations()) > 0 {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "DEAD_END_STATE",
			Message:  fmt.Sprintf("State '%s' has no outgoing transitions; only Reset can leave it", name),
			Location: Location{State: name},
		})
	}

	return RuleResult{Warnings: warnings}
}

// shadowedConditionRule flags conditions that can never be chosen because
// an earlier condition is the literal true or has the same expression.
type shadowedConditionRule struct{}

func (r *shadowedConditionRule) Name() string {
	return "ShadowedCondition"
}

func (r *shadowedConditionRule) Severity() Severity {
	return SeverityWarning
}

func (r *shadowedConditionRule) Check(def *statemachine.Definition) RuleResult {
	var warnings []ValidationWarning

	for _, name := range def.StateNames() {
		conds := def.States[name].SerializedConditionTransitions
		seen := make(map[string]string, len(conds))
		always := ""

		for _, cond := range conds {
			key := normalizeExpression(cond.Expression)

			var shadow string

			switch prev, dup := seen[key]; {
			case always != "":
				shadow = always
			case dup:
				shadow = prev
			}

			if shadow != "" {
				warnings = append(warnings, ValidationWarning{
					Code:     "SHADOWED_CONDITION",
					Message:  fmt.Sprintf("Condition '%s' in state '%s' is never chosen because '%s' comes first", cond.Expression, name, shadow),
					Location: Location{State: name},
					Fix:      RemoveShadowedCondition(name, cond.Expression),
				})

				continue
			}

			seen[key] = cond.Expression

			if alwaysTrue(cond.Expression) {
				always = cond.Expression
			}
		}
	}

	return RuleResult{Warnings: warnings}
}

func normalizeExpression(src string) string {
	return strings.Join(strings.Fields(src), "")
}

// alwaysTrue reports whether src parses to the literal true.
func alwaysTrue(src string) bool {
	tree, err := parser.Parse(src)
	if err != nil {
		return false
	}

	b, ok := tree.Node.(*ast.BoolNode)

	return ok && b.Value
}
