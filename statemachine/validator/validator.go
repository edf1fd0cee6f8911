// Package validator reports structural problems in machine definitions
// and offers fixes for the ones that can be repaired mechanically.
package validator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/amp-labs/fsm/statemachine"
)

// ValidationResult contains the results of validating a definition.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with an optional fix.
type ValidationError struct {
	Code     string   // Error code like "SELF_TRANSITION", "UNKNOWN_DESTINATION"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
	Fix      *Fix
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message string // Suggestion description
	Example string // Document snippet showing the improvement
}

// Location identifies where an issue occurred.
type Location struct {
	File  string // Definition file path
	Line  int    // Line number (0 if unknown)
	State string // State name if applicable
}

// Validate runs the default rules and any registered rules against def.
func Validate(def *statemachine.Definition) ValidationResult {
	return ValidateWithRules(def, append(DefaultRules(), RegisteredRules()...))
}

// ValidateStrict is like Validate but treats warnings as errors.
func ValidateStrict(def *statemachine.Definition) ValidationResult {
	return ValidateWithRulesStrict(def, append(DefaultRules(), RegisteredRules()...))
}

// ValidateFile loads a definition from a file and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict loads a definition from a file and validates it in strict mode.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

// ValidateFileWithOptions loads a definition from a file and validates it.
// Issues tied to a state carry the line of that state's key.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var def *statemachine.Definition

		def, err = statemachine.LoadDefinitionFromBytes(data)
		if err == nil {
			return locate(validate(def, strict), path, stateLines(data)), nil
		}
	}

	return ValidationResult{
		Valid: false,
		Errors: []ValidationError{
			{
				Code:     "DEFINITION_LOAD_FAILED",
				Message:  fmt.Sprintf("Failed to load definition: %v", err),
				Location: Location{File: path},
			},
		},
	}, err
}

func validate(def *statemachine.Definition, strict bool) ValidationResult {
	if strict {
		return ValidateStrict(def)
	}

	return Validate(def)
}

func locate(result ValidationResult, path string, lines map[string]int) ValidationResult {
	for i := range result.Errors {
		loc := &result.Errors[i].Location
		if loc.File == "" {
			loc.File = path
		}

		if loc.Line == 0 {
			loc.Line = lines[loc.State]
		}
	}

	for i := range result.Warnings {
		loc := &result.Warnings[i].Location
		if loc.File == "" {
			loc.File = path
		}

		if loc.Line == 0 {
			loc.Line = lines[loc.State]
		}
	}

	return result
}

// stateLines maps each state key under "states" to its line in data.
func stateLines(data []byte) map[string]int {
	lines := make(map[string]int)

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return lines
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return lines
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "states" || root.Content[i+1].Kind != yaml.MappingNode {
			continue
		}

		states := root.Content[i+1]
		for j := 0; j+1 < len(states.Content); j += 2 {
			lines[states.Content[j].Value] = states.Content[j].Line
		}
	}

	return lines
}

// ValidateWithRules validates using the given rules only.
func ValidateWithRules(def *statemachine.Definition, rules []Rule) ValidationResult {
	var result ValidationResult

	result.Valid = true

	for _, rule := range rules {
		ruleResult := rule.Check(def)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	result.Suggestions = generateSuggestions(def)

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(def *statemachine.Definition, rules []Rule) ValidationResult {
	result := ValidateWithRules(def, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

func generateSuggestions(def *statemachine.Definition) []Suggestion {
	var suggestions []Suggestion

	for _, name := range def.StateNames() {
		if name != strings.ToLower(name) || strings.ContainsAny(name, " -") {
			suggestions = append(suggestions, Suggestion{
				Message: "Consider using snake_case for state names for consistency",
				Example: `states:
  waiting_for_input:  # Good
    # instead of: waitingForInput, Waiting-For-Input`,
			})

			break
		}
	}

	if def.Checksum == "" {
		suggestions = append(suggestions, Suggestion{
			Message: "Write definitions with Definition.Marshal so they carry a checksum",
			Example: `checksum: 9c1185a5c5e9fc54  # verified on load`,
		})
	}

	return suggestions
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Codes returns the codes of all errors followed by all warnings.
func (r ValidationResult) Codes() []string {
	codes := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, err := range r.Errors {
		codes = append(codes, err.Code)
	}

	for _, warn := range r.Warnings {
		codes = append(codes, warn.Code)
	}

	return codes
}

// Fixes returns every fix attached to an error or warning, errors first.
func (r ValidationResult) Fixes() []*Fix {
	var fixes []*Fix

	for _, err := range r.Errors {
		if err.Fix != nil {
			fixes = append(fixes, err.Fix)
		}
	}

	for _, warn := range r.Warnings {
		if warn.Fix != nil {
			fixes = append(fixes, warn.Fix)
		}
	}

	return fixes
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ Definition is valid\n")
	} else {
		fmt.Fprintf(&sb, "✗ Definition has %d error(s)\n", len(r.Errors))
	}

	for _, err := range r.Errors {
		fmt.Fprintf(&sb, "  [%s] %s", err.Code, err.Message)

		if err.Location.State != "" {
			fmt.Fprintf(&sb, " (state: %s)", err.Location.State)
		}

		sb.WriteString("\n")

		if err.Fix != nil {
			fmt.Fprintf(&sb, "    Fix: %s\n", err.Fix.Description)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n⚠ %d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s\n", warn.Code, warn.Message)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&sb, "\n%d suggestion(s) for improvement\n", len(r.Suggestions))
	}

	return sb.String()
}
