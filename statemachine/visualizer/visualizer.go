// Package visualizer renders machine definitions as Mermaid state diagrams.
package visualizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/amp-labs/fsm/statemachine"
)

// Visualizer errors.
var (
	ErrDefinitionNil    = errors.New("definition cannot be nil")
	ErrNoStartingState  = errors.New("definition must have a starting state")
	ErrInvalidDirection = errors.New("invalid diagram direction")
)

var (
	validDirections = map[string]bool{"TB": true, "TD": true, "BT": true, "LR": true, "RL": true}
	labelReplacer   = strings.NewReplacer(`"`, "#quot;", ":", "#58;", "\n", " ", "\r", " ")
)

// GenerateMermaid converts a Definition to a Mermaid state diagram.
func GenerateMermaid(def *statemachine.Definition) (string, error) {
	return GenerateMermaidWithOptions(def, DefaultOptions())
}

// GenerateMermaidFromFile loads a definition from a file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return "", fmt.Errorf("failed to load definition: %w", err)
	}

	return GenerateMermaid(def)
}

// Definer is anything that can describe itself as a Definition, such as a
// *statemachine.Machine.
type Definer interface {
	Definition() (*statemachine.Definition, error)
}

// GenerateMermaidFromMachine renders a live machine.
func GenerateMermaidFromMachine(m Definer, opts Options) (string, error) {
	def, err := m.Definition()
	if err != nil {
		return "", fmt.Errorf("failed to describe machine: %w", err)
	}

	return GenerateMermaidWithOptions(def, opts)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
func GenerateMermaidWithOptions(def *statemachine.Definition, opts Options) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	if def.StartingStateValue == "" {
		return "", ErrNoStartingState
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TB"
	}

	if !validDirections[direction] {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	ids := newIDs()
	names := def.StateNames()

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", direction)

	for _, name := range names {
		if id := ids.get(name); id != name {
			fmt.Fprintf(&sb, "    state \"%s\" as %s\n", escapeLabel(name), id)
		}
	}

	fmt.Fprintf(&sb, "    [*] --> %s\n", ids.get(def.StartingStateValue))

	highlight := make(map[string]bool, len(opts.HighlightPath))
	for _, state := range opts.HighlightPath {
		highlight[state] = true
	}

	for _, name := range names {
		st := def.States[name]
		from := ids.get(name)

		for _, trigger := range st.Transitions.Triggers() {
			writeEdge(&sb, from, ids.get(st.Transitions[trigger]), opts.ShowTriggers, trigger)
		}

		for _, cond := range st.SerializedConditionTransitions {
			writeEdge(&sb, from, ids.get(cond.To), opts.ShowConditions, "["+cond.Expression+"]")
		}

		if st.AgeTransition != nil && opts.ShowAgeTransitions {
			writeEdge(&sb, from, ids.get(st.AgeTransition.To), true, "after "+st.AgeTransition.MaxAge)
		}

		if len(st.Destinations()) == 0 {
			fmt.Fprintf(&sb, "    %s --> [*]\n", from)
		}
	}

	sb.WriteString("\n")

	for _, name := range names {
		id := ids.get(name)

		switch {
		case highlight[name]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", id)
		case opts.MarkCurrent && name == def.CurrentStateValue:
			fmt.Fprintf(&sb, "    class %s current\n", id)
		case len(def.States[name].Destinations()) == 0:
			fmt.Fprintf(&sb, "    class %s deadEnd\n", id)
		}
	}

	sb.WriteString("    classDef current fill:#e1f5ff,stroke:#01579b,stroke-width:2px\n")
	sb.WriteString("    classDef deadEnd fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	sb.WriteString("```\n")

	return sb.String(), nil
}

func writeEdge(sb *strings.Builder, from, to string, labelled bool, label string) {
	if labelled && label != "" {
		fmt.Fprintf(sb, "    %s --> %s: %s\n", from, to, escapeLabel(label))

		return
	}

	fmt.Fprintf(sb, "    %s --> %s\n", from, to)
}

func escapeLabel(s string) string {
	return labelReplacer.Replace(s)
}

// ids assigns every state name a stable Mermaid identifier. Names are
// reduced to ASCII letters, digits and underscores; collisions get a
// numeric suffix.
type ids struct {
	byName map[string]string
	taken  map[string]bool
}

func newIDs() *ids {
	return &ids{
		byName: make(map[string]string),
		taken:  make(map[string]bool),
	}
}

func (i *ids) get(name string) string {
	if id, ok := i.byName[name]; ok {
		return id
	}

	base := sanitizeID(name)
	id := base

	for n := 2; i.taken[id]; n++ {
		id = base + "_" + strconv.Itoa(n)
	}

	i.byName[name] = id
	i.taken[id] = true

	return id
}

// sanitizeID folds accents away (é becomes e) and replaces anything else
// Mermaid would not accept in an identifier.
func sanitizeID(name string) string {
	var sb strings.Builder

	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	id := sb.String()

	switch {
	case id == "":
		return "state"
	case unicode.IsDigit(rune(id[0])):
		return "s_" + id
	default:
		return id
	}
}
