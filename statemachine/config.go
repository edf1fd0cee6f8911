package statemachine

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
)

// LoadDefinition reads and parses a definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %q: %w", path, err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromBytes parses a definition from YAML bytes.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	return ParseDefinition(data)
}

// LoadDefinitionFromFS loads a definition from a filesystem such as embed.FS.
func LoadDefinitionFromFS(fsys fs.FS, path string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition from FS: %w", err)
	}

	return LoadDefinitionFromBytes(data)
}

// Definition captures the machine's starting and current state values and
// its full transition table. It fails with ErrConditionNotSerializable if
// any conditional transition has no source text.
func (m *Machine[S, T, B]) Definition() (*Definition, error) {
	def := &Definition{
		Name:      m.name,
		MachineID: m.id.String(),
		States:    make(StateMap, len(m.order)),
	}

	var err error

	if def.StartingStateValue, err = m.stateCodec.Encode(m.starting); err != nil {
		return nil, WrapStateError(fmt.Sprint(m.starting), err)
	}

	if def.CurrentStateValue, err = m.stateCodec.Encode(m.current); err != nil {
		return nil, WrapStateError(fmt.Sprint(m.current), err)
	}

	for _, v := range m.order {
		name, err := m.stateCodec.Encode(v)
		if err != nil {
			return nil, WrapStateError(fmt.Sprint(v), err)
		}

		st := m.states[v]
		if st == nil {
			def.States[name] = StateDefinition{}

			continue
		}

		sd, err := m.stateDefinition(st)
		if err != nil {
			return nil, WrapStateError(name, err)
		}

		def.States[name] = sd
	}

	return def, nil
}

func (m *Machine[S, T, B]) stateDefinition(st *State[S, T, B]) (StateDefinition, error) {
	var sd StateDefinition

	for _, tt := range st.Triggers() {
		trigger, err := m.triggerCodec.Encode(tt.Trigger)
		if err != nil {
			return sd, err
		}

		to, err := m.stateCodec.Encode(tt.To)
		if err != nil {
			return sd, err
		}

		if sd.Transitions == nil {
			sd.Transitions = make(TriggerMap)
		}

		sd.Transitions[trigger] = to
	}

	seen := make(map[string]struct{}, len(st.conditions))

	for _, ct := range st.conditions {
		sc, ok := ct.Condition.(SerializableCondition[B])
		if !ok {
			return sd, ErrConditionNotSerializable
		}

		if _, dup := seen[sc.Source()]; dup {
			return sd, fmt.Errorf("%w: %w: %q", ErrConditionNotSerializable, ErrDuplicateCondition, sc.Source())
		}

		seen[sc.Source()] = struct{}{}

		to, err := m.stateCodec.Encode(ct.To)
		if err != nil {
			return sd, err
		}

		sd.SerializedConditionTransitions = append(sd.SerializedConditionTransitions,
			ConditionDefinition{Expression: sc.Source(), To: to})
	}

	if st.age != nil {
		to, err := m.stateCodec.Encode(st.age.To)
		if err != nil {
			return sd, err
		}

		sd.AgeTransition = &AgeDefinition{MaxAge: st.age.MaxAge.String(), To: to}
	}

	return sd, nil
}

// Serialize writes the machine as a YAML document.
func (m *Machine[S, T, B]) Serialize() ([]byte, error) {
	def, err := m.Definition()
	if err != nil {
		return nil, err
	}

	return def.Marshal()
}

// Deserialize rebuilds a machine from a document written by Serialize.
// Malformed input fails with a *ParseError and never yields a machine.
// A well-formed document is loaded as-is even if it references unknown
// states; call ValidateFiniteStateMachine afterwards.
func Deserialize[S comparable, T comparable, B any](data []byte, opts ...Option) (*Machine[S, T, B], error) {
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}

	return FromDefinition[S, T, B](def, opts...)
}

// FromDefinition builds a machine from a parsed definition. The name and
// machine ID in the definition are applied before opts, so opts may
// override them.
func FromDefinition[S comparable, T comparable, B any](def *Definition, opts ...Option) (*Machine[S, T, B], error) {
	var pre []Option

	if def.Name != "" {
		pre = append(pre, WithName(def.Name))
	}

	if def.MachineID != "" {
		id, err := uuid.Parse(def.MachineID)
		if err != nil {
			return nil, parseError("machineID", err)
		}

		pre = append(pre, WithID(id))
	}

	// The codecs come from the options, so build the machine first and
	// fill in its state values once they decode.
	m := New[S, T, B](*new(S), append(pre, opts...)...)

	starting, err := m.stateCodec.Decode(def.StartingStateValue)
	if err != nil {
		return nil, parseError("startingStateValue", err)
	}

	current, err := m.stateCodec.Decode(def.CurrentStateValue)
	if err != nil {
		return nil, parseError("currentStateValue", err)
	}

	m.starting = starting
	m.current = current

	for _, name := range def.StateNames() {
		v, err := m.stateCodec.Decode(name)
		if err != nil {
			return nil, parseError("states."+name, err)
		}

		st := NewState[S, T, B](v)
		if err := m.loadState(st, name, def.States[name]); err != nil {
			return nil, err
		}

		_ = m.AddCustomState(v, st)
	}

	return m, nil
}

func (m *Machine[S, T, B]) loadState(st *State[S, T, B], name string, sd StateDefinition) error {
	path := "states." + name

	for _, trigger := range sortedKeys(sd.Transitions) {
		t, err := m.triggerCodec.Decode(trigger)
		if err != nil {
			return parseError(path+".transitions."+trigger, err)
		}

		to, err := m.stateCodec.Decode(sd.Transitions[trigger])
		if err != nil {
			return parseError(path+".transitions."+trigger, err)
		}

		st.AddTrigger(t, to)
	}

	for i, cd := range sd.SerializedConditionTransitions {
		cond, err := Compile[B](cd.Expression)
		if err != nil {
			return parseError(fmt.Sprintf("%s.serializedConditionTransitions[%d]", path, i), err)
		}

		to, err := m.stateCodec.Decode(cd.To)
		if err != nil {
			return parseError(fmt.Sprintf("%s.serializedConditionTransitions[%d]", path, i), err)
		}

		st.AddCondition(cond, to)
	}

	if sd.AgeTransition != nil {
		maxAge, err := time.ParseDuration(sd.AgeTransition.MaxAge)
		if err != nil {
			return parseError(path+".ageTransition.maxAge", err)
		}

		to, err := m.stateCodec.Decode(sd.AgeTransition.To)
		if err != nil {
			return parseError(path+".ageTransition.to", err)
		}

		st.SetAgeTransition(maxAge, to)
	}

	return nil
}
