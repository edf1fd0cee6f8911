package statemachine

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"
)

// Definition is the serialized form of a machine.
type Definition struct {
	Name               string   `json:"name,omitempty"      yaml:"name,omitempty"`
	MachineID          string   `json:"machineID,omitempty" yaml:"machineID,omitempty"`
	StartingStateValue string   `json:"startingStateValue"  yaml:"startingStateValue"`
	CurrentStateValue  string   `json:"currentStateValue"   yaml:"currentStateValue"`
	States             StateMap `json:"states"              yaml:"states"`
	Checksum           string   `json:"checksum,omitempty"  yaml:"checksum,omitempty"`
}

// StateDefinition holds the outgoing transitions of one state.
type StateDefinition struct {
	Transitions                    TriggerMap     `json:"transitions,omitempty"                    yaml:"transitions,omitempty"`
	SerializedConditionTransitions ConditionList  `json:"serializedConditionTransitions,omitempty" yaml:"serializedConditionTransitions,omitempty"`
	AgeTransition                  *AgeDefinition `json:"ageTransition,omitempty"                  yaml:"ageTransition,omitempty"`
}

// AgeDefinition is the serialized form of an age transition. MaxAge uses
// time.ParseDuration syntax.
type AgeDefinition struct {
	MaxAge string `json:"maxAge" yaml:"maxAge"`
	To     string `json:"to"     yaml:"to"`
}

// StateMap maps encoded state values to their definitions. It is written
// in natural key order.
type StateMap map[string]StateDefinition

// TriggerMap maps encoded triggers to encoded destinations. It is written
// in natural key order.
type TriggerMap map[string]string

// ConditionDefinition is one conditional transition.
type ConditionDefinition struct {
	Expression string
	To         string
}

// ConditionList is an ordered list of conditional transitions, written as
// a mapping from expression to destination.
type ConditionList []ConditionDefinition

// StateNames returns the state keys in natural order.
func (d *Definition) StateNames() []string {
	return sortedKeys(d.States)
}

// Triggers returns the trigger keys in natural order.
func (m TriggerMap) Triggers() []string {
	return sortedKeys(m)
}

// Destinations returns every destination referenced by the state, in
// trigger, condition, age order.
func (s StateDefinition) Destinations() []string {
	out := make([]string, 0, len(s.Transitions)+len(s.SerializedConditionTransitions)+1)
	for _, k := range sortedKeys(s.Transitions) {
		out = append(out, s.Transitions[k])
	}

	for _, c := range s.SerializedConditionTransitions {
		out = append(out, c.To)
	}

	if s.AgeTransition != nil {
		out = append(out, s.AgeTransition.To)
	}

	return out
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	out := *d
	out.States = make(StateMap, len(d.States))

	for name, st := range d.States {
		cp := StateDefinition{}

		if st.Transitions != nil {
			cp.Transitions = make(TriggerMap, len(st.Transitions))
			for k, v := range st.Transitions {
				cp.Transitions[k] = v
			}
		}

		if st.SerializedConditionTransitions != nil {
			cp.SerializedConditionTransitions = append(ConditionList(nil), st.SerializedConditionTransitions...)
		}

		if st.AgeTransition != nil {
			age := *st.AgeTransition
			cp.AgeTransition = &age
		}

		out.States[name] = cp
	}

	return &out
}

// Marshal writes the definition as YAML with a fresh checksum. The
// checksum covers exactly the bytes written before the checksum line.
func (d *Definition) Marshal() ([]byte, error) {
	data, err := d.canonical()
	if err != nil {
		return nil, err
	}

	tail, err := yaml.Marshal(map[string]string{"checksum": checksumOf(data)})
	if err != nil {
		return nil, err
	}

	return append(data, tail...), nil
}

// VerifyChecksum checks a present checksum against the definition's content.
// Definitions without a checksum pass.
func (d *Definition) VerifyChecksum() error {
	if d.Checksum == "" {
		return nil
	}

	sum, err := d.computeChecksum()
	if err != nil {
		return err
	}

	if sum != d.Checksum {
		return fmt.Errorf("%w: document has %s, content hashes to %s", ErrChecksumMismatch, d.Checksum, sum)
	}

	return nil
}

// canonical is the document without its checksum.
func (d *Definition) canonical() ([]byte, error) {
	out := *d
	out.Checksum = ""

	return yaml.Marshal(&out)
}

func (d *Definition) computeChecksum() (string, error) {
	data, err := d.canonical()
	if err != nil {
		return "", err
	}

	return checksumOf(data), nil
}

func checksumOf(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// ParseDefinition decodes a YAML document. Unknown fields, duplicate
// conditions and checksum mismatches are parse errors.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&def); err != nil {
		return nil, parseError("", err)
	}

	if err := def.VerifyChecksum(); err != nil {
		return nil, parseError("checksum", err)
	}

	return &def, nil
}

func (m StateMap) MarshalYAML() (any, error) {
	return mappingNode(sortedKeys(m), func(key string) (*yaml.Node, error) {
		node := &yaml.Node{}
		if err := node.Encode(m[key]); err != nil {
			return nil, err
		}

		return node, nil
	})
}

func (m TriggerMap) MarshalYAML() (any, error) {
	return mappingNode(sortedKeys(m), func(key string) (*yaml.Node, error) {
		return scalarNode(m[key]), nil
	})
}

func (l ConditionList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	seen := make(map[string]struct{}, len(l))

	for _, c := range l {
		if _, dup := seen[c.Expression]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCondition, c.Expression)
		}

		seen[c.Expression] = struct{}{}
		node.Content = append(node.Content, scalarNode(c.Expression), scalarNode(c.To))
	}

	return node, nil
}

func (l *ConditionList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: serializedConditionTransitions must be a mapping", value.Line)
	}

	out := make(ConditionList, 0, len(value.Content)/2)
	seen := make(map[string]struct{}, len(value.Content)/2)

	for i := 0; i+1 < len(value.Content); i += 2 {
		var expression, to string

		if err := value.Content[i].Decode(&expression); err != nil {
			return err
		}

		if err := value.Content[i+1].Decode(&to); err != nil {
			return err
		}

		if _, dup := seen[expression]; dup {
			return fmt.Errorf("line %d: %w: %q", value.Content[i].Line, ErrDuplicateCondition, expression)
		}

		seen[expression] = struct{}{}
		out = append(out, ConditionDefinition{Expression: expression, To: to})
	}

	*l = out

	return nil
}

func mappingNode(keys []string, value func(key string) (*yaml.Node, error)) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, key := range keys {
		v, err := value(key)
		if err != nil {
			return nil, err
		}

		node.Content = append(node.Content, scalarNode(key), v)
	}

	return node, nil
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, naturalCompare)

	return keys
}

// naturalCompare orders keys naturally and falls back to byte order for
// keys natsort considers equal, such as "s1" and "s01".
func naturalCompare(a, b string) int {
	less, greater := natsort.Compare(a, b), natsort.Compare(b, a)

	switch {
	case less && !greater:
		return -1
	case greater && !less:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
