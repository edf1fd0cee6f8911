package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amp-labs/fsm/statemachine"
)

// Door is the state type of the door fixture.
type Door string

// Door states.
const (
	Closed  Door = "closed"
	Halfway Door = "halfway"
	Opened  Door = "opened"
)

// Board is the blackboard type used by the fixtures.
type Board = map[string]any

// NewDoor creates a door with closed, halfway and opened states, the
// open/close triggers between closed and opened, and a "push" condition
// moving closed to halfway once push reaches 5.
func NewDoor(t *testing.T, opts ...statemachine.Option) *TestMachine[Door, string, Board] {
	t.Helper()

	tm := NewTestMachine[Door, string, Board](t, Closed, opts...).WithStates(Closed, Halfway, Opened)

	require.NoError(t, tm.AddTransition(Closed, Opened, "open"))
	require.NoError(t, tm.AddTransition(Opened, Closed, "close"))
	require.NoError(t, tm.AddConditionalTransition(Closed, Halfway,
		statemachine.MustWhen[Board](statemachine.F("push").Gte(5))))

	return tm
}

// NewAgingDoor creates a door that only moves by age:
// closed -2s-> halfway -1s-> opened -2s-> halfway -1s-> closed, where the
// last halfway transition replaces the first.
func NewAgingDoor(t *testing.T, opts ...statemachine.Option) *TestMachine[Door, string, Board] {
	t.Helper()

	tm := NewTestMachine[Door, string, Board](t, Closed, opts...)
	buildAgingDoor(t, tm)

	return tm
}

func buildAgingDoor(t *testing.T, tm *TestMachine[Door, string, Board]) {
	t.Helper()

	tm.WithStates(Closed, Halfway, Opened)

	require.NoError(t, tm.AddAgeTransition(Closed, Halfway, 2*time.Second))
	require.NoError(t, tm.AddAgeTransition(Halfway, Opened, time.Second))
	require.NoError(t, tm.AddAgeTransition(Opened, Halfway, 2*time.Second))
	require.NoError(t, tm.AddAgeTransition(Halfway, Closed, time.Second))
}

// DoorWalkScenario drives the aging door every two seconds: it reaches
// halfway after more than two seconds, then falls back to closed.
func DoorWalkScenario() Scenario[Door, string, Board] {
	return Scenario[Door, string, Board]{
		Name:  "Door Walk",
		Start: Closed,
		Build: buildAgingDoor,
		Steps: []Step[Door, string, Board]{
			{Action: ActionWait, Wait: 2 * time.Second, Want: Closed},
			{Action: ActionWait, Wait: 2 * time.Second, Want: Halfway, Committed: true},
			{Action: ActionWait, Wait: 2 * time.Second, Want: Closed, Committed: true},
		},
		Expect: []Matcher[Door]{
			PathWas(Halfway, Closed),
			TransitionWasCausedBy(Closed, Halfway, statemachine.CauseAge),
		},
	}
}

// LoadTestDefinition loads a definition from the testdata directory.
func LoadTestDefinition(name string) (*statemachine.Definition, error) {
	return statemachine.LoadDefinition(filepath.Join("testdata", name))
}

// SaveTestDefinition writes def, with a checksum, to path.
func SaveTestDefinition(path string, def *statemachine.Definition) error {
	data, err := def.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // Test fixtures
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write definition: %w", err)
	}

	return nil
}
