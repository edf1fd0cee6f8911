package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amp-labs/fsm/logger"
	"github.com/amp-labs/fsm/statemachine"
)

const doorDoc = `name: door
startingStateValue: closed
currentStateValue: closed
states:
  closed:
    transitions:
      open: opened
    serializedConditionTransitions:
      push >= 5: halfway
  halfway:
    ageTransition:
      maxAge: 1s
      to: closed
  opened:
    transitions:
      close: closed
`

const brokenDoc = `name: door
startingStateValue: closed
currentStateValue: closed
states:
  closed:
    transitions:
      open: opened
      climb: attic
  opened:
    transitions:
      close: closed
`

func writeDoc(t *testing.T, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "door.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	return path
}

func newTestApp() (*app, *bytes.Buffer) {
	var out bytes.Buffer

	return &app{stdout: &out, stderr: &bytes.Buffer{}}, &out
}

func testContext() context.Context {
	return logger.WithMuted(context.Background(), true)
}

func TestRun_Dispatch(t *testing.T) {
	t.Parallel()

	a, out := newTestApp()

	require.ErrorIs(t, a.run(testContext(), nil), errUsage)
	require.ErrorIs(t, a.run(testContext(), []string{"paint"}), errUnknownCommand)
	require.NoError(t, a.run(testContext(), []string{"help"}))
	assert.Contains(t, out.String(), "usage: fsmctl")
	require.ErrorIs(t, a.run(testContext(), []string{"render"}), errUsage)
	require.ErrorIs(t, a.run(testContext(), []string{"render", "a.yaml", "b.yaml"}), errUsage)
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	a, out := newTestApp()

	require.NoError(t, a.run(testContext(), []string{"version"}))
	assert.True(t, strings.HasPrefix(out.String(), "fsmctl "))
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	a, out := newTestApp()

	require.NoError(t, a.run(testContext(), []string{"validate", writeDoc(t, doorDoc)}))
	assert.Contains(t, out.String(), "✓ Definition is valid")
}

func TestValidate_Invalid(t *testing.T) {
	t.Parallel()

	a, out := newTestApp()

	err := a.run(testContext(), []string{"validate", writeDoc(t, brokenDoc)})
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out.String(), "[UNKNOWN_DESTINATION]")
}

func TestValidate_MissingFile(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp()

	err := a.run(testContext(), []string{"validate", filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	require.NotErrorIs(t, err, errInvalid)
}

func TestValidate_Fix(t *testing.T) {
	t.Parallel()

	a, out := newTestApp()
	in := writeDoc(t, brokenDoc)
	target := filepath.Join(t.TempDir(), "fixed.yaml")

	require.NoError(t, a.run(testContext(), []string{"validate", "-fix", "-yes", "-o", target, in}))
	assert.Contains(t, out.String(), "After 1 fix(es)")
	assert.Contains(t, out.String(), "Wrote "+target)

	def, err := statemachine.LoadDefinition(target)
	require.NoError(t, err)
	assert.Contains(t, def.States, "attic")
	assert.NotEmpty(t, def.Checksum)

	// The input is untouched when -o is given.
	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, brokenDoc, string(orig))
}

func TestValidate_FixInPlace(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp()
	in := writeDoc(t, brokenDoc)

	require.NoError(t, a.run(testContext(), []string{"validate", "-fix", "-yes", in}))

	def, err := statemachine.LoadDefinition(in)
	require.NoError(t, err)
	assert.Contains(t, def.States, "attic")

	entries, err := os.ReadDir(filepath.Dir(in))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be gone")
}

func TestRender(t *testing.T) {
	t.Parallel()

	a, out := newTestApp()
	path := writeDoc(t, doorDoc)

	require.NoError(t, a.run(testContext(), []string{"render", "-direction", "LR", "-highlight", "closed, opened", path}))

	diagram := out.String()
	assert.True(t, strings.HasPrefix(diagram, "```mermaid\n"))
	assert.Contains(t, diagram, "direction LR")
	assert.Contains(t, diagram, "closed --> opened: open")
	assert.Contains(t, diagram, "class closed highlighted")
	assert.Contains(t, diagram, "class opened highlighted")
}

func TestRender_HidesEdges(t *testing.T) {
	t.Parallel()

	a, out := newTestApp()
	path := writeDoc(t, doorDoc)

	require.NoError(t, a.run(testContext(), []string{"render", "-no-age", "-no-triggers", path}))
	assert.NotContains(t, out.String(), "after 1s")
	assert.NotContains(t, out.String(), "opened: open")
}

func TestRender_BadDirection(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp()

	require.Error(t, a.run(testContext(), []string{"render", "-direction", "up", writeDoc(t, doorDoc)}))
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}

func TestParseAssignments(t *testing.T) {
	t.Parallel()

	bb, err := parseAssignments("push=5 open=true who=bob ratio=0.5")
	require.NoError(t, err)
	assert.Equal(t, board{"push": 5, "open": true, "who": "bob", "ratio": 0.5}, bb)

	bb, err = parseAssignments("   ")
	require.NoError(t, err)
	assert.Empty(t, bb)

	_, err = parseAssignments("push")
	require.ErrorIs(t, err, errBadAssignment)

	_, err = parseAssignments("=5")
	require.ErrorIs(t, err, errBadAssignment)
}

func TestSession(t *testing.T) {
	t.Parallel()

	def, err := statemachine.LoadDefinitionFromBytes([]byte(doorDoc))
	require.NoError(t, err)

	var out bytes.Buffer

	ctx := testContext()
	sess, err := newSession(ctx, def, &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"fire open", actionUpdate, actionWait, actionReset, actionQuit}, sess.actions())
	assert.Contains(t, sess.describe(), "state: closed")

	require.NoError(t, sess.update(ctx, board{"push": 2}))
	assert.Contains(t, out.String(), "no condition matched")
	assert.Equal(t, "closed", sess.machine.CurrentStateValue())

	require.NoError(t, sess.update(ctx, board{"push": 7}))
	assert.Equal(t, "halfway", sess.machine.CurrentStateValue())
	assert.Contains(t, out.String(), "→ closed -> halfway (condition)")
	assert.Contains(t, sess.describe(), "leaves for closed after 1s")
	assert.Contains(t, sess.describe(), "blackboard: map[push:7]")

	require.NoError(t, sess.wait(ctx, time.Second))
	assert.Equal(t, "halfway", sess.machine.CurrentStateValue(), "age is exclusive")

	require.NoError(t, sess.wait(ctx, time.Millisecond))
	assert.Equal(t, "closed", sess.machine.CurrentStateValue())

	require.NoError(t, sess.fire(ctx, "close"))
	assert.Contains(t, out.String(), `trigger "close" did nothing`)

	require.NoError(t, sess.fire(ctx, "open"))
	assert.Equal(t, "opened", sess.machine.CurrentStateValue())
	assert.Contains(t, out.String(), `→ closed -> opened (trigger "open")`)

	sess.reset(ctx)
	assert.Equal(t, "closed", sess.machine.CurrentStateValue())

	sess.reset(ctx)
	assert.Contains(t, out.String(), "already at the starting state")
}

func TestPerform(t *testing.T) {
	t.Parallel()

	def, err := statemachine.LoadDefinitionFromBytes([]byte(doorDoc))
	require.NoError(t, err)

	a, out := newTestApp()
	ctx := testContext()

	sess, err := newSession(ctx, def, out)
	require.NoError(t, err)

	require.NoError(t, a.perform(ctx, sess, "fire open"))
	assert.Equal(t, "opened", sess.machine.CurrentStateValue())

	require.NoError(t, a.perform(ctx, sess, actionReset))
	assert.Equal(t, "closed", sess.machine.CurrentStateValue())
}
