package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"gopkg.in/yaml.v3"

	"github.com/amp-labs/fsm/cli"
	"github.com/amp-labs/fsm/logger"
	"github.com/amp-labs/fsm/statemachine"
)

type (
	board   = map[string]any
	machine = statemachine.Machine[string, string, board]
)

var errBadAssignment = errors.New("expected key=value")

const (
	actionUpdate = "update blackboard"
	actionWait   = "wait"
	actionReset  = "reset"
	actionQuit   = "quit"
	firePrefix   = "fire "
)

func (a *app) simulate(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fset.SetOutput(a.stderr)

	if err := fset.Parse(args); err != nil {
		return err
	}

	path, err := onlyFile(fset.Args())
	if err != nil {
		return err
	}

	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return err
	}

	sess, err := newSession(ctx, def, a.stdout)
	if err != nil {
		return err
	}

	name := def.Name
	if name == "" {
		name = path
	}

	fmt.Fprint(a.stdout, cli.BannerAutoWidth("Simulating "+name, cli.AlignCenter))

	for ctx.Err() == nil {
		fmt.Fprintln(a.stdout, sess.describe())

		_, choice, err := a.prompt.Select("Action", sess.actions()...)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}

			return err
		}

		if choice == actionQuit {
			return nil
		}

		if err := a.perform(ctx, sess, choice); err != nil {
			fmt.Fprintln(a.stdout, "error:", err)
		}
	}

	return nil
}

func (a *app) perform(ctx context.Context, sess *session, choice string) error {
	switch {
	case strings.HasPrefix(choice, firePrefix):
		return sess.fire(ctx, strings.TrimPrefix(choice, firePrefix))
	case choice == actionUpdate:
		txt, err := a.prompt.StringEmptyOk("Blackboard (key=value ...)")
		if err != nil {
			return err
		}

		bb, err := parseAssignments(txt)
		if err != nil {
			return err
		}

		return sess.update(ctx, bb)
	case choice == actionWait:
		d, err := a.prompt.Duration("Duration")
		if err != nil {
			return err
		}

		return sess.wait(ctx, d)
	case choice == actionReset:
		sess.reset(ctx)
	}

	return nil
}

// session drives one machine on a simulated clock.
type session struct {
	machine *machine
	now     time.Time
	board   board
	out     io.Writer
}

func newSession(ctx context.Context, def *statemachine.Definition, out io.Writer) (*session, error) {
	sess := &session{
		now:   time.Now().UTC(),
		board: board{},
		out:   out,
	}

	m, err := statemachine.FromDefinition[string, string, board](def,
		statemachine.WithClock(statemachine.ClockFunc(func() time.Time { return sess.now })),
		statemachine.WithStartTime(sess.now),
		statemachine.WithLogger(statemachine.NewSlogLogger(logger.Get(ctx))),
	)
	if err != nil {
		return nil, err
	}

	m.OnTransition(func(_ context.Context, ev statemachine.Event[string, string, board]) {
		if ev.HasTrigger {
			fmt.Fprintf(out, "→ %s -> %s (%s %q)\n", ev.From, ev.To, ev.Cause, ev.Trigger)
		} else {
			fmt.Fprintf(out, "→ %s -> %s (%s)\n", ev.From, ev.To, ev.Cause)
		}
	})

	sess.machine = m

	return sess, nil
}

func (s *session) describe() string {
	cur := s.machine.CurrentStateValue()

	var sb strings.Builder

	fmt.Fprintf(&sb, "state: %s", cur)

	if st, ok := s.machine.State(cur); ok {
		fmt.Fprintf(&sb, " (for %s)", s.now.Sub(st.EnteredAt()))

		if age, ok := st.AgeTransition(); ok {
			fmt.Fprintf(&sb, ", leaves for %s after %s", age.To, age.MaxAge)
		}
	}

	if len(s.board) > 0 {
		fmt.Fprintf(&sb, "\nblackboard: %v", s.board)
	}

	return sb.String()
}

// actions lists the menu entries for the current state, its triggers first.
func (s *session) actions() []string {
	var out []string

	if st, ok := s.machine.State(s.machine.CurrentStateValue()); ok {
		for _, tt := range st.Triggers() {
			out = append(out, firePrefix+tt.Trigger)
		}
	}

	return append(out, actionUpdate, actionWait, actionReset, actionQuit)
}

func (s *session) fire(ctx context.Context, trigger string) error {
	step, err := s.machine.TriggerContext(ctx, trigger, s.board)
	if err != nil {
		return err
	}

	if !step.Committed {
		fmt.Fprintf(s.out, "trigger %q did nothing\n", trigger)
	}

	return nil
}

// update merges bb into the session blackboard and evaluates conditions.
func (s *session) update(ctx context.Context, bb board) error {
	maps.Copy(s.board, bb)

	step, err := s.machine.UpdateContext(ctx, s.board)
	if err != nil {
		return err
	}

	if !step.Committed {
		fmt.Fprintln(s.out, "no condition matched")
	}

	return nil
}

func (s *session) wait(ctx context.Context, d time.Duration) error {
	s.now = s.now.Add(d)

	_, err := s.machine.UpdateAtContext(ctx, s.now)

	return err
}

func (s *session) reset(ctx context.Context) {
	if !s.machine.ResetContext(ctx, s.board).Committed {
		fmt.Fprintln(s.out, "already at the starting state")
	}
}

// parseAssignments reads whitespace-separated key=value pairs. Values are
// decoded as YAML scalars so numbers and booleans keep their type.
func parseAssignments(s string) (board, error) {
	out := board{}

	for _, field := range strings.Fields(s) {
		key, raw, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w, got %q", errBadAssignment, field)
		}

		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("value of %s: %w", key, err)
		}

		out[key] = v
	}

	return out, nil
}
