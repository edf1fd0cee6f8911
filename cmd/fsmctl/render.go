package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/amp-labs/fsm/statemachine"
	"github.com/amp-labs/fsm/statemachine/visualizer"
)

func (a *app) render(args []string) error {
	defaults := visualizer.DefaultOptions()

	fset := flag.NewFlagSet("render", flag.ContinueOnError)
	fset.SetOutput(a.stderr)

	direction := fset.String("direction", defaults.Direction, "diagram direction (TB, TD, BT, LR, RL)")
	highlight := fset.String("highlight", "", "comma-separated states to highlight")
	noTriggers := fset.Bool("no-triggers", false, "omit trigger edges")
	noConditions := fset.Bool("no-conditions", false, "omit condition edges")
	noAge := fset.Bool("no-age", false, "omit age edges")

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

	opts := defaults.
		WithDirection(*direction).
		WithShowTriggers(!*noTriggers).
		WithShowConditions(!*noConditions).
		WithShowAgeTransitions(!*noAge).
		WithHighlightPath(splitList(*highlight))

	diagram, err := visualizer.GenerateMermaidWithOptions(def, opts)
	if err != nil {
		return err
	}

	fmt.Fprint(a.stdout, diagram)

	return nil
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
