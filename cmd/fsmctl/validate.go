package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amp-labs/fsm/logger"
	"github.com/amp-labs/fsm/should"
	"github.com/amp-labs/fsm/statemachine"
	"github.com/amp-labs/fsm/statemachine/validator"
)

func (a *app) validate(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("validate", flag.ContinueOnError)
	fset.SetOutput(a.stderr)

	strict := fset.Bool("strict", false, "treat warnings as errors")
	fix := fset.Bool("fix", false, "apply the fixes attached to errors")
	yes := fset.Bool("yes", false, "write fixes without asking")
	out := fset.String("o", "", "write the fixed document here instead of over the input")

	if err := fset.Parse(args); err != nil {
		return err
	}

	path, err := onlyFile(fset.Args())
	if err != nil {
		return err
	}

	result, err := validator.ValidateFileWithOptions(path, *strict)
	if err != nil {
		return err
	}

	fmt.Fprint(a.stdout, result.String())

	if result.Valid {
		return nil
	}

	if !*fix {
		return errInvalid
	}

	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return err
	}

	applied := applyErrorFixes(ctx, def, result)
	if applied == 0 {
		return errInvalid
	}

	fixed := validator.ValidateContext(ctx, def)
	fmt.Fprintf(a.stdout, "\nAfter %d fix(es):\n%s", applied, fixed.String())

	target := *out
	if target == "" {
		target = path
	}

	if !*yes {
		ok, err := a.prompt.Confirm(fmt.Sprintf("Write fixed definition to %s", target))
		if err != nil {
			return err
		}

		if !ok {
			return errInvalid
		}
	}

	if err := writeDefinition(target, def); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Wrote %s\n", target)

	if !fixed.Valid {
		return errInvalid
	}

	return nil
}

// applyErrorFixes applies each error's fix and returns how many took
// effect. Fixes made redundant by an earlier one are skipped.
func applyErrorFixes(ctx context.Context, def *statemachine.Definition, result validator.ValidationResult) int {
	applied := 0

	for _, verr := range result.Errors {
		if verr.Fix == nil {
			continue
		}

		err := validator.ApplyFixes(def, []*validator.Fix{verr.Fix})

		switch {
		case err == nil:
			applied++
		case errors.Is(err, validator.ErrNothingToFix),
			errors.Is(err, validator.ErrStateAlreadyExists),
			errors.Is(err, validator.ErrStateNotFound):
			logger.Get(ctx).Debug("fix already applied", "fix", verr.Fix.Description)
		default:
			logger.Get(ctx).Warn("fix failed", "fix", verr.Fix.Description, "error", err)
		}
	}

	return applied
}

// writeDefinition replaces path with the marshaled definition by way of a
// temporary file in the same directory.
func writeDefinition(path string, def *statemachine.Definition) error {
	data, err := def.Marshal()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fsmctl-*.yaml")
	if err != nil {
		return err
	}

	defer should.Remove(tmp.Name(), "removing temporary definition")

	if _, err := tmp.Write(data); err != nil {
		should.Close(tmp, "closing temporary definition")

		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
