package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/manifoldco/promptui"
)

var errEmptyInput = errors.New("you must enter something")

// Prompter asks questions on a terminal. The zero value uses stdin and
// stdout.
type Prompter struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

func (p Prompter) prompt(label string, validate promptui.ValidateFunc) promptui.Prompt {
	stdin, stdout := p.Stdin, p.Stdout
	if stdin == nil {
		stdin = os.Stdin
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	return promptui.Prompt{
		Label:    label,
		Validate: validate,
		Stdin:    stdin,
		Stdout:   stdout,
	}
}

// Confirm asks a yes/no question. Answering no is not an error.
func (p Prompter) Confirm(label string) (bool, error) {
	prompt := p.prompt(label, nil)
	prompt.IsConfirm = true

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// String asks for a non-empty string.
func (p Prompter) String(label string) (string, error) {
	prompt := p.prompt(label, func(s string) error {
		if len(s) == 0 {
			return errEmptyInput
		}

		return nil
	})

	return prompt.Run()
}

// StringEmptyOk asks for a string that may be empty.
func (p Prompter) StringEmptyOk(label string) (string, error) {
	prompt := p.prompt(label, nil)

	return prompt.Run()
}

// Duration asks for a time.ParseDuration string.
func (p Prompter) Duration(label string) (time.Duration, error) {
	prompt := p.prompt(label, func(s string) error {
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		return nil
	})

	txt, err := prompt.Run()
	if err != nil {
		return 0, err
	}

	return time.ParseDuration(txt)
}
