package cli

import (
	"strings"

	"github.com/manifoldco/promptui"
)

// Select asks the user to pick one of choices and returns its index.
// Typing filters choices by prefix.
func (p Prompter) Select(label string, choices ...string) (int, string, error) {
	sel := &promptui.Select{
		Label: label,
		Items: choices,
		Searcher: func(input string, index int) bool {
			return strings.HasPrefix(choices[index], input)
		},
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	}

	return sel.Run()
}
