package ui

import "github.com/charmbracelet/huh"

// Confirm asks a yes/no question and returns the answer. The default is no.
func Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}
