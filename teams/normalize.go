// Package teams splits a list of people into balanced random teams.
//
// Normalize turns the raw comma-separated text a user typed into a list of
// trimmed, length-checked names. Duplicates survive normalization so callers
// can tell the user how many distinct people were actually provided.
// Partition removes duplicates, shuffles, and deals names into teams
// round-robin so team sizes never differ by more than one.
//
// Both functions are pure and safe for concurrent use.
package teams

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength is the longest accepted name, in characters.
	MaxNameLength = 100
	// Separator splits names in raw input.
	Separator = ","

	previewLength = 50
)

// Normalize parses a comma-separated list of names.
func Normalize(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	parts := strings.Split(raw, Separator)
	people := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			people = append(people, name)
		}
	}
	if len(people) == 0 {
		return nil, fmt.Errorf("%w: no valid names found in the input", ErrEmptyInput)
	}

	for _, name := range people {
		if n := utf8.RuneCountInString(name); n > MaxNameLength {
			return nil, &NameTooLongError{Preview: preview(name), Length: n}
		}
	}
	return people, nil
}

func preview(name string) string {
	runes := []rune(name)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes) + "..."
}
