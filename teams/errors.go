package teams

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the raw people list is missing or blank.
	ErrEmptyInput = errors.New("people list cannot be empty")
	// ErrNameTooLong matches any *NameTooLongError.
	ErrNameTooLong = errors.New("name too long")
	// ErrEmptyRoster is returned when Partition receives no people.
	ErrEmptyRoster = errors.New("people list cannot be empty")
	// ErrInvalidTeamCount matches any *InvalidTeamCountError.
	ErrInvalidTeamCount = errors.New("number of teams must be positive")
	// ErrInsufficientPeople matches any *InsufficientPeopleError.
	ErrInsufficientPeople = errors.New("not enough people")
	// ErrInsufficientUniquePeople matches any *InsufficientUniquePeopleError.
	ErrInsufficientUniquePeople = errors.New("not enough unique people")
)

// NameTooLongError reports a name over MaxNameLength. Preview holds the
// truncated name used in the message.
type NameTooLongError struct {
	Preview string
	Length  int
}

func (e *NameTooLongError) Error() string {
	return fmt.Sprintf("name '%s' is too long (max %d characters)", e.Preview, MaxNameLength)
}

func (e *NameTooLongError) Is(target error) bool { return target == ErrNameTooLong }

// InvalidTeamCountError carries the rejected team count.
type InvalidTeamCountError struct {
	Teams int
}

func (e *InvalidTeamCountError) Error() string {
	return fmt.Sprintf("number of teams must be positive (got %d)", e.Teams)
}

func (e *InvalidTeamCountError) Is(target error) bool { return target == ErrInvalidTeamCount }

// InsufficientPeopleError is returned when fewer names than teams were supplied.
type InsufficientPeopleError struct {
	Teams  int
	People int
}

func (e *InsufficientPeopleError) Error() string {
	return fmt.Sprintf("cannot create %d teams with only %d people", e.Teams, e.People)
}

func (e *InsufficientPeopleError) Is(target error) bool { return target == ErrInsufficientPeople }

// InsufficientUniquePeopleError is returned when deduplication leaves fewer
// distinct names than teams.
type InsufficientUniquePeopleError struct {
	Teams  int
	Unique int
}

func (e *InsufficientUniquePeopleError) Error() string {
	return fmt.Sprintf("after removing duplicates, cannot create %d teams with only %d unique people", e.Teams, e.Unique)
}

func (e *InsufficientUniquePeopleError) Is(target error) bool {
	return target == ErrInsufficientUniquePeople
}
