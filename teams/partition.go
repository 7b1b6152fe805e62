package teams

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Team is one labelled bucket of members.
type Team struct {
	Label   string
	Members []string
}

// Result is the outcome of Partition. Teams are ordered by label index.
type Result struct {
	Teams []Team

	// RequestedPeople is the number of names passed in, duplicates included.
	RequestedPeople int
	// TotalPeople is the number of unique names that were assigned.
	TotalPeople int

	NumTeams        int
	MinTeamSize     int
	MaxTeamSize     int
	AverageTeamSize float64
}

// Duplicates reports how many names were dropped as duplicates or blanks.
func (r *Result) Duplicates() int { return r.RequestedPeople - r.TotalPeople }

// Uneven reports whether team sizes differ.
func (r *Result) Uneven() bool { return r.MaxTeamSize > r.MinTeamSize }

// Sizes returns the member count of each team in label order.
func (r *Result) Sizes() []int {
	out := make([]int, len(r.Teams))
	for i, t := range r.Teams {
		out[i] = len(t.Members)
	}
	return out
}

// Label returns the display label of the team at zero-based index i.
func Label(i int) string { return fmt.Sprintf("Team %d", i+1) }

// Partition shuffles people into numTeams balanced teams using a fresh
// random source.
func Partition(people []string, numTeams int) (*Result, error) {
	r := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // team draws are not security sensitive
	return PartitionRand(r, people, numTeams)
}

// PartitionRand is Partition with a caller-supplied random source. r must not
// be shared between goroutines.
func PartitionRand(r *rand.Rand, people []string, numTeams int) (*Result, error) {
	if len(people) == 0 {
		return nil, ErrEmptyRoster
	}
	if numTeams <= 0 {
		return nil, &InvalidTeamCountError{Teams: numTeams}
	}
	if len(people) < numTeams {
		return nil, &InsufficientPeopleError{Teams: numTeams, People: len(people)}
	}

	// Map iteration order is unspecified; the shuffle below makes that moot.
	seen := make(map[string]struct{}, len(people))
	for _, p := range people {
		if name := strings.TrimSpace(p); name != "" {
			seen[name] = struct{}{}
		}
	}
	unique := make([]string, 0, len(seen))
	for name := range seen {
		unique = append(unique, name)
	}
	if len(unique) < numTeams {
		return nil, &InsufficientUniquePeopleError{Teams: numTeams, Unique: len(unique)}
	}

	r.Shuffle(len(unique), func(i, j int) { unique[i], unique[j] = unique[j], unique[i] })

	out := &Result{
		Teams:           make([]Team, numTeams),
		RequestedPeople: len(people),
		TotalPeople:     len(unique),
		NumTeams:        numTeams,
		AverageTeamSize: float64(len(unique)) / float64(numTeams),
	}
	for i := range out.Teams {
		out.Teams[i] = Team{Label: Label(i), Members: make([]string, 0, len(unique)/numTeams+1)}
	}
	for i, name := range unique {
		t := &out.Teams[i%numTeams]
		t.Members = append(t.Members, name)
	}

	out.MinTeamSize, out.MaxTeamSize = len(out.Teams[0].Members), len(out.Teams[0].Members)
	for _, t := range out.Teams[1:] {
		out.MinTeamSize = min(out.MinTeamSize, len(t.Members))
		out.MaxTeamSize = max(out.MaxTeamSize, len(t.Members))
	}
	return out, nil
}
