package teams

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Person%d", i+1)
	}
	return out
}

func members(r *Result) []string {
	var out []string
	for _, t := range r.Teams {
		out = append(out, t.Members...)
	}
	sort.Strings(out)
	return out
}

func uniqueSorted(in []string) []string {
	set := map[string]struct{}{}
	for _, s := range in {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func TestPartitionBasic(t *testing.T) {
	in := []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry"}
	res, err := Partition(in, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, res.NumTeams)
	assert.Equal(t, len(in), res.TotalPeople)
	assert.Equal(t, len(in), res.RequestedPeople)
	assert.Equal(t, uniqueSorted(in), members(res))
	assert.Equal(t, 2, res.MinTeamSize)
	assert.Equal(t, 3, res.MaxTeamSize)
	assert.Equal(t, float64(8)/float64(3), res.AverageTeamSize)
	assert.True(t, res.Uneven())
	// Earlier teams take the remainder.
	assert.Equal(t, []int{3, 3, 2}, res.Sizes())
}

func TestPartitionLabels(t *testing.T) {
	res, err := Partition(people(12), 4)
	require.NoError(t, err)
	require.Len(t, res.Teams, 4)
	for i, team := range res.Teams {
		assert.Equal(t, fmt.Sprintf("Team %d", i+1), team.Label)
	}
}

func TestPartitionOnePerTeam(t *testing.T) {
	res, err := Partition([]string{"Alice", "Bob", "Charlie"}, 3)
	require.NoError(t, err)
	for _, team := range res.Teams {
		assert.Len(t, team.Members, 1)
	}
	assert.False(t, res.Uneven())
}

func TestPartitionHundredPeople(t *testing.T) {
	res, err := Partition(people(100), 10)
	require.NoError(t, err)
	require.Len(t, res.Teams, 10)
	for _, team := range res.Teams {
		assert.Len(t, team.Members, 10)
	}
	assert.Equal(t, 10, res.MinTeamSize)
	assert.Equal(t, 10, res.MaxTeamSize)
	assert.Equal(t, 10.0, res.AverageTeamSize)
}

func TestPartitionDuplicates(t *testing.T) {
	in := []string{"Alice", "Bob", "Alice", "Charlie", "Bob"}
	res, err := Partition(in, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, res.RequestedPeople)
	assert.Equal(t, 3, res.TotalPeople)
	assert.Equal(t, 2, res.Duplicates())
	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, members(res))
}

func TestPartitionDedupIsCaseSensitive(t *testing.T) {
	res, err := Partition([]string{"alice", "Alice", "ALICE"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalPeople)
}

func TestPartitionErrors(t *testing.T) {
	tests := []struct {
		name     string
		people   []string
		numTeams int
		want     error
	}{
		{"empty roster", nil, 2, ErrEmptyRoster},
		{"empty roster checked before team count", []string{}, 0, ErrEmptyRoster},
		{"zero teams", []string{"Alice"}, 0, ErrInvalidTeamCount},
		{"negative teams", []string{"Alice"}, -3, ErrInvalidTeamCount},
		{"more teams than people", []string{"Alice", "Bob"}, 3, ErrInsufficientPeople},
		{"duplicates leave too few", []string{"Alice", "Alice", "Bob"}, 3, ErrInsufficientUniquePeople},
		{"blanks leave too few", []string{"Alice", " ", ""}, 2, ErrInsufficientUniquePeople},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Partition(tt.people, tt.numTeams)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPartitionErrorMessages(t *testing.T) {
	_, err := Partition([]string{"Alice", "Bob"}, 3)
	var ip *InsufficientPeopleError
	require.True(t, errors.As(err, &ip))
	assert.Equal(t, 3, ip.Teams)
	assert.Equal(t, 2, ip.People)
	assert.Equal(t, "cannot create 3 teams with only 2 people", err.Error())

	_, err = Partition([]string{"Alice", "Alice", "Bob"}, 3)
	var iu *InsufficientUniquePeopleError
	require.True(t, errors.As(err, &iu))
	assert.Equal(t, 3, iu.Teams)
	assert.Equal(t, 2, iu.Unique)
	assert.Contains(t, err.Error(), "3 teams")
	assert.Contains(t, err.Error(), "2 unique people")
}

func TestPartitionInvariants(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for n := 1; n <= 40; n++ {
		for k := 1; k <= n; k++ {
			in := people(n)
			// Sprinkle duplicates so dedup is exercised.
			in = append(in, in[:n/3]...)
			res, err := PartitionRand(r, in, k)
			require.NoError(t, err, "n=%d k=%d", n, k)

			assert.Len(t, res.Teams, k)
			assert.Equal(t, uniqueSorted(in), members(res))
			assert.LessOrEqual(t, res.MaxTeamSize-res.MinTeamSize, 1)
			assert.Equal(t, float64(n)/float64(k), res.AverageTeamSize)

			sum := 0
			for _, s := range res.Sizes() {
				sum += s
			}
			assert.Equal(t, n, sum)
		}
	}
}

func TestPartitionShuffles(t *testing.T) {
	in := people(20)
	firsts := map[string]bool{}
	for range 50 {
		res, err := Partition(in, 2)
		require.NoError(t, err)
		firsts[res.Teams[0].Members[0]] = true
	}
	assert.Greater(t, len(firsts), 1, "expected different first picks across draws")
}

func TestPartitionConcurrent(t *testing.T) {
	in := people(30)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Partition(in, 4)
			if assert.NoError(t, err) {
				assert.Equal(t, 30, res.TotalPeople)
			}
		}()
	}
	wg.Wait()
}

func TestPartitionDoesNotMutateInput(t *testing.T) {
	in := []string{"Alice", "Bob", "Charlie", "Diana"}
	orig := append([]string(nil), in...)
	_, err := Partition(in, 2)
	require.NoError(t, err)
	assert.Equal(t, orig, in)
}
