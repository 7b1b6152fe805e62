package teams

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain", "Alice,Bob,Charlie,Diana", []string{"Alice", "Bob", "Charlie", "Diana"}},
		{"whitespace trimmed", "Alice, Bob , Charlie,Diana ", []string{"Alice", "Bob", "Charlie", "Diana"}},
		{"duplicates kept in order", "Alice,Bob,Alice,Charlie", []string{"Alice", "Bob", "Alice", "Charlie"}},
		{"single", "Alice", []string{"Alice"}},
		{"blank pieces dropped", ",Alice,, ,Bob,", []string{"Alice", "Bob"}},
		{"inner spaces kept", "Mary Jane, Bob", []string{"Mary Jane", "Bob"}},
		{"ten people", "Alice,Bob,Charlie,Diana,Eve,Frank,Grace,Henry,Ivy,Jack", []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry", "Ivy", "Jack"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n", ",", " , ,, "} {
		_, err := Normalize(input)
		assert.ErrorIs(t, err, ErrEmptyInput, "input %q", input)
	}
}

func TestNormalizeNameTooLong(t *testing.T) {
	_, err := Normalize(strings.Repeat("A", 101))
	require.ErrorIs(t, err, ErrNameTooLong)

	var tooLong *NameTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.Equal(t, 101, tooLong.Length)
	assert.Equal(t, strings.Repeat("A", 50)+"...", tooLong.Preview)
	assert.Contains(t, err.Error(), strings.Repeat("A", 50)+"...")
	assert.NotContains(t, err.Error(), strings.Repeat("A", 51))
}

func TestNormalizeLengthBoundary(t *testing.T) {
	got, err := Normalize(strings.Repeat("B", MaxNameLength))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Length is counted in characters, not bytes.
	got, err = Normalize(strings.Repeat("é", MaxNameLength))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = Normalize("Alice, " + strings.Repeat("é", MaxNameLength+1))
	assert.ErrorIs(t, err, ErrNameTooLong)
}
