package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePlayerNames(t *testing.T) {
	tests := []struct {
		name    string
		p1, p2  string
		wantErr error
	}{
		{"first empty", "", "Bob", ErrPlayerNameRequired},
		{"second whitespace", "Alice", "   ", ErrPlayerNameRequired},
		{"too long", strings.Repeat("A", 31), "Bob", ErrPlayerNameTooLong},
		{"second too long", "Alice", strings.Repeat("b", 31), ErrPlayerNameTooLong},
		{"exactly thirty", strings.Repeat("A", 30), "Bob", nil},
		{"case-insensitive duplicate", "Alice", "alice", ErrPlayerNamesMatch},
		{"duplicate after trim", " Alice ", "ALICE", ErrPlayerNamesMatch},
		{"valid", "Alice", "Bob", nil},
		{"multibyte counted as characters", strings.Repeat("é", 30), "Bob", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlayerNames(tt.p1, tt.p2)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidatePlayerNames_Priority(t *testing.T) {
	// empty beats length, length beats equality
	assert.ErrorIs(t, ValidatePlayerNames("", strings.Repeat("x", 40)), ErrPlayerNameRequired)
	long := strings.Repeat("x", 31)
	assert.ErrorIs(t, ValidatePlayerNames(long, strings.ToUpper(long)), ErrPlayerNameTooLong)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Player names must be different.", UserMessage(ErrPlayerNamesMatch))
	assert.Equal(t, "Failed to save game. Please try again.", UserMessage(ErrSaveFailed))
	assert.Empty(t, UserMessage(ErrInvalidScore))
}

func TestParseScore(t *testing.T) {
	score, err := ParseScore(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, 42, score)

	score, err = ParseScore("0")
	require.NoError(t, err)
	assert.Zero(t, score)

	for _, input := range []string{"", "-1", "abc", "12abc", "1.5", " "} {
		_, err := ParseScore(input)
		assert.ErrorIs(t, err, ErrInvalidScore, "input %q", input)
	}
}
