package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxPlayerNameLength is the longest display name accepted, in characters
const MaxPlayerNameLength = 30

// ValidatePlayerNames reports the first failing check: emptiness, then length, then equality
func ValidatePlayerNames(player1, player2 string) error {
	p1 := strings.TrimSpace(player1)
	p2 := strings.TrimSpace(player2)
	if p1 == "" || p2 == "" {
		return ErrPlayerNameRequired
	}
	if utf8.RuneCountInString(p1) > MaxPlayerNameLength || utf8.RuneCountInString(p2) > MaxPlayerNameLength {
		return ErrPlayerNameTooLong
	}
	if strings.EqualFold(p1, p2) {
		return ErrPlayerNamesMatch
	}
	return nil
}

// ParseScore parses a non-negative base-10 integer, ignoring surrounding whitespace
func ParseScore(input string) (int, error) {
	score, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || score < 0 {
		return 0, ErrInvalidScore
	}
	return score, nil
}
