package domain

import "strings"

// CalculateTotals sums turn scores per player. A nil session yields zero totals.
func CalculateTotals(session *Session) Totals {
	var totals Totals
	if session == nil {
		return totals
	}
	for _, turn := range session.Turns {
		if turn.Player == session.Player1 {
			totals.Player1 += turn.Score
		} else {
			totals.Player2 += turn.Score
		}
	}
	return totals
}

// DetermineWinner returns the strictly higher scorer, or nil on a draw
func DetermineWinner(session *Session, totals Totals) *string {
	var winner string
	switch {
	case totals.Player1 > totals.Player2:
		winner = session.Player1
	case totals.Player2 > totals.Player1:
		winner = session.Player2
	default:
		return nil
	}
	return &winner
}

// SamePair reports whether a record was played between a and b, in either seat order
func SamePair(record GameRecord, a, b string) bool {
	return (strings.EqualFold(record.Player1, a) && strings.EqualFold(record.Player2, b)) ||
		(strings.EqualFold(record.Player1, b) && strings.EqualFold(record.Player2, a))
}

// ComputeHeadToHead classifies every record between a and b from a's perspective
func ComputeHeadToHead(records []GameRecord, a, b string) HeadToHeadRecord {
	var h2h HeadToHeadRecord
	for _, record := range records {
		if !SamePair(record, a, b) {
			continue
		}
		switch {
		case record.Winner == nil || *record.Winner == "":
			h2h.Draws++
		case strings.EqualFold(*record.Winner, a):
			h2h.Wins++
		default:
			h2h.Losses++
		}
	}
	return h2h
}

// PairKey returns a case-folded, order-independent key for a player pair
func PairKey(a, b string) string {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
