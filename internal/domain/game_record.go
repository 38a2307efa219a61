package domain

import "time"

// GameRecord is the durable representation of a finished session
type GameRecord struct {
	ID              string     `json:"id,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	Player1         string     `json:"player1"`
	Player2         string     `json:"player2"`
	Player1Score    int        `json:"player1_score"`
	Player2Score    int        `json:"player2_score"`
	Winner          *string    `json:"winner"`
	Turns           []Turn     `json:"turns"`
	DurationMinutes int        `json:"duration_minutes"`
}

// NewGameRecord builds the record for a session ending at now
func NewGameRecord(session *Session, totals Totals, winner *string, now time.Time) GameRecord {
	elapsed := now.UnixMilli() - session.StartTime
	if elapsed < 0 {
		elapsed = 0
	}
	turns := make([]Turn, len(session.Turns))
	copy(turns, session.Turns)
	return GameRecord{
		Player1:         session.Player1,
		Player2:         session.Player2,
		Player1Score:    totals.Player1,
		Player2Score:    totals.Player2,
		Winner:          winner,
		Turns:           turns,
		DurationMinutes: int(elapsed / 60000),
	}
}

// WinnerName returns the winner or an empty string for a draw
func (r GameRecord) WinnerName() string {
	if r.Winner == nil {
		return ""
	}
	return *r.Winner
}

// HeadToHeadRecord holds win/loss/draw counts from the first player's perspective
type HeadToHeadRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Total returns the number of games between the pair
func (h HeadToHeadRecord) Total() int {
	return h.Wins + h.Losses + h.Draws
}
