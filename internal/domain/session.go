package domain

import "time"

// Phase represents the lifecycle stage of a session
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Turn represents one scoring action by one player.
// Timestamp is Unix milliseconds, Duration is milliseconds since the previous turn.
type Turn struct {
	Player    string `json:"player"`
	Score     int    `json:"score"`
	Timestamp int64  `json:"timestamp"`
	Duration  int64  `json:"duration"`
}

// Elapsed returns the turn duration as a time.Duration
func (t Turn) Elapsed() time.Duration {
	return time.Duration(t.Duration) * time.Millisecond
}

// Totals holds per-player score sums
type Totals struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// Sum returns the combined score of both players
func (t Totals) Sum() int {
	return t.Player1 + t.Player2
}

// Session represents the live or just-finished match
type Session struct {
	ID          string  `json:"id"`
	Player1     string  `json:"player1"`
	Player2     string  `json:"player2"`
	Turns       []Turn  `json:"turns"`
	StartTime   int64   `json:"startTime"`
	EndTime     *int64  `json:"endTime,omitempty"`
	Winner      *string `json:"winner,omitempty"`
	FinalScores *Totals `json:"finalScores,omitempty"`
}

// Clone returns a deep copy so transitions never share turn storage
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = make([]Turn, len(s.Turns))
	copy(c.Turns, s.Turns)
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	if s.Winner != nil {
		w := *s.Winner
		c.Winner = &w
	}
	if s.FinalScores != nil {
		fs := *s.FinalScores
		c.FinalScores = &fs
	}
	return &c
}

// CurrentPlayer derives whose turn is next from the number of recorded turns
func (s *Session) CurrentPlayer() string {
	if s == nil {
		return ""
	}
	if len(s.Turns)%2 == 0 {
		return s.Player1
	}
	return s.Player2
}

// Finished reports whether the frozen end-of-game fields are set
func (s *Session) Finished() bool {
	return s != nil && s.EndTime != nil
}

// Opponent returns the other player's name
func (s *Session) Opponent(name string) string {
	if name == s.Player1 {
		return s.Player2
	}
	return s.Player1
}
