// Package game implements the session lifecycle as pure transitions.
//
// A State is never mutated in place: every transition returns a new State, so
// callers can commit or discard the result and tests need no harness.
package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/scrabble-score/internal/domain"
)

// State is the single live session plus the time the next turn is measured from
type State struct {
	Phase   domain.Phase
	Session *domain.Session

	// ReferenceTime is Unix milliseconds; zero when no session is active.
	ReferenceTime int64
}

// Initial returns the setup state
func Initial() State {
	return State{Phase: domain.PhaseSetup}
}

// Restore resumes directly into playing from a saved snapshot.
// A snapshot that cannot be resumed yields the setup state and false.
func Restore(snapshot *domain.Snapshot) (State, bool) {
	if !snapshot.Resumable() {
		return Initial(), false
	}
	ref := snapshot.LastTurnTime
	if ref == 0 {
		ref = snapshot.Game.StartTime
	}
	return State{
		Phase:         domain.PhasePlaying,
		Session:       snapshot.Game.Clone(),
		ReferenceTime: ref,
	}, true
}

// Snapshot returns the recovery record for this state, or nil when nothing should be kept
func (s State) Snapshot() *domain.Snapshot {
	if s.Phase != domain.PhasePlaying || s.Session == nil {
		return nil
	}
	return &domain.Snapshot{
		Game:         s.Session.Clone(),
		Phase:        s.Phase,
		LastTurnTime: s.ReferenceTime,
	}
}

// CurrentPlayer is recomputed from the turn count on every call
func (s State) CurrentPlayer() string {
	if s.Phase != domain.PhasePlaying {
		return ""
	}
	return s.Session.CurrentPlayer()
}

// Totals returns live totals, or the frozen final scores once finished
func (s State) Totals() domain.Totals {
	if s.Session != nil && s.Session.FinalScores != nil {
		return *s.Session.FinalScores
	}
	return domain.CalculateTotals(s.Session)
}

// Start creates a new session for two validated players
func Start(s State, player1, player2, id string, now time.Time) (State, error) {
	if s.Phase != domain.PhaseSetup {
		return s, fmt.Errorf("start: %w", domain.ErrInvalidPhase)
	}
	if err := domain.ValidatePlayerNames(player1, player2); err != nil {
		return s, err
	}
	ts := now.UnixMilli()
	return State{
		Phase: domain.PhasePlaying,
		Session: &domain.Session{
			ID:        id,
			Player1:   strings.TrimSpace(player1),
			Player2:   strings.TrimSpace(player2),
			Turns:     []domain.Turn{},
			StartTime: ts,
		},
		ReferenceTime: ts,
	}, nil
}

// SubmitScore appends a turn for the current player and resets the reference time
func SubmitScore(s State, input string, now time.Time) (State, domain.Turn, error) {
	score, err := domain.ParseScore(input)
	if err != nil {
		return s, domain.Turn{}, err
	}
	if s.Phase != domain.PhasePlaying || s.Session == nil || s.ReferenceTime == 0 {
		return s, domain.Turn{}, domain.ErrNoActiveSession
	}

	ts := now.UnixMilli()
	duration := ts - s.ReferenceTime
	if duration < 0 {
		duration = 0
	}
	turn := domain.Turn{
		Player:    s.Session.CurrentPlayer(),
		Score:     score,
		Timestamp: ts,
		Duration:  duration,
	}

	next := s
	next.Session = s.Session.Clone()
	next.Session.Turns = append(next.Session.Turns, turn)
	next.ReferenceTime = ts
	return next, turn, nil
}

// EditTurnScore replaces the score of one turn; nothing else about the turn changes
func EditTurnScore(s State, index int, input string) (State, error) {
	score, err := domain.ParseScore(input)
	if err != nil {
		return s, err
	}
	if s.Phase != domain.PhasePlaying || s.Session == nil {
		return s, domain.ErrNoActiveSession
	}
	if index < 0 || index >= len(s.Session.Turns) {
		return s, domain.ErrTurnNotFound
	}

	next := s
	next.Session = s.Session.Clone()
	next.Session.Turns[index].Score = score
	return next, nil
}

// End freezes the outcome and returns the finished state with its game record
func End(s State, now time.Time) (State, domain.GameRecord, error) {
	if s.Phase != domain.PhasePlaying || s.Session == nil {
		return s, domain.GameRecord{}, fmt.Errorf("end: %w", domain.ErrInvalidPhase)
	}

	totals := domain.CalculateTotals(s.Session)
	winner := domain.DetermineWinner(s.Session, totals)
	record := domain.NewGameRecord(s.Session, totals, winner, now)

	ts := now.UnixMilli()
	finished := s.Session.Clone()
	finished.EndTime = &ts
	finished.Winner = winner
	finished.FinalScores = &totals

	return State{
		Phase:   domain.PhaseFinished,
		Session: finished,
	}, record, nil
}

// NewGame discards the finished session and returns to setup
func NewGame(s State) (State, error) {
	if s.Phase != domain.PhaseFinished {
		return s, fmt.Errorf("new game: %w", domain.ErrInvalidPhase)
	}
	return Initial(), nil
}
