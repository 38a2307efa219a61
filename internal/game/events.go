package game

import (
	"fmt"
	"time"

	"github.com/scrabble-score/internal/domain"
)

// Event is an input to the state machine
type Event interface {
	event()
}

// StartEvent begins a session between two players
type StartEvent struct {
	Player1   string
	Player2   string
	SessionID string
}

// SubmitScoreEvent records the current player's score from raw input
type SubmitScoreEvent struct {
	Input string
}

// EditScoreEvent replaces the score of the turn at Index
type EditScoreEvent struct {
	Index int
	Input string
}

// EndEvent finishes the session
type EndEvent struct{}

// NewGameEvent discards a finished session
type NewGameEvent struct{}

func (StartEvent) event()       {}
func (SubmitScoreEvent) event() {}
func (EditScoreEvent) event()   {}
func (EndEvent) event()         {}
func (NewGameEvent) event()     {}

// Outcome carries what a transition produced besides the new state
type Outcome struct {
	Turn   *domain.Turn
	Record *domain.GameRecord
}

// Apply dispatches ev to its transition. On error the returned state equals s.
func Apply(s State, ev Event, now time.Time) (State, Outcome, error) {
	switch e := ev.(type) {
	case StartEvent:
		next, err := Start(s, e.Player1, e.Player2, e.SessionID, now)
		return next, Outcome{}, err
	case SubmitScoreEvent:
		next, turn, err := SubmitScore(s, e.Input, now)
		if err != nil {
			return s, Outcome{}, err
		}
		return next, Outcome{Turn: &turn}, nil
	case EditScoreEvent:
		next, err := EditTurnScore(s, e.Index, e.Input)
		return next, Outcome{}, err
	case EndEvent:
		next, record, err := End(s, now)
		if err != nil {
			return s, Outcome{}, err
		}
		return next, Outcome{Record: &record}, nil
	case NewGameEvent:
		next, err := NewGame(s)
		return next, Outcome{}, err
	default:
		return s, Outcome{}, fmt.Errorf("unknown event %T", ev)
	}
}
