package kafka

import (
	"time"

	"github.com/scrabble-score/internal/domain"
)

// EventGameFinished is published once per persisted game
const EventGameFinished = "game_finished"

// GameEvent is the message format on the games topic
type GameEvent struct {
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Record    domain.GameRecord `json:"record"`
	Timestamp time.Time         `json:"timestamp"`
}
