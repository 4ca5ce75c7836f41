// internal/models/event.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types written to the game journal.
const (
	EventGameStarted    = "game_started"
	EventRoundStarted   = "round_started"
	EventVoteCast       = "vote_cast"
	EventRoundFinalized = "round_finalized"
	EventGameFinished   = "game_finished"
	EventGameCancelled  = "game_cancelled"
	EventGameHalted     = "game_halted"
)

// GameEvent is a single lifecycle transition of a game, persisted by the historian.
type GameEvent struct {
	ID        uuid.UUID              `json:"id"`
	GameID    uuid.UUID              `json:"game_id"`
	Seq       int                    `json:"seq"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
}

// NewGameEvent stamps an event with a fresh id and the current time.
func NewGameEvent(gameID uuid.UUID, seq int, typ string, payload map[string]interface{}) GameEvent {
	id, _ := uuid.NewV7()
	return GameEvent{
		ID:        id,
		GameID:    gameID,
		Seq:       seq,
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}
