// internal/models/round.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a single player's ballot within a team round.
type Vote struct {
	UserID      int64     `json:"user_id"`
	CharacterID int64     `json:"character_id"`
	Random      bool      `json:"random,omitempty"`
	CastAt      time.Time `json:"cast_at"`
}

// RoundRecord represents a row in the game_rounds table. Votes keep arrival order.
type RoundRecord struct {
	GameID              uuid.UUID `json:"game_id"`
	RoundNumber         int       `json:"round_number"`
	TeamNumber          int       `json:"team_number"`
	Role                string    `json:"role"`
	SelectedCharacterID *int64    `json:"selected_character_id,omitempty"`
	Votes               []Vote    `json:"votes"`
	Score               *int      `json:"score,omitempty"`
	Explanation         *string   `json:"explanation,omitempty"`
}

// Skipped reports whether the team cast no votes this round.
func (r RoundRecord) Skipped() bool {
	return r.SelectedCharacterID == nil
}
