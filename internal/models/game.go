// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus is the lifecycle state of a game row.
type GameStatus string

const (
	StatusLobby      GameStatus = "lobby"
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
	StatusCancelled  GameStatus = "cancelled"
)

// Active reports whether the status blocks its room and players from starting another game.
func (s GameStatus) Active() bool {
	return s == StatusLobby || s == StatusInProgress
}

// Game represents a row in the games table.
type Game struct {
	ID           uuid.UUID  `json:"id"`
	RoomID       int64      `json:"room_id"`
	Status       GameStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CurrentRound int        `json:"current_round"`

	// ThemeID is the ruleset selector: it maps every round number to a role.
	ThemeID int `json:"theme_id"`

	// WinnerTeam holds the lowest-numbered winning team; WinnerTeams holds all of them.
	WinnerTeam  *int  `json:"winner_team,omitempty"`
	WinnerTeams []int `json:"winner_teams,omitempty"`

	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
