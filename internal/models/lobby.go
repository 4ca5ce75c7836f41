// internal/models/lobby.go
package models

import "time"

// LobbyEntry represents a row in the lobby_queue table.
type LobbyEntry struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	RoomID   int64     `json:"room_id"`
	JoinedAt time.Time `json:"joined_at"`
}
