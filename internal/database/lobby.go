// internal/database/lobby.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/rolecast/internal/models"
)

// AddLobbyEntry queues a player. A player already queued yields ErrDuplicate.
func (s *Postgres) AddLobbyEntry(ctx context.Context, e models.LobbyEntry) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO lobby_queue (user_id, username, room_id, joined_at)
		VALUES ($1, $2, $3, $4)
	`, e.UserID, e.Username, e.RoomID, e.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %d: %w", e.UserID, ErrDuplicate)
		}
		return fmt.Errorf("insert lobby entry: %w", err)
	}
	return nil
}

// RemoveLobbyEntry dequeues a player, reporting whether a row was removed.
func (s *Postgres) RemoveLobbyEntry(ctx context.Context, userID int64) (bool, error) {
	tag, err := s.DB.Exec(ctx, `DELETE FROM lobby_queue WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete lobby entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListLobbyEntries returns the queue in join order.
func (s *Postgres) ListLobbyEntries(ctx context.Context) ([]models.LobbyEntry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT user_id, username, room_id, joined_at
		FROM lobby_queue
		ORDER BY joined_at, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query lobby: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LobbyEntry, error) {
		var e models.LobbyEntry
		err := row.Scan(&e.UserID, &e.Username, &e.RoomID, &e.JoinedAt)
		return e, err
	})
}

// ClearLobby empties the queue.
func (s *Postgres) ClearLobby(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM lobby_queue`); err != nil {
		return fmt.Errorf("clear lobby: %w", err)
	}
	return nil
}
