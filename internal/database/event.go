// internal/database/event.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/rolecast/internal/models"
)

// InsertGameEvents persists a batch of journal events in a single transaction.
// Replayed events are ignored.
func (s *Postgres) InsertGameEvents(ctx context.Context, events []models.GameEvent) error {
	q := `
		INSERT INTO game_events (id, game_id, seq, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, ev := range events {
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload of %s: %w", ev.ID, err)
			}
			if _, err := tx.Exec(ctx, q, ev.ID, ev.GameID, ev.Seq, ev.Type, payload,
				time.UnixMilli(ev.Timestamp)); err != nil {
				return fmt.Errorf("insert event %s: %w", ev.ID, err)
			}
		}
		return nil
	})
}
