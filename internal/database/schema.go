// internal/database/schema.go
package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS characters (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		mbti TEXT NOT NULL,
		zodiac TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id UUID PRIMARY KEY,
		room_id BIGINT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		current_round INT NOT NULL DEFAULT 0,
		theme_id INT NOT NULL,
		winner_team INT,
		winner_teams INT[],
		finished_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS games_one_active_per_room
		ON games (room_id) WHERE status IN ('lobby', 'in_progress')`,
	`CREATE TABLE IF NOT EXISTS game_players (
		game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL,
		username TEXT NOT NULL,
		team_number INT NOT NULL,
		is_leader BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (game_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS game_rounds (
		game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		round_number INT NOT NULL,
		team_number INT NOT NULL,
		role TEXT NOT NULL,
		selected_character_id BIGINT REFERENCES characters(id),
		votes JSONB NOT NULL DEFAULT '[]',
		score INT,
		explanation TEXT,
		UNIQUE (game_id, round_number, team_number)
	)`,
	`CREATE TABLE IF NOT EXISTS lobby_queue (
		seq BIGSERIAL,
		user_id BIGINT NOT NULL UNIQUE,
		username TEXT NOT NULL,
		room_id BIGINT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS game_events (
		id UUID PRIMARY KEY,
		game_id UUID NOT NULL,
		seq INT NOT NULL,
		type TEXT NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS game_events_game_id ON game_events (game_id, seq)`,
}

// Migrate creates any missing tables.
func (s *Postgres) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.DB.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
