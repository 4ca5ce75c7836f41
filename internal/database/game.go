// internal/database/game.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/rolecast/internal/models"
)

const gameColumns = `id, room_id, status, created_at, current_round, theme_id, winner_team, winner_teams, finished_at`

// CreateGame inserts a new game row. A second active game in the same room violates
// games_one_active_per_room and yields ErrDuplicate.
func (s *Postgres) CreateGame(ctx context.Context, g *models.Game) error {
	if g.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		g.ID = id
	}
	q := `
		INSERT INTO games (id, room_id, status, current_round, theme_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := s.DB.QueryRow(ctx, q, g.ID, g.RoomID, g.Status, g.CurrentRound, g.ThemeID).Scan(&g.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("room %d already has an active game: %w", g.RoomID, ErrDuplicate)
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// GetGame fetches a game by id.
func (s *Postgres) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapNotFound("game", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

// ListGamesByStatus returns every game with the given status, oldest first.
func (s *Postgres) ListGamesByStatus(ctx context.Context, status models.GameStatus) ([]models.Game, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+gameColumns+` FROM games WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// ActiveGameForRoom returns the room's lobby or in-progress game, or ErrNotFound.
func (s *Postgres) ActiveGameForRoom(ctx context.Context, roomID int64) (*models.Game, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE room_id = $1 AND status IN ('lobby', 'in_progress')
		ORDER BY created_at DESC
		LIMIT 1
	`, roomID)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapNotFound("active game in room", roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("active game for room: %w", err)
	}
	return g, nil
}

// UpdateGameStatus sets a game's status, stamping finished_at for terminal states.
func (s *Postgres) UpdateGameStatus(ctx context.Context, id uuid.UUID, status models.GameStatus) error {
	q := `
		UPDATE games
		SET status = $2,
		    finished_at = CASE WHEN $2 IN ('finished', 'cancelled') THEN NOW() ELSE finished_at END
		WHERE id = $1
	`
	tag, err := s.DB.Exec(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("update game status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapNotFound("game", id)
	}
	return nil
}

// UpdateGameRound records the round the game is currently playing.
func (s *Postgres) UpdateGameRound(ctx context.Context, id uuid.UUID, round int) error {
	tag, err := s.DB.Exec(ctx, `UPDATE games SET current_round = $2 WHERE id = $1`, id, round)
	if err != nil {
		return fmt.Errorf("update game round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapNotFound("game", id)
	}
	return nil
}

// SetGameWinners finishes the game with the full winner set plus the lowest winning team
// as the representative winner_team.
func (s *Postgres) SetGameWinners(ctx context.Context, id uuid.UUID, winners []int) error {
	var rep *int
	if len(winners) > 0 {
		lowest := winners[0]
		for _, w := range winners[1:] {
			if w < lowest {
				lowest = w
			}
		}
		rep = &lowest
	}
	q := `
		UPDATE games
		SET status = 'finished', winner_team = $2, winner_teams = $3, finished_at = NOW()
		WHERE id = $1
	`
	tag, err := s.DB.Exec(ctx, q, id, rep, winners)
	if err != nil {
		return fmt.Errorf("set game winners: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapNotFound("game", id)
	}
	return nil
}

// AddGamePlayers inserts the team assignments of a game in one transaction.
func (s *Postgres) AddGamePlayers(ctx context.Context, players []models.Player) error {
	q := `
		INSERT INTO game_players (game_id, user_id, username, team_number, is_leader)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id, user_id)
		DO UPDATE SET username = EXCLUDED.username
	`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, p := range players {
			if _, err := tx.Exec(ctx, q, p.GameID, p.UserID, p.Username, p.TeamNumber, p.IsLeader); err != nil {
				return fmt.Errorf("insert player %d: %w", p.UserID, err)
			}
		}
		return nil
	})
}

// GetGamePlayers returns the players of a game ordered by team then user.
func (s *Postgres) GetGamePlayers(ctx context.Context, gameID uuid.UUID) ([]models.Player, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT game_id, user_id, username, team_number, is_leader
		FROM game_players
		WHERE game_id = $1
		ORDER BY team_number, user_id
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Player, error) {
		var p models.Player
		err := row.Scan(&p.GameID, &p.UserID, &p.Username, &p.TeamNumber, &p.IsLeader)
		return p, err
	})
}

// IsUserInActiveGame reports whether the user plays in a lobby or in-progress game.
func (s *Postgres) IsUserInActiveGame(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM game_players gp
			JOIN games g ON g.id = gp.game_id
			WHERE gp.user_id = $1 AND g.status IN ('lobby', 'in_progress')
		)
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user in active game: %w", err)
	}
	return exists, nil
}

// IsRoomHasActiveGame reports whether the room has a lobby or in-progress game.
func (s *Postgres) IsRoomHasActiveGame(ctx context.Context, roomID int64) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM games WHERE room_id = $1 AND status IN ('lobby', 'in_progress')
		)
	`, roomID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check room active game: %w", err)
	}
	return exists, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	err := row.Scan(&g.ID, &g.RoomID, &g.Status, &g.CreatedAt, &g.CurrentRound, &g.ThemeID,
		&g.WinnerTeam, &g.WinnerTeams, &g.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
