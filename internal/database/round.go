// internal/database/round.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/rolecast/internal/models"
)

// SaveRoundSelection upserts a team's finalized round. An existing row keeps its score
// only while the selected character is unchanged.
func (s *Postgres) SaveRoundSelection(ctx context.Context, rec models.RoundRecord) error {
	votes := rec.Votes
	if votes == nil {
		votes = []models.Vote{}
	}
	js, err := json.Marshal(votes)
	if err != nil {
		return fmt.Errorf("marshal votes: %w", err)
	}
	q := `
		INSERT INTO game_rounds (game_id, round_number, team_number, role, selected_character_id, votes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, round_number, team_number)
		DO UPDATE SET role = EXCLUDED.role,
		              selected_character_id = EXCLUDED.selected_character_id,
		              votes = EXCLUDED.votes,
		              score = CASE WHEN game_rounds.selected_character_id IS NOT DISTINCT FROM EXCLUDED.selected_character_id
		                           THEN game_rounds.score END,
		              explanation = CASE WHEN game_rounds.selected_character_id IS NOT DISTINCT FROM EXCLUDED.selected_character_id
		                                 THEN game_rounds.explanation END
	`
	_, err = s.DB.Exec(ctx, q, rec.GameID, rec.RoundNumber, rec.TeamNumber, rec.Role, rec.SelectedCharacterID, js)
	if err != nil {
		return fmt.Errorf("save round selection: %w", err)
	}
	return nil
}

// SaveRoundScore writes the score and explanation of an existing round row.
func (s *Postgres) SaveRoundScore(ctx context.Context, gameID uuid.UUID, round, team, score int, explanation string) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE game_rounds
		SET score = $4, explanation = $5
		WHERE game_id = $1 AND round_number = $2 AND team_number = $3
	`, gameID, round, team, score, explanation)
	if err != nil {
		return fmt.Errorf("save round score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapNotFound("round", fmt.Sprintf("%s/%d/%d", gameID, round, team))
	}
	return nil
}

// GetGameRounds returns every round record of a game ordered by round then team.
func (s *Postgres) GetGameRounds(ctx context.Context, gameID uuid.UUID) ([]models.RoundRecord, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT game_id, round_number, team_number, role, selected_character_id, votes, score, explanation
		FROM game_rounds
		WHERE game_id = $1
		ORDER BY round_number, team_number
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RoundRecord, error) {
		var r models.RoundRecord
		var raw []byte
		if err := row.Scan(&r.GameID, &r.RoundNumber, &r.TeamNumber, &r.Role,
			&r.SelectedCharacterID, &raw, &r.Score, &r.Explanation); err != nil {
			return r, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &r.Votes); err != nil {
				return r, fmt.Errorf("decode votes: %w", err)
			}
		}
		return r, nil
	})
}

// TeamUsedCharacterIDs returns the characters a team already selected in this game.
func (s *Postgres) TeamUsedCharacterIDs(ctx context.Context, gameID uuid.UUID, team int) ([]int64, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT selected_character_id
		FROM game_rounds
		WHERE game_id = $1 AND team_number = $2 AND selected_character_id IS NOT NULL
		ORDER BY round_number
	`, gameID, team)
	if err != nil {
		return nil, fmt.Errorf("query used characters: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
