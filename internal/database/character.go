// internal/database/character.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/rolecast/internal/models"
)

// CharacterCount returns the size of the character pool.
func (s *Postgres) CharacterCount(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM characters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count characters: %w", err)
	}
	return n, nil
}

// RandomCharacters draws n distinct characters whose ids are not in excludeIDs.
// It returns ErrInsufficientCharacters if fewer than n qualify.
func (s *Postgres) RandomCharacters(ctx context.Context, n int, excludeIDs []int64) ([]models.Character, error) {
	if excludeIDs == nil {
		excludeIDs = []int64{}
	}
	q := `
		SELECT id, name, mbti, zodiac, description
		FROM characters
		WHERE id <> ALL($1)
		ORDER BY RANDOM()
		LIMIT $2
	`
	rows, err := s.DB.Query(ctx, q, excludeIDs, n)
	if err != nil {
		return nil, fmt.Errorf("query random characters: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanCharacter)
	if err != nil {
		return nil, fmt.Errorf("scan random characters: %w", err)
	}
	if len(out) < n {
		return nil, fmt.Errorf("%w: wanted %d, %d available", ErrInsufficientCharacters, n, len(out))
	}
	return out, nil
}

// GetCharacters loads the characters with the given ids. Unknown ids are absent from the result.
func (s *Postgres) GetCharacters(ctx context.Context, ids []int64) (map[int64]models.Character, error) {
	out := make(map[int64]models.Character, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, mbti, zodiac, description
		FROM characters
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanCharacter)
	if err != nil {
		return nil, fmt.Errorf("scan characters: %w", err)
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

// InsertCharacter adds a character to the pool.
func (s *Postgres) InsertCharacter(ctx context.Context, c models.Character) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
		INSERT INTO characters (name, mbti, zodiac, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.Name, c.MBTI, c.Zodiac, c.Description).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("character %q: %w", c.Name, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert character: %w", err)
	}
	return id, nil
}

func scanCharacter(row pgx.CollectableRow) (models.Character, error) {
	var c models.Character
	err := row.Scan(&c.ID, &c.Name, &c.MBTI, &c.Zodiac, &c.Description)
	return c, err
}
