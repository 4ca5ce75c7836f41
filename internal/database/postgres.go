// internal/database/postgres.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/rolecast/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientCharacters is returned when fewer characters remain than were requested.
	ErrInsufficientCharacters = errors.New("insufficient characters")

	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate entry")
)

// EntityStore is the durable storage consumed by the lobby and the round orchestrator.
type EntityStore interface {
	CharacterCount(ctx context.Context) (int, error)
	RandomCharacters(ctx context.Context, n int, excludeIDs []int64) ([]models.Character, error)
	GetCharacters(ctx context.Context, ids []int64) (map[int64]models.Character, error)
	InsertCharacter(ctx context.Context, c models.Character) (int64, error)

	CreateGame(ctx context.Context, g *models.Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	ListGamesByStatus(ctx context.Context, status models.GameStatus) ([]models.Game, error)
	ActiveGameForRoom(ctx context.Context, roomID int64) (*models.Game, error)
	UpdateGameStatus(ctx context.Context, id uuid.UUID, status models.GameStatus) error
	UpdateGameRound(ctx context.Context, id uuid.UUID, round int) error
	SetGameWinners(ctx context.Context, id uuid.UUID, winners []int) error
	AddGamePlayers(ctx context.Context, players []models.Player) error
	GetGamePlayers(ctx context.Context, gameID uuid.UUID) ([]models.Player, error)
	IsUserInActiveGame(ctx context.Context, userID int64) (bool, error)
	IsRoomHasActiveGame(ctx context.Context, roomID int64) (bool, error)

	SaveRoundSelection(ctx context.Context, rec models.RoundRecord) error
	SaveRoundScore(ctx context.Context, gameID uuid.UUID, round, team, score int, explanation string) error
	GetGameRounds(ctx context.Context, gameID uuid.UUID) ([]models.RoundRecord, error)
	TeamUsedCharacterIDs(ctx context.Context, gameID uuid.UUID, team int) ([]int64, error)

	AddLobbyEntry(ctx context.Context, e models.LobbyEntry) error
	RemoveLobbyEntry(ctx context.Context, userID int64) (bool, error)
	ListLobbyEntries(ctx context.Context) ([]models.LobbyEntry, error)
	ClearLobby(ctx context.Context) error
}

var (
	_ EntityStore = (*Postgres)(nil)
	_ EntityStore = (*MemoryStore)(nil)
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func wrapNotFound(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}
