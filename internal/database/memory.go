// internal/database/memory.go
package database

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/models"
)

type roundKey struct {
	game  uuid.UUID
	round int
	team  int
}

// MemoryStore is an EntityStore kept in process memory. It backs tests and
// STORE_BACKEND=memory; nothing survives a restart.
type MemoryStore struct {
	mu sync.Mutex

	rng        *rand.Rand
	nextCharID int64
	characters map[int64]models.Character
	games      map[uuid.UUID]*models.Game
	players    map[uuid.UUID][]models.Player
	rounds     map[roundKey]models.RoundRecord
	lobby      []models.LobbyEntry
	events     []models.GameEvent
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		characters: make(map[int64]models.Character),
		games:      make(map[uuid.UUID]*models.Game),
		players:    make(map[uuid.UUID][]models.Player),
		rounds:     make(map[roundKey]models.RoundRecord),
	}
}

func (m *MemoryStore) CharacterCount(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.characters), nil
}

func (m *MemoryStore) RandomCharacters(_ context.Context, n int, excludeIDs []int64) ([]models.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	pool := make([]models.Character, 0, len(m.characters))
	for id, c := range m.characters {
		if !excluded[id] {
			pool = append(pool, c)
		}
	}
	if len(pool) < n {
		return nil, fmt.Errorf("%w: wanted %d, %d available", ErrInsufficientCharacters, n, len(pool))
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	m.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n], nil
}

func (m *MemoryStore) GetCharacters(_ context.Context, ids []int64) (map[int64]models.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]models.Character, len(ids))
	for _, id := range ids {
		if c, ok := m.characters[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertCharacter(_ context.Context, c models.Character) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.characters {
		if existing.Name == c.Name {
			return 0, fmt.Errorf("character %q: %w", c.Name, ErrDuplicate)
		}
	}
	m.nextCharID++
	c.ID = m.nextCharID
	m.characters[c.ID] = c
	return c.ID, nil
}

func (m *MemoryStore) CreateGame(_ context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.games {
		if existing.RoomID == g.RoomID && existing.Status.Active() && g.Status.Active() {
			return fmt.Errorf("room %d already has an active game: %w", g.RoomID, ErrDuplicate)
		}
	}
	if g.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		g.ID = id
	}
	g.CreatedAt = time.Now()
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *MemoryStore) GetGame(_ context.Context, id uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, wrapNotFound("game", id)
	}
	cp := *g
	cp.WinnerTeams = append([]int(nil), g.WinnerTeams...)
	return &cp, nil
}

func (m *MemoryStore) ListGamesByStatus(_ context.Context, status models.GameStatus) ([]models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Game
	for _, g := range m.games {
		if g.Status == status {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ActiveGameForRoom(_ context.Context, roomID int64) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.RoomID == roomID && g.Status.Active() {
			cp := *g
			return &cp, nil
		}
	}
	return nil, wrapNotFound("active game in room", roomID)
}

func (m *MemoryStore) UpdateGameStatus(_ context.Context, id uuid.UUID, status models.GameStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return wrapNotFound("game", id)
	}
	g.Status = status
	if status == models.StatusFinished || status == models.StatusCancelled {
		now := time.Now()
		g.FinishedAt = &now
	}
	return nil
}

func (m *MemoryStore) UpdateGameRound(_ context.Context, id uuid.UUID, round int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return wrapNotFound("game", id)
	}
	g.CurrentRound = round
	return nil
}

func (m *MemoryStore) SetGameWinners(_ context.Context, id uuid.UUID, winners []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return wrapNotFound("game", id)
	}
	ws := append([]int(nil), winners...)
	sort.Ints(ws)
	g.WinnerTeams = ws
	g.WinnerTeam = nil
	if len(ws) > 0 {
		rep := ws[0]
		g.WinnerTeam = &rep
	}
	g.Status = models.StatusFinished
	now := time.Now()
	g.FinishedAt = &now
	return nil
}

func (m *MemoryStore) AddGamePlayers(_ context.Context, players []models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range players {
		list := m.players[p.GameID]
		replaced := false
		for i := range list {
			if list[i].UserID == p.UserID {
				list[i].Username = p.Username
				replaced = true
			}
		}
		if !replaced {
			list = append(list, p)
		}
		m.players[p.GameID] = list
	}
	return nil
}

func (m *MemoryStore) GetGamePlayers(_ context.Context, gameID uuid.UUID) ([]models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Player(nil), m.players[gameID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamNumber != out[j].TeamNumber {
			return out[i].TeamNumber < out[j].TeamNumber
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (m *MemoryStore) IsUserInActiveGame(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for gameID, list := range m.players {
		g, ok := m.games[gameID]
		if !ok || !g.Status.Active() {
			continue
		}
		for _, p := range list {
			if p.UserID == userID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MemoryStore) IsRoomHasActiveGame(_ context.Context, roomID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.RoomID == roomID && g.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) SaveRoundSelection(_ context.Context, rec models.RoundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := roundKey{rec.GameID, rec.RoundNumber, rec.TeamNumber}
	existing, ok := m.rounds[key]
	rec.Votes = append([]models.Vote(nil), rec.Votes...)
	if ok && sameSelection(existing.SelectedCharacterID, rec.SelectedCharacterID) {
		rec.Score = existing.Score
		rec.Explanation = existing.Explanation
	} else {
		rec.Score = nil
		rec.Explanation = nil
	}
	m.rounds[key] = rec
	return nil
}

func sameSelection(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *MemoryStore) SaveRoundScore(_ context.Context, gameID uuid.UUID, round, team, score int, explanation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := roundKey{gameID, round, team}
	rec, ok := m.rounds[key]
	if !ok {
		return wrapNotFound("round", fmt.Sprintf("%s/%d/%d", gameID, round, team))
	}
	rec.Score = &score
	rec.Explanation = &explanation
	m.rounds[key] = rec
	return nil
}

func (m *MemoryStore) GetGameRounds(_ context.Context, gameID uuid.UUID) ([]models.RoundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoundRecord
	for key, rec := range m.rounds {
		if key.game == gameID {
			rec.Votes = append([]models.Vote(nil), rec.Votes...)
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].TeamNumber < out[j].TeamNumber
	})
	return out, nil
}

func (m *MemoryStore) TeamUsedCharacterIDs(_ context.Context, gameID uuid.UUID, team int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type used struct {
		round int
		id    int64
	}
	var list []used
	for key, rec := range m.rounds {
		if key.game == gameID && key.team == team && rec.SelectedCharacterID != nil {
			list = append(list, used{key.round, *rec.SelectedCharacterID})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].round < list[j].round })
	out := make([]int64, 0, len(list))
	for _, u := range list {
		out = append(out, u.id)
	}
	return out, nil
}

func (m *MemoryStore) AddLobbyEntry(_ context.Context, e models.LobbyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.lobby {
		if existing.UserID == e.UserID {
			return fmt.Errorf("user %d: %w", e.UserID, ErrDuplicate)
		}
	}
	m.lobby = append(m.lobby, e)
	return nil
}

func (m *MemoryStore) RemoveLobbyEntry(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.lobby {
		if e.UserID == userID {
			m.lobby = append(m.lobby[:i], m.lobby[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ListLobbyEntries returns the queue in join order; ties keep insertion order.
func (m *MemoryStore) ListLobbyEntries(_ context.Context) ([]models.LobbyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.LobbyEntry(nil), m.lobby...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *MemoryStore) ClearLobby(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobby = nil
	return nil
}

// InsertGameEvents appends journal events, skipping ids already stored.
func (m *MemoryStore) InsertGameEvents(_ context.Context, events []models.GameEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool, len(m.events))
	for _, ev := range m.events {
		seen[ev.ID] = true
	}
	for _, ev := range events {
		if !seen[ev.ID] {
			m.events = append(m.events, ev)
			seen[ev.ID] = true
		}
	}
	return nil
}

// GameEvents returns the journal events stored for a game.
func (m *MemoryStore) GameEvents(gameID uuid.UUID) []models.GameEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GameEvent
	for _, ev := range m.events {
		if ev.GameID == gameID {
			out = append(out, ev)
		}
	}
	return out
}
