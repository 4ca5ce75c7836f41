// internal/game/registry.go
package game

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/ruleset"
)

// runningGame is the in-memory state of one game owned by the orchestrator.
type runningGame struct {
	ID     uuid.UUID
	RoomID int64
	Theme  ruleset.Theme
	Teams  []models.Team

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	seq    int
	halted bool
}

func (g *runningGame) nextSeq() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.seq
}

func (g *runningGame) setHalted() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halted = true
}

// Halted reports whether the game stopped on an unrecoverable error.
func (g *runningGame) Halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted
}

func (g *runningGame) team(number int) (models.Team, bool) {
	for _, t := range g.Teams {
		if t.Number == number {
			return t, true
		}
	}
	return models.Team{}, false
}

func (g *runningGame) usernames() map[int64]string {
	names := make(map[int64]string)
	for _, t := range g.Teams {
		for _, p := range t.Players {
			names[p.UserID] = p.Username
		}
	}
	return names
}

type seat struct {
	gameID uuid.UUID
	team   int
}

// Registry tracks running games and which game and team each player sits in.
// Entries are added on game start and purged on finish or cancellation.
type Registry struct {
	mu      sync.Mutex
	games   map[uuid.UUID]*runningGame
	players map[int64]seat
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		games:   make(map[uuid.UUID]*runningGame),
		players: make(map[int64]seat),
	}
}

func (r *Registry) add(g *runningGame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.ID] = g
	for _, t := range g.Teams {
		for _, p := range t.Players {
			r.players[p.UserID] = seat{gameID: g.ID, team: t.Number}
		}
	}
}

func (r *Registry) get(id uuid.UUID) (*runningGame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	return g, ok
}

func (r *Registry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return
	}
	for _, t := range g.Teams {
		for _, p := range t.Players {
			if s, ok := r.players[p.UserID]; ok && s.gameID == id {
				delete(r.players, p.UserID)
			}
		}
	}
	delete(r.games, id)
}

// SeatOf returns the game and team a player currently plays in.
func (r *Registry) SeatOf(userID int64) (uuid.UUID, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.players[userID]
	return s.gameID, s.team, ok
}

// Len returns the number of tracked games.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}
