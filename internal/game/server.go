// internal/game/server.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/database"
	"github.com/jason-s-yu/rolecast/internal/lobby"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/jason-s-yu/rolecast/internal/ruleset"
	"github.com/jason-s-yu/rolecast/internal/scoring"
	"github.com/jason-s-yu/rolecast/internal/team"
	"github.com/jason-s-yu/rolecast/internal/voting"
	"github.com/sirupsen/logrus"
)

var (
	ErrGameNotActive  = errors.New("game is not active")
	ErrNotInGame      = errors.New("not in an active game")
	ErrNotParticipant = errors.New("not a participant of this game")
)

// Notifier delivers game messages on a best-effort basis.
type Notifier interface {
	User(ctx context.Context, userID int64, msg notify.Message)
	Room(ctx context.Context, roomID int64, msg notify.Message)
}

// EventPublisher hands lifecycle events to the journal.
type EventPublisher interface {
	PublishGameEvent(ctx context.Context, ev models.GameEvent) error
}

type discardEvents struct{}

func (discardEvents) PublishGameEvent(context.Context, models.GameEvent) error { return nil }

// Config holds the per-game settings of the orchestrator.
type Config struct {
	TeamSize    int
	Rounds      int
	Candidates  int
	RoundWindow time.Duration
	Retry       RetryPolicy
}

// Server runs every active game as its own goroutine.
type Server struct {
	cfg      Config
	store    database.EntityStore
	votes    *voting.Coordinator
	notifier Notifier
	events   EventPublisher
	scorer   *scoring.Engine
	registry *Registry
	logger   *logrus.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	cancelMu sync.Mutex

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewServer builds a Server. events may be nil when no journal is configured.
func NewServer(cfg Config, store database.EntityStore, votes *voting.Coordinator, notifier Notifier, events EventPublisher, logger *logrus.Logger) *Server {
	if events == nil {
		events = discardEvents{}
	}
	base, stop := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		store:    store,
		votes:    votes,
		notifier: notifier,
		events:   events,
		scorer:   scoring.NewEngine(ruleset.Compatibility()),
		registry: NewRegistry(),
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		base:     base,
		stop:     stop,
	}
}

// Registry exposes the running games.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Close stops every game goroutine without touching persisted state, so Resume can pick
// the games up again.
func (s *Server) Close() {
	s.stop()
	s.wg.Wait()
}

// StartFromLobby adapts a resolved lobby roster to StartGame.
func (s *Server) StartFromLobby(ctx context.Context, r lobby.Roster) error {
	roster := make([]team.Member, 0, len(r.Players))
	for _, p := range r.Players {
		roster = append(roster, team.Member{UserID: p.UserID, Username: p.Username})
	}
	_, err := s.StartGame(ctx, r.RoomID, roster)
	return err
}

// StartGame forms teams, persists the game and launches its rounds.
func (s *Server) StartGame(ctx context.Context, roomID int64, roster []team.Member) (*models.Game, error) {
	s.rngMu.Lock()
	teams, err := team.Form(roster, s.cfg.TeamSize, s.rng)
	theme := ruleset.Random(s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("form teams: %w", err)
	}

	g := &models.Game{RoomID: roomID, Status: models.StatusLobby, ThemeID: theme.ID}
	if err := s.store.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	var players []models.Player
	for i := range teams {
		for j := range teams[i].Players {
			teams[i].Players[j].GameID = g.ID
			players = append(players, teams[i].Players[j])
		}
	}
	if err := s.store.AddGamePlayers(ctx, players); err != nil {
		s.abandon(ctx, g.ID)
		return nil, fmt.Errorf("add players: %w", err)
	}
	if err := s.store.UpdateGameStatus(ctx, g.ID, models.StatusInProgress); err != nil {
		s.abandon(ctx, g.ID)
		return nil, fmt.Errorf("start game: %w", err)
	}
	g.Status = models.StatusInProgress

	rg := s.track(g, theme, teams)
	s.logger.WithFields(logrus.Fields{
		"game_id": g.ID,
		"room_id": roomID,
		"theme":   theme.Name,
		"teams":   len(teams),
	}).Info("game started")

	s.publish(ctx, rg, models.EventGameStarted, map[string]interface{}{
		"room_id":  roomID,
		"theme_id": theme.ID,
		"players":  players,
	})
	s.notifier.Room(ctx, roomID, notify.GameStarted(theme.Name, teams))
	for _, t := range teams {
		s.sendEach(ctx, t.MemberIDs(), func(userID int64) notify.Message {
			return notify.TeamAssigned(t, userID)
		})
	}

	s.launch(rg, 1)
	return g, nil
}

func (s *Server) abandon(ctx context.Context, id uuid.UUID) {
	if err := s.store.UpdateGameStatus(ctx, id, models.StatusCancelled); err != nil {
		s.logger.WithField("game_id", id).Errorf("failed to cancel half-created game: %v", err)
	}
}

func (s *Server) track(g *models.Game, theme ruleset.Theme, teams []models.Team) *runningGame {
	ctx, cancel := context.WithCancel(s.base)
	rg := &runningGame{
		ID:     g.ID,
		RoomID: g.RoomID,
		Theme:  theme,
		Teams:  teams,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.registry.add(rg)
	return rg
}

func (s *Server) launch(g *runningGame, from int) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(g.done)
		s.run(g.ctx, g, from)
	}()
}

// run plays the rounds starting at from, then finishes the game.
func (s *Server) run(ctx context.Context, g *runningGame, from int) {
	log := s.logger.WithFields(logrus.Fields{"game_id": g.ID, "room_id": g.RoomID})
	for round := from; round <= s.cfg.Rounds; round++ {
		if err := s.playRound(ctx, g, round); err != nil {
			if ctx.Err() != nil {
				log.WithField("round", round).Info("game stopped")
				return
			}
			s.halt(ctx, g, round, err)
			return
		}
	}
	if err := s.finish(ctx, g); err != nil {
		if ctx.Err() != nil {
			log.Info("game stopped while finishing")
			return
		}
		s.halt(ctx, g, 0, err)
	}
}

// halt leaves the game in progress for an operator to inspect or cancel.
func (s *Server) halt(ctx context.Context, g *runningGame, round int, err error) {
	g.setHalted()
	s.votes.Discard(g.ID)
	s.logger.WithFields(logrus.Fields{
		"game_id": g.ID,
		"room_id": g.RoomID,
		"round":   round,
	}).Errorf("game halted, operator action required: %v", err)
	s.publish(ctx, g, models.EventGameHalted, map[string]interface{}{
		"round": round,
		"error": err.Error(),
	})
	s.notifier.Room(ctx, g.RoomID, notify.GameHalted())
}

func (s *Server) publish(ctx context.Context, g *runningGame, typ string, payload map[string]interface{}) {
	ev := models.NewGameEvent(g.ID, g.nextSeq(), typ, payload)
	if err := s.events.PublishGameEvent(ctx, ev); err != nil {
		s.logger.WithFields(logrus.Fields{"game_id": g.ID, "event": typ}).Warnf("failed to publish game event: %v", err)
	}
}

// sendEach delivers a message to every user concurrently and waits for all sends.
func (s *Server) sendEach(ctx context.Context, userIDs []int64, build func(userID int64) notify.Message) {
	var wg sync.WaitGroup
	for _, id := range userIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.notifier.User(ctx, id, build(id))
		}()
	}
	wg.Wait()
}
