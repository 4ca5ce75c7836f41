// internal/lobby/lobby.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/rolecast/internal/database"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoOpenLobby         = errors.New("no lobby is open")
	ErrLobbyAlreadyOpen    = errors.New("a lobby is already open in this room")
	ErrLobbyStarting       = errors.New("the previous lobby is still starting its game")
	ErrLobbyOpenElsewhere  = errors.New("a lobby is already open in another room")
	ErrRoomBusy            = errors.New("room already has an active game")
	ErrNotEnoughCharacters = errors.New("not enough characters to run a game")
	ErrAlreadyInLobby      = errors.New("player already in the lobby")
	ErrInActiveGame        = errors.New("player is already in an active game")
	ErrLobbyFull           = errors.New("lobby is full")
	ErrUndeliverable       = errors.New("player cannot be reached")
	ErrNotInLobby          = errors.New("player is not in the lobby")
)

// Reason maps a lobby rejection to the code shown to the player.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNoOpenLobby):
		return "no_open_lobby"
	case errors.Is(err, ErrLobbyAlreadyOpen):
		return "lobby_already_open"
	case errors.Is(err, ErrLobbyStarting):
		return "lobby_starting"
	case errors.Is(err, ErrLobbyOpenElsewhere):
		return "lobby_open_elsewhere"
	case errors.Is(err, ErrRoomBusy):
		return "room_busy"
	case errors.Is(err, ErrNotEnoughCharacters):
		return "not_enough_characters"
	case errors.Is(err, ErrAlreadyInLobby):
		return "already_in_lobby"
	case errors.Is(err, ErrInActiveGame):
		return "in_active_game"
	case errors.Is(err, ErrLobbyFull):
		return "lobby_full"
	case errors.Is(err, ErrUndeliverable):
		return "undeliverable"
	case errors.Is(err, ErrNotInLobby):
		return "not_in_lobby"
	default:
		return "internal_error"
	}
}

// Config bounds the lobby.
type Config struct {
	MinPlayers int
	MaxPlayers int
	TeamSize   int
	Window     time.Duration

	// MinCharacters is the pool size required before a lobby may open.
	MinCharacters int
}

// Store is the slice of the entity store the lobby needs.
type Store interface {
	AddLobbyEntry(ctx context.Context, e models.LobbyEntry) error
	RemoveLobbyEntry(ctx context.Context, userID int64) (bool, error)
	ListLobbyEntries(ctx context.Context) ([]models.LobbyEntry, error)
	ClearLobby(ctx context.Context) error
	IsUserInActiveGame(ctx context.Context, userID int64) (bool, error)
	IsRoomHasActiveGame(ctx context.Context, roomID int64) (bool, error)
	CharacterCount(ctx context.Context) (int, error)
}

// Notifier delivers lobby messages. Probe is a single attempt whose failure undoes a join.
type Notifier interface {
	Probe(ctx context.Context, userID int64, msg notify.Message) error
	User(ctx context.Context, userID int64, msg notify.Message)
	Room(ctx context.Context, roomID int64, msg notify.Message)
}

// Roster is the set of players a resolved lobby hands over to team formation.
type Roster struct {
	RoomID  int64
	Players []models.LobbyEntry
}

// ReadyFunc receives a resolved roster. Its size is a positive multiple of the team size.
type ReadyFunc func(ctx context.Context, roster Roster) error

// Manager runs the single lobby of the deployment. Only one lobby may be open at a time,
// bound to the room that opened it.
type Manager struct {
	mu sync.Mutex

	cfg      Config
	store    Store
	notifier Notifier
	logger   *logrus.Logger
	onReady  ReadyFunc
	now      func() time.Time

	open           bool
	roomID         int64
	entries        []models.LobbyEntry
	countdownTimer *time.Timer
	deadline       time.Time

	// resolving is closed when the last resolution finished; tests wait on it.
	resolving chan struct{}
}

// NewManager builds a Manager. onReady is invoked from its own goroutine.
func NewManager(cfg Config, store Store, notifier Notifier, onReady ReadyFunc, logger *logrus.Logger) *Manager {
	done := make(chan struct{})
	close(done)
	return &Manager{
		cfg:       cfg,
		store:     store,
		notifier:  notifier,
		logger:    logger,
		onReady:   onReady,
		now:       time.Now,
		resolving: done,
	}
}

// Open opens the lobby for a room.
func (m *Manager) Open(ctx context.Context, roomID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		if m.roomID == roomID {
			return ErrLobbyAlreadyOpen
		}
		return ErrLobbyOpenElsewhere
	}
	select {
	case <-m.resolving:
	default:
		return ErrLobbyStarting
	}
	busy, err := m.store.IsRoomHasActiveGame(ctx, roomID)
	if err != nil {
		return fmt.Errorf("check room: %w", err)
	}
	if busy {
		return ErrRoomBusy
	}
	count, err := m.store.CharacterCount(ctx)
	if err != nil {
		return fmt.Errorf("count characters: %w", err)
	}
	if count < m.cfg.MinCharacters {
		return fmt.Errorf("%w: %d available, %d required", ErrNotEnoughCharacters, count, m.cfg.MinCharacters)
	}

	m.open = true
	m.roomID = roomID
	m.entries = nil
	m.logger.WithField("room_id", roomID).Info("lobby opened")
	return nil
}

// Join adds a player to the open lobby. The entry is persisted and the player probed
// before Join returns; an unreachable player is rolled back with ErrUndeliverable.
func (m *Manager) Join(ctx context.Context, roomID, userID int64, username string) error {
	m.mu.Lock()

	if err := m.admit(ctx, roomID, userID); err != nil {
		m.mu.Unlock()
		return err
	}

	entry := models.LobbyEntry{UserID: userID, Username: username, RoomID: roomID, JoinedAt: m.now()}
	if err := m.store.AddLobbyEntry(ctx, entry); err != nil {
		m.mu.Unlock()
		if errors.Is(err, database.ErrDuplicate) {
			return ErrAlreadyInLobby
		}
		return fmt.Errorf("persist join: %w", err)
	}

	count := len(m.entries) + 1
	if err := m.notifier.Probe(ctx, userID, notify.LobbyJoined(username, count, m.cfg.MaxPlayers)); err != nil {
		if _, rerr := m.store.RemoveLobbyEntry(context.WithoutCancel(ctx), userID); rerr != nil {
			m.logger.WithField("user_id", userID).Errorf("rollback of undeliverable join failed: %v", rerr)
		}
		m.mu.Unlock()
		m.logger.WithField("user_id", userID).Infof("join rolled back, probe failed: %v", err)
		return fmt.Errorf("%w: %v", ErrUndeliverable, err)
	}

	m.entries = append(m.entries, entry)
	if len(m.entries) == 1 {
		m.startCountdownLocked(m.cfg.Window)
	}
	remaining := m.deadline.Sub(m.now())

	var (
		roster  *Roster
		evicted []models.LobbyEntry
	)
	if len(m.entries) >= m.cfg.MaxPlayers {
		var r Roster
		r, evicted = m.resolveFullLocked()
		roster = &r
	}
	room := m.roomID
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{"user_id": userID, "count": count}).Info("player joined lobby")
	m.notifier.Room(ctx, room, notify.LobbyUpdate(username, count, m.cfg.MinPlayers, m.cfg.MaxPlayers, remaining))
	if roster != nil {
		go m.handOver(*roster, evicted)
	}
	return nil
}

func (m *Manager) admit(ctx context.Context, roomID, userID int64) error {
	if !m.open {
		return ErrNoOpenLobby
	}
	if roomID != m.roomID {
		return ErrLobbyOpenElsewhere
	}
	for _, e := range m.entries {
		if e.UserID == userID {
			return ErrAlreadyInLobby
		}
	}
	inGame, err := m.store.IsUserInActiveGame(ctx, userID)
	if err != nil {
		return fmt.Errorf("check active game: %w", err)
	}
	if inGame {
		return ErrInActiveGame
	}
	if len(m.entries) >= m.cfg.MaxPlayers {
		return ErrLobbyFull
	}
	return nil
}

// Quit removes a player from the lobby. The countdown keeps running.
func (m *Manager) Quit(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, e := range m.entries {
		if e.UserID == userID {
			idx = i
			break
		}
	}
	if !m.open || idx < 0 {
		return ErrNotInLobby
	}
	if _, err := m.store.RemoveLobbyEntry(ctx, userID); err != nil {
		return fmt.Errorf("persist quit: %w", err)
	}
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	m.logger.WithField("user_id", userID).Info("player left lobby")
	return nil
}

// Cancel closes the lobby without starting a game.
func (m *Manager) Cancel(ctx context.Context) error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return ErrNoOpenLobby
	}
	if err := m.store.ClearLobby(ctx); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("clear lobby: %w", err)
	}
	m.stopCountdownLocked()
	room := m.roomID
	m.open = false
	m.entries = nil
	m.mu.Unlock()

	m.logger.WithField("room_id", room).Info("lobby cancelled")
	m.notifier.Room(ctx, room, notify.LobbyCancelled())
	return nil
}

// RoomID returns the room the lobby is bound to, if open.
func (m *Manager) RoomID() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomID, m.open
}

// Contains reports whether a player is queued.
func (m *Manager) Contains(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

// Snapshot is the lobby status view.
type Snapshot struct {
	Open           bool                `json:"open"`
	RoomID         int64               `json:"room_id,omitempty"`
	Count          int                 `json:"count"`
	MinPlayers     int                 `json:"min_players"`
	MaxPlayers     int                 `json:"max_players"`
	TeamSize       int                 `json:"team_size"`
	SecondsLeft    int                 `json:"seconds_left"`
	ProjectedTeams int                 `json:"projected_teams"`
	Excess         int                 `json:"excess"`
	Players        []models.LobbyEntry `json:"players"`
}

// State returns the lobby status view.
func (m *Manager) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Open:       m.open,
		RoomID:     m.roomID,
		Count:      len(m.entries),
		MinPlayers: m.cfg.MinPlayers,
		MaxPlayers: m.cfg.MaxPlayers,
		TeamSize:   m.cfg.TeamSize,
		Players:    append([]models.LobbyEntry(nil), m.entries...),
	}
	if m.countdownTimer != nil {
		if left := m.deadline.Sub(m.now()); left > 0 {
			s.SecondsLeft = int(left.Round(time.Second).Seconds())
		}
	}
	if m.cfg.TeamSize > 0 && s.Count >= m.cfg.MinPlayers {
		s.ProjectedTeams = s.Count / m.cfg.TeamSize
		s.Excess = s.Count % m.cfg.TeamSize
	}
	return s
}

// Restore reloads a lobby persisted before a restart. The countdown resumes from the
// earliest join; an elapsed window resolves immediately.
func (m *Manager) Restore(ctx context.Context) error {
	entries, err := m.store.ListLobbyEntries(ctx)
	if err != nil {
		return fmt.Errorf("load lobby: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	m.roomID = entries[0].RoomID
	m.entries = entries

	left := entries[0].JoinedAt.Add(m.cfg.Window).Sub(m.now())
	if left < 0 {
		left = 0
	}
	m.startCountdownLocked(left)
	m.logger.WithFields(logrus.Fields{"room_id": m.roomID, "count": len(entries)}).Info("lobby restored")
	return nil
}

// Wait blocks until any in-flight resolution has finished.
func (m *Manager) Wait() {
	m.mu.Lock()
	ch := m.resolving
	m.mu.Unlock()
	<-ch
}

func (m *Manager) startCountdownLocked(d time.Duration) {
	m.deadline = m.now().Add(d)
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		m.mu.Lock()
		if m.countdownTimer != timer {
			m.mu.Unlock()
			m.logger.Debug("stale lobby countdown fired, ignoring")
			return
		}
		m.countdownTimer = nil
		roster, evicted, room, ok := m.resolveTimeoutLocked()
		m.mu.Unlock()

		if !ok {
			m.notifier.Room(context.Background(), room, notify.LobbyAbandoned(len(evicted), m.cfg.MinPlayers))
			m.finishResolution(context.Background())
			return
		}
		m.handOver(roster, evicted)
	})
	m.countdownTimer = timer
}

func (m *Manager) stopCountdownLocked() {
	if m.countdownTimer != nil {
		m.countdownTimer.Stop()
		m.countdownTimer = nil
	}
}

// resolveFullLocked closes the lobby when it reaches the hard maximum. A maximum that is not
// a multiple of the team size evicts the most recent joiners beyond the last full team.
func (m *Manager) resolveFullLocked() (Roster, []models.LobbyEntry) {
	m.stopCountdownLocked()
	room := m.roomID
	entries := append([]models.LobbyEntry(nil), m.entries...)
	m.closeLocked()
	keep := len(entries) - len(entries)%m.cfg.TeamSize
	return Roster{RoomID: room, Players: entries[:keep]}, entries[keep:]
}

// resolveTimeoutLocked closes the lobby when the countdown elapses. Below the minimum the
// lobby is abandoned and ok is false (evicted then holds every entry). Otherwise the most
// recent joiners beyond the last full team are evicted.
func (m *Manager) resolveTimeoutLocked() (Roster, []models.LobbyEntry, int64, bool) {
	room := m.roomID
	entries := append([]models.LobbyEntry(nil), m.entries...)
	m.closeLocked()

	if len(entries) < m.cfg.MinPlayers || len(entries) < m.cfg.TeamSize {
		m.logger.WithFields(logrus.Fields{"room_id": room, "count": len(entries)}).Info("lobby abandoned below minimum")
		return Roster{RoomID: room}, entries, room, false
	}
	keep := len(entries) - len(entries)%m.cfg.TeamSize
	return Roster{RoomID: room, Players: entries[:keep]}, entries[keep:], room, true
}

func (m *Manager) closeLocked() {
	m.open = false
	m.entries = nil
	m.resolving = make(chan struct{})
}

// handOver evicts excess players, passes the roster on and clears the persisted queue.
func (m *Manager) handOver(roster Roster, evicted []models.LobbyEntry) {
	ctx := context.Background()
	for _, e := range evicted {
		if _, err := m.store.RemoveLobbyEntry(ctx, e.UserID); err != nil {
			m.logger.WithField("user_id", e.UserID).Errorf("evict: %v", err)
		}
		m.notifier.User(ctx, e.UserID, notify.LobbyEvicted())
	}
	if len(evicted) > 0 {
		m.logger.WithField("evicted", len(evicted)).Info("evicted most recent joiners to fill whole teams")
	}

	if m.onReady != nil {
		if err := m.onReady(ctx, roster); err != nil {
			m.logger.WithField("room_id", roster.RoomID).Errorf("starting game from lobby failed: %v", err)
			m.notifier.Room(ctx, roster.RoomID, notify.GameStartFailed())
		}
	}
	m.finishResolution(ctx)
}

func (m *Manager) finishResolution(ctx context.Context) {
	if err := m.store.ClearLobby(ctx); err != nil {
		m.logger.Errorf("clear lobby after resolution: %v", err)
	}
	m.mu.Lock()
	close(m.resolving)
	m.mu.Unlock()
}
