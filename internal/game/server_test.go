package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/database"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/jason-s-yu/rolecast/internal/team"
	"github.com/jason-s-yu/rolecast/internal/voting"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoom = int64(42)

// recorder collects every message the server sends.
type recorder struct {
	mu   sync.Mutex
	user map[int64][]notify.Message
	room map[int64][]notify.Message
}

func newRecorder() *recorder {
	return &recorder{user: make(map[int64][]notify.Message), room: make(map[int64][]notify.Message)}
}

func (r *recorder) User(_ context.Context, userID int64, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user[userID] = append(r.user[userID], msg)
}

func (r *recorder) Room(_ context.Context, roomID int64, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room[roomID] = append(r.room[roomID], msg)
}

func (r *recorder) userMessages(userID int64, typ string) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.user[userID] {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) roomHas(roomID int64, typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.room[roomID] {
		if m.Type == typ {
			return true
		}
	}
	return false
}

type eventLog struct {
	mu     sync.Mutex
	events []models.GameEvent
}

func (l *eventLog) PublishGameEvent(_ context.Context, ev models.GameEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) ofType(typ string) []models.GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.GameEvent
	for _, ev := range l.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	store  *database.MemoryStore
	votes  *voting.Coordinator
	rec    *recorder
	events *eventLog
	srv    *Server
}

func newHarness(t *testing.T, window time.Duration, chars []models.Character) *harness {
	t.Helper()
	store := database.NewMemoryStore()
	_, err := database.SeedCharacters(context.Background(), store, chars)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		store:  store,
		votes:  voting.NewCoordinator(store),
		rec:    newRecorder(),
		events: &eventLog{},
	}
	cfg := Config{
		TeamSize:    3,
		Rounds:      5,
		Candidates:  4,
		RoundWindow: window,
		Retry:       RetryPolicy{Attempts: 2, Backoff: time.Millisecond},
	}
	h.srv = NewServer(cfg, store, h.votes, h.rec, h.events, logger)
	t.Cleanup(h.srv.Close)
	return h
}

func roster(n int) []team.Member {
	out := make([]team.Member, n)
	for i := range out {
		out[i] = team.Member{UserID: int64(i + 1), Username: fmt.Sprintf("p%d", i+1)}
	}
	return out
}

func (h *harness) waitStatus(t *testing.T, id uuid.UUID, status models.GameStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		g, err := h.store.GetGame(context.Background(), id)
		return err == nil && g.Status == status
	}, 5*time.Second, 5*time.Millisecond)
}

func (h *harness) waitRound(t *testing.T, id uuid.UUID, round int) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, open, ok := h.votes.Deadline(id)
		return ok && open == round
	}, 5*time.Second, 2*time.Millisecond)
}

// candidateFor returns the first candidate offered to a player for a round.
func (h *harness) candidateFor(t *testing.T, userID int64, round int) int64 {
	t.Helper()
	var id int64
	require.Eventually(t, func() bool {
		for _, m := range h.rec.userMessages(userID, notify.TypeVoteRequest) {
			if m.Data["round"] == round {
				parsed, err := strconv.ParseInt(m.Choices[0].ID, 10, 64)
				require.NoError(t, err)
				id = parsed
				return true
			}
		}
		return false
	}, 5*time.Second, 2*time.Millisecond)
	return id
}

func TestGameWithoutVotesFinishesAsTie(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond, database.DefaultCharacters)
	ctx := context.Background()

	g, err := h.srv.StartGame(ctx, testRoom, roster(6))
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, g.Status)

	h.waitStatus(t, g.ID, models.StatusFinished)

	rounds, err := h.store.GetGameRounds(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, rounds, 10)
	for _, r := range rounds {
		assert.Nil(t, r.SelectedCharacterID)
		assert.Nil(t, r.Score)
	}

	stored, err := h.store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, stored.WinnerTeams)
	require.NotNil(t, stored.WinnerTeam)
	assert.Equal(t, 1, *stored.WinnerTeam)

	require.Eventually(t, func() bool { return h.rec.roomHas(testRoom, notify.TypeGameResults) }, time.Second, 5*time.Millisecond)
	assert.True(t, h.rec.roomHas(testRoom, notify.TypeGameStarted))
	assert.Len(t, h.events.ofType(models.EventRoundStarted), 5)
	assert.Len(t, h.events.ofType(models.EventRoundFinalized), 5)
	assert.Len(t, h.events.ofType(models.EventGameFinished), 1)

	for _, id := range []int64{1, 2, 3, 4, 5, 6} {
		assert.Len(t, h.rec.userMessages(id, notify.TypeTeamAssigned), 1)
		assert.Len(t, h.rec.userMessages(id, notify.TypeMissedVote), 5)
	}
	assert.Zero(t, h.srv.Registry().Len())
}

func TestUnanimousVotesCloseRoundsEarlyAndScore(t *testing.T) {
	h := newHarness(t, 10*time.Second, database.DefaultCharacters)
	ctx := context.Background()

	start := time.Now()
	g, err := h.srv.StartGame(ctx, testRoom, roster(6))
	require.NoError(t, err)
	teams := h.registryTeams(t, g.ID)

	for round := 1; round <= 5; round++ {
		h.waitRound(t, g.ID, round)
		for _, tm := range teams {
			pick := h.candidateFor(t, tm.Players[0].UserID, round)
			for _, p := range tm.Players {
				_, err := h.srv.CastVote(ctx, voting.Ballot{GameID: g.ID, Round: round, Team: tm.Number, UserID: p.UserID, CharacterID: pick})
				require.NoError(t, err)
			}
		}
	}

	h.waitStatus(t, g.ID, models.StatusFinished)
	assert.Less(t, time.Since(start), 10*time.Second)

	rounds, err := h.store.GetGameRounds(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 10)
	used := map[int]map[int64]bool{1: {}, 2: {}}
	for _, r := range rounds {
		require.NotNil(t, r.SelectedCharacterID)
		require.NotNil(t, r.Score)
		assert.GreaterOrEqual(t, *r.Score, 1)
		assert.LessOrEqual(t, *r.Score, 10)
		assert.Len(t, r.Votes, 3)
		assert.False(t, used[r.TeamNumber][*r.SelectedCharacterID], "character reused by team %d", r.TeamNumber)
		used[r.TeamNumber][*r.SelectedCharacterID] = true
	}

	res, err := h.srv.Results(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, res.Teams, 2)
	for _, tr := range res.Teams {
		assert.Len(t, tr.Rounds, 5)
		sum := 0
		for _, l := range tr.Rounds {
			sum += *l.Score
		}
		assert.Equal(t, sum, tr.Total)
	}
	assert.NotEmpty(t, res.Winners)
	assert.Contains(t, res.Text(), "Game over!")
}

func (h *harness) registryTeams(t *testing.T, id uuid.UUID) []models.Team {
	t.Helper()
	g, ok := h.srv.registry.get(id)
	require.True(t, ok)
	return g.Teams
}

func TestCastVoteNotifiesAndRejectsSecondVote(t *testing.T) {
	h := newHarness(t, 10*time.Second, database.DefaultCharacters)
	ctx := context.Background()

	g, err := h.srv.StartGame(ctx, testRoom, roster(6))
	require.NoError(t, err)
	teams := h.registryTeams(t, g.ID)
	h.waitRound(t, g.ID, 1)

	voter := teams[0].Players[0].UserID
	pick := h.candidateFor(t, voter, 1)

	// game, team and round are filled from the player's seat
	acc, err := h.srv.CastVote(ctx, voting.Ballot{UserID: voter, CharacterID: pick})
	require.NoError(t, err)
	assert.Equal(t, pick, acc.Character.ID)
	assert.Len(t, acc.Teammates, 2)

	_, err = h.srv.CastVote(ctx, voting.Ballot{UserID: voter, CharacterID: pick})
	assert.ErrorIs(t, err, voting.ErrAlreadyVoted)

	require.Eventually(t, func() bool {
		return len(h.rec.userMessages(voter, notify.TypeVoteAccepted)) == 1
	}, time.Second, 2*time.Millisecond)
	for _, mate := range acc.Teammates {
		require.Eventually(t, func() bool {
			return len(h.rec.userMessages(mate, notify.TypeTeammateVoted)) == 1
		}, time.Second, 2*time.Millisecond)
	}
	other := teams[1].Players[0].UserID
	assert.Empty(t, h.rec.userMessages(other, notify.TypeTeammateVoted))
	assert.Len(t, h.events.ofType(models.EventVoteCast), 1)

	_, err = h.srv.CastVote(ctx, voting.Ballot{UserID: 99, CharacterID: pick})
	assert.ErrorIs(t, err, voting.ErrNotOnTeam)
}

func TestCancelGameIsIdempotentAndFreesPlayers(t *testing.T) {
	h := newHarness(t, 10*time.Second, database.DefaultCharacters)
	ctx := context.Background()

	g, err := h.srv.StartGame(ctx, testRoom, roster(6))
	require.NoError(t, err)
	h.waitRound(t, g.ID, 1)

	require.NoError(t, h.srv.CancelGame(ctx, g.ID))

	stored, err := h.store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	_, _, open := h.votes.Deadline(g.ID)
	assert.False(t, open)
	_, _, seated := h.srv.Registry().SeatOf(1)
	assert.False(t, seated)
	busy, err := h.store.IsUserInActiveGame(ctx, 1)
	require.NoError(t, err)
	assert.False(t, busy)
	assert.True(t, h.rec.roomHas(testRoom, notify.TypeGameCancelled))
	assert.Len(t, h.events.ofType(models.EventGameCancelled), 1)

	err = h.srv.CancelGame(ctx, g.ID)
	assert.ErrorIs(t, err, ErrGameNotActive)

	rounds, err := h.store.GetGameRounds(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, rounds)

	// the same players can start over in the same room
	g2, err := h.srv.StartGame(ctx, testRoom, roster(6))
	require.NoError(t, err)
	assert.NotEqual(t, g.ID, g2.ID)
}

func TestCancelInRoomChecksParticipant(t *testing.T) {
	h := newHarness(t, 10*time.Second, database.DefaultCharacters)
	ctx := context.Background()

	_, err := h.srv.StartGame(ctx, testRoom, roster(3))
	require.NoError(t, err)

	assert.ErrorIs(t, h.srv.CancelInRoom(ctx, testRoom, 99, false), ErrNotParticipant)
	require.NoError(t, h.srv.CancelInRoom(ctx, testRoom, 2, false))
	assert.ErrorIs(t, h.srv.CancelInRoom(ctx, testRoom, 2, false), ErrGameNotActive)
	assert.ErrorIs(t, h.srv.CancelByPlayer(ctx, 2), ErrNotInGame)
}

func TestInsufficientCharactersHaltsGame(t *testing.T) {
	h := newHarness(t, 10*time.Second, database.DefaultCharacters[:3])
	ctx := context.Background()

	g, err := h.srv.StartGame(ctx, testRoom, roster(3))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.rec.roomHas(testRoom, notify.TypeGameHalted) }, 2*time.Second, 5*time.Millisecond)
	halted := h.events.ofType(models.EventGameHalted)
	require.Len(t, halted, 1)
	assert.Equal(t, 1, halted[0].Payload["round"])

	stored, err := h.store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	rg, ok := h.srv.registry.get(g.ID)
	require.True(t, ok)
	assert.True(t, rg.Halted())

	require.NoError(t, h.srv.CancelGame(ctx, g.ID))
	assert.Zero(t, h.srv.Registry().Len())
}

func TestTeamChatReachesTeammatesOnly(t *testing.T) {
	h := newHarness(t, 10*time.Second, database.DefaultCharacters)
	ctx := context.Background()

	g, err := h.srv.StartGame(ctx, testRoom, roster(6))
	require.NoError(t, err)
	teams := h.registryTeams(t, g.ID)

	sender := teams[0].Players[0]
	require.NoError(t, h.srv.TeamChat(ctx, sender.UserID, "pick the wizard"))

	for _, p := range teams[0].Players[1:] {
		msgs := h.rec.userMessages(p.UserID, notify.TypeTeamChat)
		require.Len(t, msgs, 1)
		assert.Equal(t, sender.Username+": pick the wizard", msgs[0].Text)
	}
	assert.Empty(t, h.rec.userMessages(sender.UserID, notify.TypeTeamChat))
	for _, p := range teams[1].Players {
		assert.Empty(t, h.rec.userMessages(p.UserID, notify.TypeTeamChat))
	}

	assert.ErrorIs(t, h.srv.TeamChat(ctx, 99, "hi"), ErrNotInGame)
}

func TestResumeStartsAtFirstIncompleteRound(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, database.DefaultCharacters)
	ctx := context.Background()

	g := &models.Game{RoomID: testRoom, Status: models.StatusInProgress, ThemeID: 1, CurrentRound: 3}
	require.NoError(t, h.store.CreateGame(ctx, g))
	var players []models.Player
	for i := 1; i <= 6; i++ {
		players = append(players, models.Player{
			GameID:     g.ID,
			UserID:     int64(i),
			Username:   fmt.Sprintf("p%d", i),
			TeamNumber: (i-1)/3 + 1,
			IsLeader:   i == 1 || i == 4,
		})
	}
	require.NoError(t, h.store.AddGamePlayers(ctx, players))

	chars, err := h.store.RandomCharacters(ctx, 2, nil)
	require.NoError(t, err)
	for round := 1; round <= 2; round++ {
		for tm := 1; tm <= 2; tm++ {
			id := chars[round-1].ID
			require.NoError(t, h.store.SaveRoundSelection(ctx, models.RoundRecord{
				GameID: g.ID, RoundNumber: round, TeamNumber: tm, Role: "King", SelectedCharacterID: &id,
				Votes: []models.Vote{{UserID: int64(tm*3 - 2), CharacterID: id}},
			}))
		}
	}
	require.NoError(t, h.store.SaveRoundSelection(ctx, models.RoundRecord{GameID: g.ID, RoundNumber: 3, TeamNumber: 1, Role: "General"}))

	stale := &models.Game{RoomID: testRoom + 1, Status: models.StatusLobby, ThemeID: 1}
	require.NoError(t, h.store.CreateGame(ctx, stale))

	n, err := h.srv.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h.waitStatus(t, g.ID, models.StatusFinished)
	h.waitStatus(t, stale.ID, models.StatusCancelled)

	started := h.events.ofType(models.EventRoundStarted)
	require.Len(t, started, 3)
	assert.Equal(t, 3, started[0].Payload["round"])

	rounds, err := h.store.GetGameRounds(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, rounds, 10)
	for _, r := range rounds {
		if r.RoundNumber <= 2 {
			assert.NotNil(t, r.Score)
		}
	}
}

func TestNextRound(t *testing.T) {
	rec := func(round, team int) models.RoundRecord {
		return models.RoundRecord{RoundNumber: round, TeamNumber: team}
	}
	assert.Equal(t, 1, nextRound(nil, 2, 5))
	assert.Equal(t, 2, nextRound([]models.RoundRecord{rec(1, 1), rec(1, 2)}, 2, 5))
	assert.Equal(t, 2, nextRound([]models.RoundRecord{rec(1, 1), rec(1, 2), rec(2, 2)}, 2, 5))
	var all []models.RoundRecord
	for r := 1; r <= 5; r++ {
		all = append(all, rec(r, 1))
	}
	assert.Equal(t, 6, nextRound(all, 1, 5))
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()
	p := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(ctx, "flaky", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = p.Do(ctx, "down", func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down failed after 3 attempts")
	assert.Equal(t, 3, calls)

	calls = 0
	err = p.Do(ctx, "missing", func(context.Context) error {
		calls++
		return database.ErrNotFound
	})
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Equal(t, 1, calls)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	calls = 0
	err = RetryPolicy{Attempts: 5, Backoff: time.Hour}.Do(cancelled, "slow", func(context.Context) error {
		calls++
		return errors.New("timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls, "no attempt after cancellation")
}

// brokenRounds fails every round write.
type brokenRounds struct {
	*database.MemoryStore
	saves atomic.Int32
}

func (b *brokenRounds) SaveRoundSelection(context.Context, models.RoundRecord) error {
	b.saves.Add(1)
	return errors.New("connection reset by peer")
}

func TestRoundStorageFailureHaltsGame(t *testing.T) {
	mem := database.NewMemoryStore()
	_, err := database.SeedCharacters(context.Background(), mem, database.DefaultCharacters)
	require.NoError(t, err)
	store := &brokenRounds{MemoryStore: mem}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	rec := newRecorder()
	events := &eventLog{}
	srv := NewServer(Config{
		TeamSize:    3,
		Rounds:      5,
		Candidates:  4,
		RoundWindow: 20 * time.Millisecond,
		Retry:       RetryPolicy{Attempts: 2, Backoff: time.Millisecond},
	}, store, voting.NewCoordinator(store), rec, events, logger)
	t.Cleanup(srv.Close)
	ctx := context.Background()

	g, err := srv.StartGame(ctx, testRoom, roster(6))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.roomHas(testRoom, notify.TypeGameHalted) }, 2*time.Second, 5*time.Millisecond)
	halted := events.ofType(models.EventGameHalted)
	require.Len(t, halted, 1)
	assert.Equal(t, 1, halted[0].Payload["round"])

	// the failing write was retried before giving up
	assert.GreaterOrEqual(t, store.saves.Load(), int32(2))

	stored, err := store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	assert.Equal(t, 1, stored.CurrentRound)

	// the round is not skipped: nothing further opens
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, events.ofType(models.EventRoundStarted), 1)
	assert.Empty(t, events.ofType(models.EventRoundFinalized))
	assert.False(t, rec.roomHas(testRoom, notify.TypeRoundResults))
	rounds, err := store.GetGameRounds(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, rounds)
}
