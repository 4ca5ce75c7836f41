package voting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPool struct {
	pick models.Character
	err  error
}

func (p stubPool) RandomCharacters(_ context.Context, n int, _ []int64) ([]models.Character, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []models.Character{p.pick}, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func candidates(ids ...int64) []models.Character {
	out := make([]models.Character, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Character{ID: id, Name: "c"})
	}
	return out
}

func setup(t *testing.T) (*Coordinator, *fakeClock, uuid.UUID, <-chan struct{}) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewCoordinator(stubPool{pick: models.Character{ID: 99, Name: "dice"}})
	c.SetClock(clock.now)
	gameID := uuid.New()
	done, err := c.OpenRound(gameID, 1, clock.now().Add(60*time.Second), []TeamBallot{
		{Team: 1, Members: []int64{1, 2, 3}, LeaderID: 1, Candidates: candidates(10, 11, 12, 13)},
		{Team: 2, Members: []int64{4, 5, 6}, LeaderID: 6, Candidates: candidates(20, 21, 22, 23)},
	})
	require.NoError(t, err)
	return c, clock, gameID, done
}

func TestCastAcceptsOncePerPlayer(t *testing.T) {
	c, _, gameID, _ := setup(t)
	ctx := context.Background()

	acc, err := c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, CharacterID: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), acc.Vote.CharacterID)
	assert.Equal(t, []int64{2, 3}, acc.Teammates)

	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, CharacterID: 10})
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, CharacterID: 11})
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, Random: true})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	res, err := c.CloseRound(gameID, 1)
	require.NoError(t, err)
	require.Len(t, res[1].Votes, 1)
	assert.Equal(t, int64(10), res[1].Votes[0].CharacterID)
}

func TestCastRejectsLateVote(t *testing.T) {
	c, clock, gameID, _ := setup(t)
	ctx := context.Background()

	clock.advance(60 * time.Second)
	_, err := c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 2, CharacterID: 10})
	require.NoError(t, err, "a vote exactly at the deadline is on time")

	clock.advance(time.Millisecond)
	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 2, UserID: 4, CharacterID: 20})
	assert.ErrorIs(t, err, ErrVoteWindowClosed)
	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 2, UserID: 5, Random: true})
	assert.ErrorIs(t, err, ErrVoteWindowClosed)
}

func TestCastValidation(t *testing.T) {
	c, _, gameID, _ := setup(t)
	ctx := context.Background()

	_, err := c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, CharacterID: 20})
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 2, UserID: 1, CharacterID: 20})
	assert.ErrorIs(t, err, ErrNotOnTeam)
	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 77, CharacterID: 10})
	assert.ErrorIs(t, err, ErrNotOnTeam)
	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 2, Team: 1, UserID: 1, CharacterID: 10})
	assert.ErrorIs(t, err, ErrNoOpenRound)
	_, err = c.Cast(ctx, Ballot{GameID: uuid.New(), Round: 1, Team: 1, UserID: 1, CharacterID: 10})
	assert.ErrorIs(t, err, ErrNoOpenRound)

	// an invalid choice does not consume the player's vote
	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, CharacterID: 10})
	assert.NoError(t, err)

	assert.Equal(t, "already_voted", Reason(ErrAlreadyVoted))
	assert.Equal(t, "vote_window_closed", Reason(ErrVoteWindowClosed))
	assert.Equal(t, "internal_error", Reason(errors.New("boom")))
}

func TestRandomVoteUsesWholePool(t *testing.T) {
	c, _, gameID, _ := setup(t)
	acc, err := c.Cast(context.Background(), Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 3, Random: true})
	require.NoError(t, err)
	assert.Equal(t, int64(99), acc.Vote.CharacterID)
	assert.True(t, acc.Vote.Random)
	assert.Equal(t, "dice", acc.Character.Name)
}

func TestRandomVotePoolFailureLeavesVoteOpen(t *testing.T) {
	c := NewCoordinator(stubPool{err: errors.New("db down")})
	gameID := uuid.New()
	_, err := c.OpenRound(gameID, 1, time.Now().Add(time.Minute), []TeamBallot{
		{Team: 1, Members: []int64{1}, LeaderID: 1, Candidates: candidates(10)},
	})
	require.NoError(t, err)

	_, err = c.Cast(context.Background(), Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, Random: true})
	require.Error(t, err)
	_, err = c.Cast(context.Background(), Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, CharacterID: 10})
	assert.NoError(t, err)
}

func TestCloseRoundResolvesPerTeam(t *testing.T) {
	c, _, gameID, done := setup(t)
	ctx := context.Background()

	cast := func(team int, user, choice int64) {
		_, err := c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: team, UserID: user, CharacterID: choice})
		require.NoError(t, err)
	}
	cast(1, 2, 11)
	cast(1, 3, 12)
	cast(1, 1, 13)
	cast(2, 4, 20)
	cast(2, 5, 21)

	select {
	case <-done:
		t.Fatal("round reported complete with a player outstanding")
	default:
	}

	res, err := c.CloseRound(gameID, 1)
	require.NoError(t, err)
	require.NotNil(t, res[1].Selection)
	assert.Equal(t, int64(13), *res[1].Selection, "leader breaks a three-way split")
	require.NotNil(t, res[2].Selection)
	assert.Equal(t, int64(20), *res[2].Selection, "first voter when leader is silent")
	assert.Equal(t, []int64{6}, res[2].NonVoters)

	_, err = c.Cast(ctx, Ballot{GameID: gameID, Round: 1, Team: 2, UserID: 6, CharacterID: 20})
	assert.ErrorIs(t, err, ErrVoteWindowClosed)
}

func TestCompleteSignalsWhenEveryoneVoted(t *testing.T) {
	c, _, gameID, done := setup(t)
	ctx := context.Background()
	for _, b := range []Ballot{
		{Team: 1, UserID: 1, CharacterID: 10}, {Team: 1, UserID: 2, CharacterID: 10}, {Team: 1, UserID: 3, Random: true},
		{Team: 2, UserID: 4, CharacterID: 20}, {Team: 2, UserID: 5, CharacterID: 21}, {Team: 2, UserID: 6, CharacterID: 22},
	} {
		b.GameID, b.Round = gameID, 1
		_, err := c.Cast(ctx, b)
		require.NoError(t, err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("complete channel not closed")
	}
}

func TestDiscardDropsState(t *testing.T) {
	c, _, gameID, _ := setup(t)
	c.Discard(gameID)
	_, err := c.Cast(context.Background(), Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 1, CharacterID: 10})
	assert.ErrorIs(t, err, ErrNoOpenRound)
	_, err = c.CloseRound(gameID, 1)
	assert.ErrorIs(t, err, ErrNoOpenRound)
}

func TestConcurrentCastsKeepOnePerPlayer(t *testing.T) {
	c, _, gameID, _ := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := Ballot{GameID: gameID, Round: 1, Team: 1, UserID: 2, CharacterID: 10}
			if i%2 == 0 {
				b.Random = true
			}
			if _, err := c.Cast(ctx, b); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}
