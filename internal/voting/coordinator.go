// internal/voting/coordinator.go
package voting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/models"
)

var (
	ErrAlreadyVoted     = errors.New("player already voted this round")
	ErrVoteWindowClosed = errors.New("voting window closed")
	ErrInvalidChoice    = errors.New("choice is not a candidate this round")
	ErrNotOnTeam        = errors.New("player is not on this team")
	ErrNoOpenRound      = errors.New("no open round")
)

// Reason maps a vote rejection to the code shown to the player.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrVoteWindowClosed):
		return "vote_window_closed"
	case errors.Is(err, ErrInvalidChoice):
		return "invalid_choice"
	case errors.Is(err, ErrNotOnTeam):
		return "not_on_team"
	case errors.Is(err, ErrNoOpenRound):
		return "no_open_round"
	default:
		return "internal_error"
	}
}

// CharacterPool draws characters from the system-wide pool.
type CharacterPool interface {
	RandomCharacters(ctx context.Context, n int, excludeIDs []int64) ([]models.Character, error)
}

// TeamBallot describes one team's voting for a round.
type TeamBallot struct {
	Team       int
	Members    []int64
	LeaderID   int64
	Candidates []models.Character
}

// Ballot is a normalized vote handed over by the transport layer.
type Ballot struct {
	GameID      uuid.UUID
	Round       int
	Team        int
	UserID      int64
	CharacterID int64
	Random      bool
}

// Accepted is the outcome of a successful Cast.
type Accepted struct {
	Vote      models.Vote
	Character models.Character
	Teammates []int64
}

type teamState struct {
	members    []int64
	memberSet  map[int64]bool
	leader     int64
	candidates map[int64]models.Character
	votes      []models.Vote
	voted      map[int64]bool
	pending    map[int64]bool
}

type roundState struct {
	number    int
	deadline  time.Time
	teams     map[int]*teamState
	remaining int
	complete  chan struct{}
	closed    bool
}

// Coordinator collects votes for the open round of every running game.
type Coordinator struct {
	mu     sync.Mutex
	rounds map[uuid.UUID]*roundState
	pool   CharacterPool
	now    func() time.Time
}

// NewCoordinator returns a Coordinator drawing random picks from pool.
func NewCoordinator(pool CharacterPool) *Coordinator {
	return &Coordinator{
		rounds: make(map[uuid.UUID]*roundState),
		pool:   pool,
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// OpenRound starts collecting votes for a round, replacing any previous round of the game.
// Every team shares the same deadline. The returned channel is closed once every member
// of every team has voted.
func (c *Coordinator) OpenRound(gameID uuid.UUID, number int, deadline time.Time, teams []TeamBallot) (<-chan struct{}, error) {
	if len(teams) == 0 {
		return nil, fmt.Errorf("open round %d: no teams", number)
	}
	rs := &roundState{
		number:   number,
		deadline: deadline,
		teams:    make(map[int]*teamState, len(teams)),
		complete: make(chan struct{}),
	}
	for _, tb := range teams {
		if _, dup := rs.teams[tb.Team]; dup {
			return nil, fmt.Errorf("open round %d: duplicate team %d", number, tb.Team)
		}
		ts := &teamState{
			members:    append([]int64(nil), tb.Members...),
			memberSet:  make(map[int64]bool, len(tb.Members)),
			leader:     tb.LeaderID,
			candidates: make(map[int64]models.Character, len(tb.Candidates)),
			voted:      make(map[int64]bool),
			pending:    make(map[int64]bool),
		}
		for _, m := range tb.Members {
			ts.memberSet[m] = true
		}
		for _, ch := range tb.Candidates {
			ts.candidates[ch.ID] = ch
		}
		rs.teams[tb.Team] = ts
		rs.remaining += len(ts.memberSet)
	}
	if rs.remaining == 0 {
		close(rs.complete)
	}

	c.mu.Lock()
	c.rounds[gameID] = rs
	c.mu.Unlock()
	return rs.complete, nil
}

// Cast records a ballot. The first vote of a player in a round is final; votes
// arriving after the deadline are rejected even if the round has not been closed.
func (c *Coordinator) Cast(ctx context.Context, b Ballot) (Accepted, error) {
	c.mu.Lock()
	at := c.now()
	ts, err := c.admit(b, at)
	if err != nil {
		c.mu.Unlock()
		return Accepted{}, err
	}

	var pick models.Character
	if b.Random {
		// reserve the slot while the pool is consulted without the lock
		ts.pending[b.UserID] = true
		c.mu.Unlock()

		picks, perr := c.pool.RandomCharacters(ctx, 1, nil)

		c.mu.Lock()
		delete(ts.pending, b.UserID)
		if perr != nil {
			c.mu.Unlock()
			return Accepted{}, fmt.Errorf("random pick: %w", perr)
		}
		if len(picks) == 0 {
			c.mu.Unlock()
			return Accepted{}, fmt.Errorf("random pick: empty character pool")
		}
		pick = picks[0]
		if rs, ok := c.rounds[b.GameID]; !ok || rs.number != b.Round || rs.closed {
			c.mu.Unlock()
			return Accepted{}, ErrVoteWindowClosed
		}
	} else {
		ch, ok := ts.candidates[b.CharacterID]
		if !ok {
			c.mu.Unlock()
			return Accepted{}, ErrInvalidChoice
		}
		pick = ch
	}

	vote := models.Vote{UserID: b.UserID, CharacterID: pick.ID, Random: b.Random, CastAt: at}
	ts.votes = append(ts.votes, vote)
	ts.voted[b.UserID] = true

	rs := c.rounds[b.GameID]
	rs.remaining--
	if rs.remaining == 0 {
		close(rs.complete)
	}

	var mates []int64
	for _, m := range ts.members {
		if m != b.UserID {
			mates = append(mates, m)
		}
	}
	c.mu.Unlock()

	return Accepted{Vote: vote, Character: pick, Teammates: mates}, nil
}

// admit validates a ballot against the open round. Callers hold c.mu.
func (c *Coordinator) admit(b Ballot, at time.Time) (*teamState, error) {
	rs, ok := c.rounds[b.GameID]
	if !ok {
		return nil, ErrNoOpenRound
	}
	if b.Round < rs.number || (b.Round == rs.number && rs.closed) {
		return nil, ErrVoteWindowClosed
	}
	if b.Round > rs.number {
		return nil, ErrNoOpenRound
	}
	ts, ok := rs.teams[b.Team]
	if !ok || !ts.memberSet[b.UserID] {
		return nil, ErrNotOnTeam
	}
	if ts.voted[b.UserID] || ts.pending[b.UserID] {
		return nil, ErrAlreadyVoted
	}
	if at.After(rs.deadline) {
		return nil, ErrVoteWindowClosed
	}
	return ts, nil
}

// TeamResult is a team's finalized vote for a round.
type TeamResult struct {
	Team      int
	Votes     []models.Vote
	Selection *int64
	NonVoters []int64
}

// CloseRound stops accepting votes and returns each team's votes and resolved selection.
func (c *Coordinator) CloseRound(gameID uuid.UUID, number int) (map[int]TeamResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rs, ok := c.rounds[gameID]
	if !ok || rs.number != number {
		return nil, fmt.Errorf("close round %d of game %s: %w", number, gameID, ErrNoOpenRound)
	}
	rs.closed = true

	out := make(map[int]TeamResult, len(rs.teams))
	for team, ts := range rs.teams {
		votes := append([]models.Vote(nil), ts.votes...)
		res := TeamResult{Team: team, Votes: votes, NonVoters: NonVoters(ts.members, votes)}
		if id, ok := Resolve(votes, ts.leader); ok {
			res.Selection = &id
		}
		out[team] = res
	}
	return out, nil
}

// Discard forgets all voting state of a game.
func (c *Coordinator) Discard(gameID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rounds, gameID)
}

// Deadline returns the deadline of the game's open round.
func (c *Coordinator) Deadline(gameID uuid.UUID) (time.Time, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs, ok := c.rounds[gameID]
	if !ok || rs.closed {
		return time.Time{}, 0, false
	}
	return rs.deadline, rs.number, true
}
