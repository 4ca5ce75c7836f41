package voting

import (
	"math/rand"
	"testing"

	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func votes(pairs ...int64) []models.Vote {
	out := make([]models.Vote, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Vote{UserID: pairs[i], CharacterID: pairs[i+1]})
	}
	return out
}

func TestResolveEmpty(t *testing.T) {
	_, ok := Resolve(nil, 1)
	assert.False(t, ok)
}

func TestResolveMajorityIgnoresLeader(t *testing.T) {
	// leader 1 votes A, 2 votes B, 3 votes A
	id, ok := Resolve(votes(1, 10, 2, 20, 3, 10), 1)
	require.True(t, ok)
	assert.Equal(t, int64(10), id)

	// leader in the minority
	id, ok = Resolve(votes(1, 10, 2, 20, 3, 20), 1)
	require.True(t, ok)
	assert.Equal(t, int64(20), id)
}

func TestResolveLeaderBreaksSplit(t *testing.T) {
	id, ok := Resolve(votes(1, 10, 2, 20, 3, 30), 1)
	require.True(t, ok)
	assert.Equal(t, int64(10), id)

	id, ok = Resolve(votes(1, 10, 2, 20, 3, 30), 3)
	require.True(t, ok)
	assert.Equal(t, int64(30), id)
}

func TestResolveFirstVoterWhenLeaderSilent(t *testing.T) {
	// leader is 3 and did not vote
	id, ok := Resolve(votes(1, 10, 2, 20), 3)
	require.True(t, ok)
	assert.Equal(t, int64(10), id)

	id, ok = Resolve(votes(2, 20), 3)
	require.True(t, ok)
	assert.Equal(t, int64(20), id)
}

func TestResolveMajorityProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 500; i++ {
		winner := int64(100 + rng.Intn(5))
		vs := []models.Vote{{UserID: 1, CharacterID: winner}, {UserID: 2, CharacterID: winner}}
		vs = append(vs, models.Vote{UserID: 3, CharacterID: int64(200 + rng.Intn(5))})
		rng.Shuffle(len(vs), func(a, b int) { vs[a], vs[b] = vs[b], vs[a] })
		leader := int64(1 + rng.Intn(3))

		id, ok := Resolve(vs, leader)
		require.True(t, ok)
		require.Equal(t, winner, id)
	}
}

func TestResolveLargerTeamTieGoesToFirstVoted(t *testing.T) {
	id, ok := Resolve(votes(1, 10, 2, 20, 3, 20, 4, 10), 9)
	require.True(t, ok)
	assert.Equal(t, int64(10), id)
}

func TestNonVoters(t *testing.T) {
	assert.Equal(t, []int64{2}, NonVoters([]int64{1, 2, 3}, votes(3, 10, 1, 20)))
	assert.Nil(t, NonVoters([]int64{1}, votes(1, 10)))
	assert.Equal(t, []int64{1, 2}, NonVoters([]int64{1, 2}, nil))
}
