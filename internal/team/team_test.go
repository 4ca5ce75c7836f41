package team

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(n int) []Member {
	out := make([]Member, n)
	for i := range out {
		out[i] = Member{UserID: int64(100 + i), Username: fmt.Sprintf("p%d", i)}
	}
	return out
}

func TestFormPartitionsRoster(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []int{1, 2, 3, 4} {
		for k := 1; k <= 5; k++ {
			in := roster(size * k)
			teams, err := Form(in, size, rng)
			require.NoError(t, err)
			require.Len(t, teams, k)

			seen := make(map[int64]int)
			for i, tm := range teams {
				assert.Equal(t, i+1, tm.Number)
				require.Len(t, tm.Players, size)
				leaders := 0
				for _, p := range tm.Players {
					seen[p.UserID]++
					assert.Equal(t, tm.Number, p.TeamNumber)
					if p.IsLeader {
						leaders++
						assert.Equal(t, p.UserID, tm.LeaderID)
					}
				}
				assert.Equal(t, 1, leaders)
			}
			require.Len(t, seen, size*k)
			for id, c := range seen {
				assert.Equal(t, 1, c, "user %d", id)
			}
		}
	}
}

func TestFormRejectsBadRoster(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 4, 5, 7, 8} {
		_, err := Form(roster(n), 3, rng)
		assert.ErrorIs(t, err, ErrInvalidRosterSize, "n=%d", n)
	}
	_, err := Form(roster(3), 0, rng)
	assert.ErrorIs(t, err, ErrInvalidRosterSize)
}

func TestFormDoesNotMutateInput(t *testing.T) {
	in := roster(9)
	before := make([]Member, len(in))
	copy(before, in)
	_, err := Form(in, 3, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, before, in)
}

func TestFormReshuffles(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	in := roster(15)
	first, err := Form(in, 3, rng)
	require.NoError(t, err)

	differs := false
	for i := 0; i < 10 && !differs; i++ {
		next, err := Form(in, 3, rng)
		require.NoError(t, err)
		for ti := range next {
			for pi := range next[ti].Players {
				if next[ti].Players[pi].UserID != first[ti].Players[pi].UserID {
					differs = true
				}
			}
		}
	}
	assert.True(t, differs)
}
