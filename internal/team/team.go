// internal/team/team.go
package team

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/rolecast/internal/models"
)

// ErrInvalidRosterSize is returned when the roster cannot be split into full teams.
var ErrInvalidRosterSize = errors.New("roster size is not a positive multiple of the team size")

// Member is a roster entry handed to Form.
type Member struct {
	UserID   int64
	Username string
}

// Form shuffles the roster, slices it into teams of teamSize and picks one leader per team
// uniformly at random. Teams are numbered from 1. The input slice is not modified.
func Form(roster []Member, teamSize int, rng *rand.Rand) ([]models.Team, error) {
	if teamSize < 1 || len(roster) == 0 || len(roster)%teamSize != 0 {
		return nil, fmt.Errorf("%w: %d players, team size %d", ErrInvalidRosterSize, len(roster), teamSize)
	}

	shuffled := make([]Member, len(roster))
	copy(shuffled, roster)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	teams := make([]models.Team, 0, len(shuffled)/teamSize)
	for start := 0; start < len(shuffled); start += teamSize {
		number := start/teamSize + 1
		leader := rng.Intn(teamSize)

		t := models.Team{Number: number}
		for i, m := range shuffled[start : start+teamSize] {
			t.Players = append(t.Players, models.Player{
				UserID:     m.UserID,
				Username:   m.Username,
				TeamNumber: number,
				IsLeader:   i == leader,
			})
			if i == leader {
				t.LeaderID = m.UserID
			}
		}
		teams = append(teams, t)
	}
	return teams, nil
}
