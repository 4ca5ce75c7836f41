// internal/models/player.go
package models

import "github.com/google/uuid"

// Player is one user's membership in a game. TeamNumber starts at 1.
type Player struct {
	GameID     uuid.UUID `json:"game_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	TeamNumber int       `json:"team_number"`
	IsLeader   bool      `json:"is_leader"`
}

// Team groups the players sharing a team number.
type Team struct {
	Number   int      `json:"number"`
	Players  []Player `json:"players"`
	LeaderID int64    `json:"leader_id"`
}

// Name is the display name of the team, derived from its leader.
func (t Team) Name() string {
	for _, p := range t.Players {
		if p.UserID == t.LeaderID {
			return "Team " + p.Username
		}
	}
	return "Team"
}

// MemberIDs returns the user ids on the team in roster order.
func (t Team) MemberIDs() []int64 {
	ids := make([]int64, 0, len(t.Players))
	for _, p := range t.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

// GroupTeams rebuilds teams from persisted player rows, ordered by team number.
func GroupTeams(players []Player) []Team {
	byNumber := make(map[int]*Team)
	maxNumber := 0
	for _, p := range players {
		t, ok := byNumber[p.TeamNumber]
		if !ok {
			t = &Team{Number: p.TeamNumber}
			byNumber[p.TeamNumber] = t
		}
		t.Players = append(t.Players, p)
		if p.IsLeader {
			t.LeaderID = p.UserID
		}
		if p.TeamNumber > maxNumber {
			maxNumber = p.TeamNumber
		}
	}

	teams := make([]Team, 0, len(byNumber))
	for n := 1; n <= maxNumber; n++ {
		if t, ok := byNumber[n]; ok {
			teams = append(teams, *t)
		}
	}
	return teams
}
