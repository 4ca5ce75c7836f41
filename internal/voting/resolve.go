// internal/voting/resolve.go
package voting

import "github.com/jason-s-yu/rolecast/internal/models"

// Resolve picks a team's single choice from its votes in arrival order.
//
// A candidate with two or more votes wins outright. Without such a candidate the
// leader's vote wins if the leader voted, otherwise the first recorded vote does.
// No votes resolves to false.
func Resolve(votes []models.Vote, leaderID int64) (int64, bool) {
	if len(votes) == 0 {
		return 0, false
	}

	counts := make(map[int64]int, len(votes))
	var order []int64
	for _, v := range votes {
		if counts[v.CharacterID] == 0 {
			order = append(order, v.CharacterID)
		}
		counts[v.CharacterID]++
	}
	// equal top counts go to the candidate voted for first
	best, bestCount := int64(0), 0
	for _, id := range order {
		if counts[id] > bestCount {
			best, bestCount = id, counts[id]
		}
	}
	if bestCount >= 2 {
		return best, true
	}

	for _, v := range votes {
		if v.UserID == leaderID {
			return v.CharacterID, true
		}
	}
	return votes[0].CharacterID, true
}

// NonVoters returns the members, in roster order, who cast no vote.
func NonVoters(members []int64, votes []models.Vote) []int64 {
	voted := make(map[int64]bool, len(votes))
	for _, v := range votes {
		voted[v.UserID] = true
	}
	var out []int64
	for _, m := range members {
		if !voted[m] {
			out = append(out, m)
		}
	}
	return out
}
