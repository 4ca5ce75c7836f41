// internal/scoring/scoring.go
package scoring

import (
	"fmt"
	"sort"

	"github.com/jason-s-yu/rolecast/internal/models"
)

// Compatibility yields the two trait sub-scores of a character for a role.
type Compatibility interface {
	Score(personality, archetype, role string) (int, int)
}

// Result is the outcome of scoring one team-round selection.
type Result struct {
	Score          int    `json:"score"`
	PersonalityFit int    `json:"personality_fit"`
	ArchetypeFit   int    `json:"archetype_fit"`
	Level          string `json:"level"`
	Explanation    string `json:"explanation"`
}

// Engine combines compatibility sub-scores 60/40 into a 1..10 score.
type Engine struct {
	compat Compatibility
}

// NewEngine returns an Engine backed by the given compatibility function.
func NewEngine(c Compatibility) *Engine {
	return &Engine{compat: c}
}

// Score computes the score of character c filling role.
func (e *Engine) Score(c models.Character, role string) Result {
	tp := c.Profile()
	p, a := e.compat.Score(tp.Personality, tp.Archetype, role)
	score := Combine(p, a)
	level := Level(score)
	return Result{
		Score:          score,
		PersonalityFit: p,
		ArchetypeFit:   a,
		Level:          level,
		Explanation: fmt.Sprintf("%s is %s for %s. Personality (%s): %d/10, archetype (%s): %d/10, final score: %d/10.",
			c.Name, level, role, c.MBTI, p, c.Zodiac, a, score),
	}
}

// Combine weights the personality sub-score 60% and the archetype sub-score 40%,
// floors the result and clamps it to 1..10.
func Combine(personality, archetype int) int {
	score := (6*personality + 4*archetype) / 10
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// Level describes how well a score fits.
func Level(score int) string {
	switch {
	case score >= 9:
		return "an excellent fit"
	case score >= 7:
		return "a good fit"
	case score >= 5:
		return "an average fit"
	case score >= 3:
		return "a poor fit"
	default:
		return "a mismatch"
	}
}

// Totals sums scored records per team. Teams whose records are all unscored total 0.
func Totals(records []models.RoundRecord) map[int]int {
	totals := make(map[int]int)
	for _, r := range records {
		if _, ok := totals[r.TeamNumber]; !ok {
			totals[r.TeamNumber] = 0
		}
		if r.Score != nil {
			totals[r.TeamNumber] += *r.Score
		}
	}
	return totals
}

// Winners returns, in ascending order, every team whose total equals the maximum total.
func Winners(totals map[int]int) []int {
	if len(totals) == 0 {
		return nil
	}
	best := 0
	first := true
	for _, v := range totals {
		if first || v > best {
			best = v
			first = false
		}
	}
	var winners []int
	for team, v := range totals {
		if v == best {
			winners = append(winners, team)
		}
	}
	sort.Ints(winners)
	return winners
}
