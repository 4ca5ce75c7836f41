// internal/compat/compat.go
package compat

import "strings"

// Profile is the archetype a role is judged against.
type Profile string

const (
	Leader   Profile = "leader"
	Warrior  Profile = "warrior"
	Advisor  Profile = "advisor"
	Provider Profile = "provider"
	Diplomat Profile = "diplomat"
)

// Neutral is returned for any input the tables do not recognize.
const Neutral = 5

// Profiles lists every profile that has a scoring table.
var Profiles = []Profile{Leader, Warrior, Advisor, Provider, Diplomat}

var personalityScores = map[Profile]map[string]int{
	Leader: {
		"ENTJ": 10, "ESTJ": 10, "ENFJ": 9, "ENTP": 8,
		"ESFJ": 7, "ESTP": 7, "INTJ": 6, "ISTJ": 6,
		"INTP": 5, "INFJ": 5, "ISTP": 4, "ISFJ": 4,
		"ENFP": 3, "ESFP": 3, "INFP": 2, "ISFP": 2,
	},
	Warrior: {
		"ESTP": 10, "ENTP": 9, "ISTP": 9, "ENTJ": 8,
		"ESTJ": 8, "INTP": 7, "ESFP": 7, "ENFP": 6,
		"INTJ": 5, "ENFJ": 5, "ISTJ": 4, "ESFJ": 4,
		"INFJ": 3, "ISFP": 3, "INFP": 2, "ISFJ": 2,
	},
	Advisor: {
		"INTJ": 10, "INTP": 10, "ESTJ": 10, "INFJ": 9,
		"ENTJ": 8, "ENTP": 8, "ISTJ": 7, "INFP": 7,
		"ENFJ": 6, "ISTP": 5, "ENFP": 5, "ISFJ": 4,
		"ESFJ": 3, "ISFP": 3, "ESTP": 2, "ESFP": 2,
	},
	Provider: {
		"ESTJ": 10, "ENTJ": 10, "ISTJ": 9, "ESTP": 8,
		"ISTP": 8, "INTJ": 7, "ESFJ": 7, "ENTP": 6,
		"INTP": 5, "ENFJ": 5, "ISFJ": 4, "ESFP": 4,
		"ENFP": 3, "INFJ": 3, "INFP": 2, "ISFP": 2,
	},
	Diplomat: {
		"ENFJ": 10, "INFJ": 10, "ESFJ": 9, "ENFP": 8,
		"ISFJ": 8, "INFP": 7, "ENTJ": 6, "INTJ": 6,
		"ENTP": 5, "INTP": 5, "ESFP": 4, "ISFP": 4,
		"ESTJ": 3, "ISTJ": 3, "ESTP": 2, "ISTP": 2,
	},
}

var archetypeScores = map[Profile]map[string]int{
	Leader: {
		"leo": 10, "aries": 10, "capricorn": 9, "scorpio": 8,
		"sagittarius": 7, "aquarius": 7, "gemini": 6, "taurus": 6,
		"virgo": 5, "libra": 5, "cancer": 3, "pisces": 2,
	},
	Warrior: {
		"aries": 10, "scorpio": 10, "leo": 9, "sagittarius": 8,
		"capricorn": 7, "gemini": 7, "aquarius": 6, "taurus": 6,
		"virgo": 5, "cancer": 4, "libra": 3, "pisces": 2,
	},
	Advisor: {
		"virgo": 10, "aquarius": 10, "capricorn": 9, "scorpio": 8,
		"gemini": 8, "libra": 7, "pisces": 7, "cancer": 6,
		"taurus": 5, "leo": 4, "sagittarius": 3, "aries": 2,
	},
	Provider: {
		"capricorn": 10, "taurus": 10, "virgo": 9, "scorpio": 8,
		"leo": 7, "aries": 7, "gemini": 6, "aquarius": 6,
		"sagittarius": 5, "cancer": 4, "libra": 3, "pisces": 2,
	},
	Diplomat: {
		"libra": 10, "pisces": 10, "cancer": 9, "taurus": 8,
		"virgo": 7, "aquarius": 7, "gemini": 6, "capricorn": 6,
		"sagittarius": 5, "scorpio": 4, "leo": 3, "aries": 2,
	},
}

// Table resolves role names to profiles and scores trait pairs against them.
type Table struct {
	roles map[string]Profile
}

// New builds a Table from a role-name to profile mapping. Role names match case-insensitively.
func New(roles map[string]Profile) *Table {
	t := &Table{roles: make(map[string]Profile, len(roles))}
	for name, p := range roles {
		t.roles[normalize(name)] = p
	}
	return t
}

// ProfileOf returns the profile registered for role, if any.
func (t *Table) ProfileOf(role string) (Profile, bool) {
	p, ok := t.roles[normalize(role)]
	return p, ok
}

// Score returns the personality and archetype sub-scores (1..10) of a trait pair for the
// given role. Unknown roles, personality types or archetype tags score Neutral.
func (t *Table) Score(personality, archetype, role string) (int, int) {
	p, ok := t.ProfileOf(role)
	if !ok {
		return Neutral, Neutral
	}
	return lookup(personalityScores[p], strings.ToUpper(strings.TrimSpace(personality))),
		lookup(archetypeScores[p], normalize(archetype))
}

func lookup(table map[string]int, key string) int {
	if v, ok := table[key]; ok {
		return v
	}
	return Neutral
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
