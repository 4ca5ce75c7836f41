// internal/models/character.go
package models

// TraitProfile is the pair of categorical tags used for compatibility scoring.
type TraitProfile struct {
	Personality string `json:"mbti"`
	Archetype   string `json:"zodiac"`
}

// Character represents a row in the characters table. Reference data, read-only here.
type Character struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	MBTI        string `json:"mbti"`
	Zodiac      string `json:"zodiac"`
	Description string `json:"description"`
}

// Profile returns the character's trait profile.
func (c Character) Profile() TraitProfile {
	return TraitProfile{Personality: c.MBTI, Archetype: c.Zodiac}
}
