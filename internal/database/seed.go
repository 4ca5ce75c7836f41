// internal/database/seed.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/rolecast/internal/models"
)

// DefaultCharacters is a starter pool for fresh deployments and the memory backend.
var DefaultCharacters = []models.Character{
	{Name: "Aung San", MBTI: "ENTJ", Zodiac: "Aquarius", Description: "independence leader"},
	{Name: "Marie Curie", MBTI: "INTJ", Zodiac: "Scorpio", Description: "physicist and chemist"},
	{Name: "Nelson Mandela", MBTI: "INFJ", Zodiac: "Cancer", Description: "statesman"},
	{Name: "Steve Jobs", MBTI: "ENTP", Zodiac: "Pisces", Description: "entrepreneur"},
	{Name: "Oprah Winfrey", MBTI: "ENFJ", Zodiac: "Aquarius", Description: "talk show host"},
	{Name: "Albert Einstein", MBTI: "INTP", Zodiac: "Pisces", Description: "theoretical physicist"},
	{Name: "Taylor Swift", MBTI: "ESFJ", Zodiac: "Sagittarius", Description: "singer-songwriter"},
	{Name: "Bruce Lee", MBTI: "ESTP", Zodiac: "Sagittarius", Description: "martial artist"},
	{Name: "Frida Kahlo", MBTI: "ISFP", Zodiac: "Cancer", Description: "painter"},
	{Name: "Warren Buffett", MBTI: "ISTJ", Zodiac: "Virgo", Description: "investor"},
	{Name: "Princess Diana", MBTI: "INFP", Zodiac: "Cancer", Description: "humanitarian"},
	{Name: "Serena Williams", MBTI: "ESTJ", Zodiac: "Libra", Description: "tennis champion"},
	{Name: "Robin Williams", MBTI: "ENFP", Zodiac: "Cancer", Description: "comedian"},
	{Name: "Jeff Bezos", MBTI: "ISTJ", Zodiac: "Capricorn", Description: "entrepreneur"},
	{Name: "Lady Gaga", MBTI: "ENFP", Zodiac: "Aries", Description: "performer"},
	{Name: "Keanu Reeves", MBTI: "ISFP", Zodiac: "Virgo", Description: "actor"},
	{Name: "Michelle Obama", MBTI: "ESFJ", Zodiac: "Capricorn", Description: "lawyer and author"},
	{Name: "Bill Gates", MBTI: "INTJ", Zodiac: "Scorpio", Description: "software pioneer"},
	{Name: "Mother Teresa", MBTI: "ISFJ", Zodiac: "Virgo", Description: "missionary"},
	{Name: "Muhammad Ali", MBTI: "ESFP", Zodiac: "Capricorn", Description: "boxer"},
	{Name: "Leonardo da Vinci", MBTI: "INTP", Zodiac: "Aries", Description: "polymath"},
	{Name: "Beyonce", MBTI: "ISFJ", Zodiac: "Virgo", Description: "singer"},
	{Name: "Elon Musk", MBTI: "INTJ", Zodiac: "Cancer", Description: "engineer"},
	{Name: "Clint Eastwood", MBTI: "ISTP", Zodiac: "Gemini", Description: "actor and director"},
}

// SeedCharacters inserts chars into the store, skipping names that already exist.
// It returns the number inserted.
func SeedCharacters(ctx context.Context, store EntityStore, chars []models.Character) (int, error) {
	inserted := 0
	for _, c := range chars {
		if _, err := store.InsertCharacter(ctx, c); err != nil {
			if errors.Is(err, ErrDuplicate) {
				continue
			}
			return inserted, fmt.Errorf("seed %q: %w", c.Name, err)
		}
		inserted++
	}
	return inserted, nil
}
