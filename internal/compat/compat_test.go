package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreKnownRole(t *testing.T) {
	tbl := New(map[string]Profile{"King": Leader, "Monk": Diplomat})

	m, z := tbl.Score("ENTJ", "Leo", "King")
	assert.Equal(t, 10, m)
	assert.Equal(t, 10, z)

	m, z = tbl.Score("estp", " aries ", "monk")
	assert.Equal(t, 2, m)
	assert.Equal(t, 2, z)
}

func TestScoreUnknownInputsAreNeutral(t *testing.T) {
	tbl := New(map[string]Profile{"King": Leader})

	m, z := tbl.Score("ENTJ", "Leo", "Jester")
	assert.Equal(t, Neutral, m)
	assert.Equal(t, Neutral, z)

	m, z = tbl.Score("XXXX", "Ophiuchus", "King")
	assert.Equal(t, Neutral, m)
	assert.Equal(t, Neutral, z)
}

func TestTablesStayInRange(t *testing.T) {
	for _, p := range Profiles {
		assert.Len(t, personalityScores[p], 16, "profile %s", p)
		assert.Len(t, archetypeScores[p], 12, "profile %s", p)
		for k, v := range personalityScores[p] {
			assert.True(t, v >= 1 && v <= 10, "%s/%s=%d", p, k, v)
		}
		for k, v := range archetypeScores[p] {
			assert.True(t, v >= 1 && v <= 10, "%s/%s=%d", p, k, v)
		}
	}
}
