// internal/ruleset/ruleset.go
package ruleset

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/jason-s-yu/rolecast/internal/compat"
)

// RoundsPerTheme is the number of roles every theme defines, one per round.
const RoundsPerTheme = 5

// Role is the role a team fills in one round.
type Role struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Profile     compat.Profile `json:"profile"`
}

// Theme is a ruleset selector: a fixed mapping from round number to role.
type Theme struct {
	ID       int                  `json:"id"`
	Name     string               `json:"name"`
	Category string               `json:"category"`
	Roles    [RoundsPerTheme]Role `json:"roles"`
}

// RoleFor returns the role for a 1-based round number.
func (t Theme) RoleFor(round int) (Role, error) {
	if round < 1 || round > RoundsPerTheme {
		return Role{}, fmt.Errorf("round %d out of range for theme %d", round, t.ID)
	}
	return t.Roles[round-1], nil
}

// ByID looks up a theme from the catalog.
func ByID(id int) (Theme, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return Theme{}, false
}

// Random picks a theme uniformly from the catalog.
func Random(rng *rand.Rand) Theme {
	return catalog[rng.Intn(len(catalog))]
}

// All returns a copy of the catalog ordered by id.
func All() []Theme {
	out := make([]Theme, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RoleProfiles maps every role name in the catalog to its scoring profile.
func RoleProfiles() map[string]compat.Profile {
	out := make(map[string]compat.Profile)
	for _, t := range catalog {
		for _, r := range t.Roles {
			out[r.Name] = r.Profile
		}
	}
	return out
}

// Compatibility returns a compatibility table covering the whole catalog.
func Compatibility() *compat.Table {
	return compat.New(RoleProfiles())
}
