// internal/game/results.go
package game

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/ruleset"
	"github.com/jason-s-yu/rolecast/internal/scoring"
)

// RoundLine is one team's outcome for one round.
type RoundLine struct {
	Round       int    `json:"round"`
	Role        string `json:"role"`
	CharacterID *int64 `json:"character_id,omitempty"`
	Character   string `json:"character,omitempty"`
	Score       *int   `json:"score,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// TeamResults is a team's detailed view of a game.
type TeamResults struct {
	Number  int         `json:"number"`
	Name    string      `json:"name"`
	Members []string    `json:"members"`
	Rounds  []RoundLine `json:"rounds"`
	Total   int         `json:"total"`
}

// Results is the results view of a game.
type Results struct {
	GameID  uuid.UUID         `json:"game_id"`
	Status  models.GameStatus `json:"status"`
	Theme   string            `json:"theme"`
	Teams   []TeamResults     `json:"teams"`
	Winners []int             `json:"winners"`
}

// Results builds the results view of any game from the entity store. Winners are only
// reported once the game finished.
func (s *Server) Results(ctx context.Context, gameID uuid.UUID) (*Results, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := s.store.GetGamePlayers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	rounds, err := s.store.GetGameRounds(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}

	var ids []int64
	for _, r := range rounds {
		if r.SelectedCharacterID != nil {
			ids = append(ids, *r.SelectedCharacterID)
		}
	}
	chars := map[int64]models.Character{}
	if len(ids) > 0 {
		if chars, err = s.store.GetCharacters(ctx, ids); err != nil {
			return nil, fmt.Errorf("load characters: %w", err)
		}
	}

	res := &Results{GameID: game.ID, Status: game.Status}
	if theme, ok := ruleset.ByID(game.ThemeID); ok {
		res.Theme = theme.Name
	}

	totals := scoring.Totals(rounds)
	byTeam := make(map[int]*TeamResults)
	for _, t := range models.GroupTeams(players) {
		tr := TeamResults{Number: t.Number, Name: t.Name(), Total: totals[t.Number]}
		for _, p := range t.Players {
			tr.Members = append(tr.Members, p.Username)
		}
		res.Teams = append(res.Teams, tr)
	}
	for i := range res.Teams {
		byTeam[res.Teams[i].Number] = &res.Teams[i]
	}

	sort.Slice(rounds, func(i, j int) bool { return rounds[i].RoundNumber < rounds[j].RoundNumber })
	for _, r := range rounds {
		tr, ok := byTeam[r.TeamNumber]
		if !ok {
			continue
		}
		line := RoundLine{Round: r.RoundNumber, Role: r.Role, CharacterID: r.SelectedCharacterID, Score: r.Score}
		if !r.Skipped() {
			line.Character = chars[*r.SelectedCharacterID].Name
		}
		if r.Explanation != nil {
			line.Explanation = *r.Explanation
		}
		tr.Rounds = append(tr.Rounds, line)
	}

	if game.Status == models.StatusFinished {
		res.Winners = append([]int(nil), game.WinnerTeams...)
	}
	return res, nil
}

func (r *Results) isWinner(team int) bool {
	for _, w := range r.Winners {
		if w == team {
			return true
		}
	}
	return false
}

// Text renders the room announcement.
func (r *Results) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game over! Theme: %s\n", r.Theme)
	for _, t := range r.Teams {
		fmt.Fprintf(&b, "\n%s: %d points", t.Name, t.Total)
		if r.isWinner(t.Number) {
			b.WriteString(" (winner)")
		}
		for _, l := range t.Rounds {
			b.WriteString("\n  ")
			writeLine(&b, l)
		}
	}
	if len(r.Winners) > 1 {
		b.WriteString("\n\nIt's a tie!")
	}
	return b.String()
}

// TeamText renders the detailed view sent privately to a team's members.
func (r *Results) TeamText(team int) string {
	for _, t := range r.Teams {
		if t.Number != team {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s scored %d points.", t.Name, t.Total)
		for _, l := range t.Rounds {
			b.WriteString("\n")
			writeLine(&b, l)
			if l.Explanation != "" {
				b.WriteString("\n  " + l.Explanation)
			}
		}
		if r.isWinner(team) {
			b.WriteString("\nYour team won!")
		}
		return b.String()
	}
	return r.Text()
}

func writeLine(b *strings.Builder, l RoundLine) {
	if l.CharacterID == nil {
		fmt.Fprintf(b, "Round %d %s: no vote", l.Round, l.Role)
		return
	}
	score := "-"
	if l.Score != nil {
		score = fmt.Sprintf("%d/10", *l.Score)
	}
	fmt.Fprintf(b, "Round %d %s: %s %s", l.Round, l.Role, l.Character, score)
}
