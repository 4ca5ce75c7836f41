// internal/game/recovery.go
package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/ruleset"
	"github.com/sirupsen/logrus"
)

// Resume restarts in-progress games after a restart, each at the first round not yet
// recorded for every team. Games stuck in the lobby status never finished creation and are
// cancelled. It returns the number of resumed games.
func (s *Server) Resume(ctx context.Context) (int, error) {
	stale, err := s.store.ListGamesByStatus(ctx, models.StatusLobby)
	if err != nil {
		return 0, fmt.Errorf("list lobby games: %w", err)
	}
	for _, g := range stale {
		s.abandon(ctx, g.ID)
	}

	games, err := s.store.ListGamesByStatus(ctx, models.StatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("list running games: %w", err)
	}

	resumed := 0
	for i := range games {
		g := &games[i]
		if _, ok := s.registry.get(g.ID); ok {
			continue
		}
		log := s.logger.WithFields(logrus.Fields{"game_id": g.ID, "room_id": g.RoomID})

		theme, ok := ruleset.ByID(g.ThemeID)
		if !ok {
			log.Errorf("cannot resume game: unknown theme %d", g.ThemeID)
			continue
		}
		players, err := s.store.GetGamePlayers(ctx, g.ID)
		if err != nil {
			return resumed, fmt.Errorf("load players of %s: %w", g.ID, err)
		}
		rounds, err := s.store.GetGameRounds(ctx, g.ID)
		if err != nil {
			return resumed, fmt.Errorf("load rounds of %s: %w", g.ID, err)
		}
		teams := models.GroupTeams(players)
		if len(teams) == 0 {
			log.Error("cannot resume game without players")
			continue
		}

		next := nextRound(rounds, len(teams), s.cfg.Rounds)
		rg := s.track(g, theme, teams)
		log.WithField("round", next).Info("resuming game")
		s.launch(rg, next)
		resumed++
	}
	return resumed, nil
}

// nextRound is the first round lacking a record for some team, or rounds+1 when all are recorded.
func nextRound(records []models.RoundRecord, teams, rounds int) int {
	perRound := make(map[int]int)
	for _, r := range records {
		perRound[r.RoundNumber]++
	}
	for r := 1; r <= rounds; r++ {
		if perRound[r] < teams {
			return r
		}
	}
	return rounds + 1
}
