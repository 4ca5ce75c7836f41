// internal/game/finish.go
package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/rolecast/internal/database"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/jason-s-yu/rolecast/internal/scoring"
	"github.com/sirupsen/logrus"
)

// finish scores every unscored round, records the winners and announces the results.
func (s *Server) finish(ctx context.Context, g *runningGame) error {
	var records []models.RoundRecord
	err := s.cfg.Retry.Do(ctx, "load rounds", func(ctx context.Context) error {
		var err error
		records, err = s.store.GetGameRounds(ctx, g.ID)
		return err
	})
	if err != nil {
		return err
	}

	var ids []int64
	for _, r := range records {
		if r.Score == nil && r.SelectedCharacterID != nil {
			ids = append(ids, *r.SelectedCharacterID)
		}
	}
	chars := map[int64]models.Character{}
	if len(ids) > 0 {
		err = s.cfg.Retry.Do(ctx, "load selected characters", func(ctx context.Context) error {
			var err error
			chars, err = s.store.GetCharacters(ctx, ids)
			return err
		})
		if err != nil {
			return err
		}
	}

	for i := range records {
		rec := &records[i]
		if rec.Score != nil || rec.SelectedCharacterID == nil {
			continue
		}
		c, ok := chars[*rec.SelectedCharacterID]
		if !ok {
			return fmt.Errorf("score round %d team %d: character %d: %w",
				rec.RoundNumber, rec.TeamNumber, *rec.SelectedCharacterID, database.ErrNotFound)
		}
		res := s.scorer.Score(c, rec.Role)
		op := fmt.Sprintf("save score round %d team %d", rec.RoundNumber, rec.TeamNumber)
		err := s.cfg.Retry.Do(ctx, op, func(ctx context.Context) error {
			return s.store.SaveRoundScore(ctx, g.ID, rec.RoundNumber, rec.TeamNumber, res.Score, res.Explanation)
		})
		if err != nil {
			return err
		}
		score, explanation := res.Score, res.Explanation
		rec.Score, rec.Explanation = &score, &explanation
	}

	totals := scoring.Totals(records)
	for _, t := range g.Teams {
		if _, ok := totals[t.Number]; !ok {
			totals[t.Number] = 0
		}
	}
	winners := scoring.Winners(totals)
	err = s.cfg.Retry.Do(ctx, "record winners", func(ctx context.Context) error {
		return s.store.SetGameWinners(ctx, g.ID, winners)
	})
	if err != nil {
		return err
	}
	s.votes.Discard(g.ID)
	s.registry.remove(g.ID)

	s.logger.WithFields(logrus.Fields{
		"game_id": g.ID,
		"winners": winners,
		"totals":  totals,
	}).Info("game finished")
	s.publish(ctx, g, models.EventGameFinished, map[string]interface{}{
		"winners": winners,
		"totals":  totals,
	})

	results, err := s.Results(ctx, g.ID)
	if err != nil {
		s.logger.WithField("game_id", g.ID).Warnf("failed to build results view: %v", err)
		s.notifier.Room(ctx, g.RoomID, notify.GameResults(fmt.Sprintf("Game over! Winning teams: %v", winners), winners))
	} else {
		s.notifier.Room(ctx, g.RoomID, notify.GameResults(results.Text(), winners))
		for _, t := range g.Teams {
			text := results.TeamText(t.Number)
			s.sendEach(ctx, t.MemberIDs(), func(int64) notify.Message {
				return notify.GameResults(text, winners)
			})
		}
	}
	return nil
}
