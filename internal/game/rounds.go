// internal/game/rounds.go
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/jason-s-yu/rolecast/internal/ruleset"
	"github.com/jason-s-yu/rolecast/internal/voting"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// playRound distributes candidates, waits for the vote window and persists every team's outcome.
func (s *Server) playRound(ctx context.Context, g *runningGame, round int) error {
	role, err := g.Theme.RoleFor(round)
	if err != nil {
		return err
	}
	err = s.cfg.Retry.Do(ctx, "update round", func(ctx context.Context) error {
		return s.store.UpdateGameRound(ctx, g.ID, round)
	})
	if err != nil {
		return err
	}

	ballots := make([]voting.TeamBallot, 0, len(g.Teams))
	for _, t := range g.Teams {
		candidates, err := s.candidates(ctx, g, t.Number)
		if err != nil {
			return fmt.Errorf("round %d candidates for team %d: %w", round, t.Number, err)
		}
		ballots = append(ballots, voting.TeamBallot{
			Team:       t.Number,
			Members:    t.MemberIDs(),
			LeaderID:   t.LeaderID,
			Candidates: candidates,
		})
	}

	deadline := time.Now().Add(s.cfg.RoundWindow)
	complete, err := s.votes.OpenRound(g.ID, round, deadline, ballots)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"game_id": g.ID,
		"round":   round,
		"role":    role.Name,
	}).Debug("round opened")
	s.publish(ctx, g, models.EventRoundStarted, map[string]interface{}{
		"round":    round,
		"role":     role.Name,
		"deadline": deadline.UnixMilli(),
	})
	s.notifier.Room(ctx, g.RoomID, notify.RoundStarted(round, s.cfg.Rounds, role.Name, role.Description, s.cfg.RoundWindow))
	for i, t := range g.Teams {
		candidates := ballots[i].Candidates
		s.sendEach(ctx, t.MemberIDs(), func(int64) notify.Message {
			return notify.VoteRequest(round, t.Number, role.Name, candidates, time.Until(deadline))
		})
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.votes.Discard(g.ID)
		return ctx.Err()
	case <-complete:
	case <-timer.C:
	}

	results, err := s.votes.CloseRound(g.ID, round)
	if err != nil {
		return err
	}
	return s.finalizeRound(ctx, g, round, role, results)
}

func (s *Server) candidates(ctx context.Context, g *runningGame, teamNumber int) ([]models.Character, error) {
	var used []int64
	err := s.cfg.Retry.Do(ctx, "load used characters", func(ctx context.Context) error {
		var err error
		used, err = s.store.TeamUsedCharacterIDs(ctx, g.ID, teamNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	var out []models.Character
	err = s.cfg.Retry.Do(ctx, "draw candidates", func(ctx context.Context) error {
		var err error
		out, err = s.store.RandomCharacters(ctx, s.cfg.Candidates, used)
		return err
	})
	return out, err
}

// finalizeRound persists all teams of a round before anything is announced.
func (s *Server) finalizeRound(ctx context.Context, g *runningGame, round int, role ruleset.Role, results map[int]voting.TeamResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, t := range g.Teams {
		res := results[t.Number]
		rec := models.RoundRecord{
			GameID:              g.ID,
			RoundNumber:         round,
			TeamNumber:          t.Number,
			Role:                role.Name,
			SelectedCharacterID: res.Selection,
			Votes:               res.Votes,
		}
		eg.Go(func() error {
			op := fmt.Sprintf("save round %d team %d", round, rec.TeamNumber)
			return s.cfg.Retry.Do(egCtx, op, func(ctx context.Context) error {
				return s.store.SaveRoundSelection(ctx, rec)
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	chars := s.voteCharacters(ctx, results)
	names := g.usernames()
	lines := make([]string, 0, len(g.Teams))
	selections := make(map[int]interface{}, len(g.Teams))
	for _, t := range g.Teams {
		res := results[t.Number]
		var selected *models.Character
		if res.Selection != nil {
			c, ok := chars[*res.Selection]
			if !ok {
				c = models.Character{ID: *res.Selection, Name: fmt.Sprintf("#%d", *res.Selection)}
			}
			selected = &c
			selections[t.Number] = c.ID
		} else {
			selections[t.Number] = nil
		}

		s.sendEach(ctx, res.NonVoters, func(int64) notify.Message {
			return notify.MissedVote(round)
		})
		summary := notify.RoundSummary(round, role.Name, selected, res.Votes, names, chars)
		s.sendEach(ctx, t.MemberIDs(), func(int64) notify.Message { return summary })

		if selected == nil {
			lines = append(lines, fmt.Sprintf("%s: no vote", t.Name()))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", t.Name(), selected.Name))
		}
	}
	s.notifier.Room(ctx, g.RoomID, notify.RoundResults(round, role.Name, lines))
	s.publish(ctx, g, models.EventRoundFinalized, map[string]interface{}{
		"round":      round,
		"role":       role.Name,
		"selections": selections,
	})
	return nil
}

// voteCharacters loads every character that received a vote. Lookup failures only
// degrade the announcements.
func (s *Server) voteCharacters(ctx context.Context, results map[int]voting.TeamResult) map[int64]models.Character {
	seen := make(map[int64]bool)
	var ids []int64
	for _, res := range results {
		for _, v := range res.Votes {
			if !seen[v.CharacterID] {
				seen[v.CharacterID] = true
				ids = append(ids, v.CharacterID)
			}
		}
	}
	if len(ids) == 0 {
		return map[int64]models.Character{}
	}
	chars, err := s.store.GetCharacters(ctx, ids)
	if err != nil {
		s.logger.Warnf("failed to load voted characters: %v", err)
		return map[int64]models.Character{}
	}
	return chars
}
