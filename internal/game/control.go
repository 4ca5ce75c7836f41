// internal/game/control.go
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/database"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/jason-s-yu/rolecast/internal/voting"
	"github.com/sirupsen/logrus"
)

// CancelGame stops a lobby or in-progress game, discards its voting state and frees its
// players. Cancelling a game that is no longer active returns ErrGameNotActive.
func (s *Server) CancelGame(ctx context.Context, gameID uuid.UUID) error {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("cancel game %s: %w", gameID, ErrGameNotActive)
		}
		return fmt.Errorf("cancel game %s: %w", gameID, err)
	}
	if !game.Status.Active() {
		return fmt.Errorf("cancel game %s: %w", gameID, ErrGameNotActive)
	}

	rg, tracked := s.registry.get(gameID)
	if tracked {
		rg.cancel()
		select {
		case <-rg.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		// the game may have finished while stopping
		if game, err = s.store.GetGame(ctx, gameID); err != nil {
			return fmt.Errorf("cancel game %s: %w", gameID, err)
		}
		if !game.Status.Active() {
			return fmt.Errorf("cancel game %s: %w", gameID, ErrGameNotActive)
		}
	} else {
		rg = &runningGame{ID: game.ID, RoomID: game.RoomID}
	}

	err = s.cfg.Retry.Do(ctx, "cancel game", func(ctx context.Context) error {
		return s.store.UpdateGameStatus(ctx, gameID, models.StatusCancelled)
	})
	if err != nil {
		return err
	}
	s.votes.Discard(gameID)
	s.registry.remove(gameID)

	s.logger.WithFields(logrus.Fields{"game_id": gameID, "room_id": game.RoomID}).Info("game cancelled")
	s.publish(ctx, rg, models.EventGameCancelled, map[string]interface{}{"round": game.CurrentRound})
	s.notifier.Room(ctx, game.RoomID, notify.GameCancelled())
	return nil
}

// CancelByPlayer cancels the game the player is seated in.
func (s *Server) CancelByPlayer(ctx context.Context, userID int64) error {
	gameID, _, ok := s.registry.SeatOf(userID)
	if !ok {
		return ErrNotInGame
	}
	return s.CancelGame(ctx, gameID)
}

// CancelInRoom cancels the active game of a room. Unless operator is set, the requester
// must be one of its players.
func (s *Server) CancelInRoom(ctx context.Context, roomID, requester int64, operator bool) error {
	game, err := s.store.ActiveGameForRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrGameNotActive
		}
		return err
	}
	if !operator {
		players, err := s.store.GetGamePlayers(ctx, game.ID)
		if err != nil {
			return err
		}
		found := false
		for _, p := range players {
			if p.UserID == requester {
				found = true
				break
			}
		}
		if !found {
			return ErrNotParticipant
		}
	}
	return s.CancelGame(ctx, game.ID)
}

// CastVote hands a ballot to the voting coordinator and notifies the voter and teammates.
// The game and team are filled from the player's seat when missing.
func (s *Server) CastVote(ctx context.Context, b voting.Ballot) (voting.Accepted, error) {
	gameID, teamNumber, seated := s.registry.SeatOf(b.UserID)
	if !seated {
		return voting.Accepted{}, voting.ErrNotOnTeam
	}
	if b.GameID == uuid.Nil {
		b.GameID = gameID
	}
	if b.Team == 0 {
		b.Team = teamNumber
	}
	if b.Round == 0 {
		if _, round, ok := s.votes.Deadline(b.GameID); ok {
			b.Round = round
		}
	}
	g, ok := s.registry.get(b.GameID)
	if !ok {
		return voting.Accepted{}, voting.ErrNoOpenRound
	}

	acc, err := s.votes.Cast(ctx, b)
	if err != nil {
		return acc, err
	}

	s.publish(ctx, g, models.EventVoteCast, map[string]interface{}{
		"round":        b.Round,
		"team":         b.Team,
		"user_id":      b.UserID,
		"character_id": acc.Character.ID,
		"random":       b.Random,
	})
	name := g.usernames()[b.UserID]
	// notifications must not hold up the caller's read loop
	nctx := context.WithoutCancel(ctx)
	go func() {
		s.notifier.User(nctx, b.UserID, notify.VoteAccepted(acc.Character, b.Random))
		s.sendEach(nctx, acc.Teammates, func(int64) notify.Message {
			return notify.TeammateVoted(name, acc.Character)
		})
	}()
	return acc, nil
}

// TeamChat relays a player's message to the rest of their team.
func (s *Server) TeamChat(ctx context.Context, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	gameID, teamNumber, ok := s.registry.SeatOf(userID)
	if !ok {
		return ErrNotInGame
	}
	g, ok := s.registry.get(gameID)
	if !ok {
		return ErrNotInGame
	}
	t, ok := g.team(teamNumber)
	if !ok {
		return ErrNotInGame
	}
	from := g.usernames()[userID]
	var mates []int64
	for _, id := range t.MemberIDs() {
		if id != userID {
			mates = append(mates, id)
		}
	}
	s.sendEach(ctx, mates, func(int64) notify.Message {
		return notify.TeamChat(from, text)
	})
	return nil
}
