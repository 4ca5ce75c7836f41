// internal/notify/messages.go
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/rolecast/internal/models"
)

// Message types.
const (
	TypeLobbyJoined     = "lobby_joined"
	TypeLobbyUpdate     = "lobby_update"
	TypeLobbyEvicted    = "lobby_evicted"
	TypeLobbyAbandoned  = "lobby_abandoned"
	TypeLobbyCancelled  = "lobby_cancelled"
	TypeGameStarted     = "game_started"
	TypeGameStartFailed = "game_start_failed"
	TypeTeamAssigned    = "team_assigned"
	TypeRoundStarted    = "round_started"
	TypeVoteRequest     = "vote_request"
	TypeVoteAccepted    = "vote_accepted"
	TypeTeammateVoted   = "teammate_voted"
	TypeMissedVote      = "missed_vote"
	TypeRoundSummary    = "round_summary"
	TypeRoundResults    = "round_results"
	TypeGameResults     = "game_results"
	TypeGameCancelled   = "game_cancelled"
	TypeGameHalted      = "game_halted"
	TypeTeamChat        = "team_chat"
)

// RandomChoiceID is the choice id that asks for a random pick from the whole pool.
const RandomChoiceID = "random"

func LobbyJoined(username string, count, max int) Message {
	return Message{
		Type: TypeLobbyJoined,
		Text: fmt.Sprintf("%s, you joined the lobby (%d/%d).", username, count, max),
		Data: map[string]interface{}{"count": count, "max": max},
	}
}

func LobbyUpdate(username string, count, min, max int, remaining time.Duration) Message {
	return Message{
		Type: TypeLobbyUpdate,
		Text: fmt.Sprintf("%s joined. %d/%d players (minimum %d). Starting in %ds.",
			username, count, max, min, int(remaining.Round(time.Second).Seconds())),
		Data: map[string]interface{}{"count": count, "min": min, "max": max},
	}
}

func LobbyEvicted() Message {
	return Message{
		Type: TypeLobbyEvicted,
		Text: "The lobby could only seat full teams, so you were removed as one of the last to join. Join the next game!",
	}
}

func LobbyAbandoned(count, min int) Message {
	return Message{
		Type: TypeLobbyAbandoned,
		Text: fmt.Sprintf("Not enough players joined (%d/%d). The lobby was closed.", count, min),
		Data: map[string]interface{}{"count": count, "min": min},
	}
}

func LobbyCancelled() Message {
	return Message{Type: TypeLobbyCancelled, Text: "The lobby was cancelled."}
}

func GameStartFailed() Message {
	return Message{Type: TypeGameStartFailed, Text: "The game could not be started. Please open a new lobby."}
}

func GameStarted(theme string, teams []models.Team) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "The game begins! Theme: %s\n", theme)
	for _, t := range teams {
		names := make([]string, 0, len(t.Players))
		for _, p := range t.Players {
			if p.IsLeader {
				names = append(names, p.Username+" (leader)")
			} else {
				names = append(names, p.Username)
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", t.Name(), strings.Join(names, ", "))
	}
	return Message{Type: TypeGameStarted, Text: strings.TrimSpace(b.String()), Data: map[string]interface{}{"theme": theme}}
}

func TeamAssigned(t models.Team, userID int64) Message {
	role := "member"
	if t.LeaderID == userID {
		role = "leader"
	}
	return Message{
		Type: TypeTeamAssigned,
		Text: fmt.Sprintf("You are a %s of %s. The leader's vote breaks three-way splits.", role, t.Name()),
		Data: map[string]interface{}{"team": t.Number, "leader": t.LeaderID == userID},
	}
}

func RoundStarted(round, total int, role, description string, window time.Duration) Message {
	return Message{
		Type: TypeRoundStarted,
		Text: fmt.Sprintf("Round %d/%d: %s (%s). Teams have %ds to vote.",
			round, total, role, description, int(window.Seconds())),
		Data: map[string]interface{}{"round": round, "role": role},
	}
}

// VoteRequest carries the candidate buttons for one team's round.
func VoteRequest(round int, team int, role string, candidates []models.Character, window time.Duration) Message {
	choices := make([]Choice, 0, len(candidates)+1)
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d: who should be your %s? You have %ds.\n", round, role, int(window.Seconds()))
	for _, c := range candidates {
		choices = append(choices, Choice{ID: strconv.FormatInt(c.ID, 10), Label: c.Name})
		fmt.Fprintf(&b, "- %s\n", c.Name)
	}
	choices = append(choices, Choice{ID: RandomChoiceID, Label: "Roll the dice"})
	return Message{
		Type:    TypeVoteRequest,
		Text:    strings.TrimSpace(b.String()),
		Choices: choices,
		Data:    map[string]interface{}{"round": round, "team": team, "role": role},
	}
}

func VoteAccepted(c models.Character, random bool) Message {
	text := fmt.Sprintf("Your vote for %s was recorded.", c.Name)
	if random {
		text = fmt.Sprintf("The dice chose %s. Your vote was recorded.", c.Name)
	}
	return Message{Type: TypeVoteAccepted, Text: text, Data: map[string]interface{}{"character_id": c.ID}}
}

func TeammateVoted(username string, c models.Character) Message {
	return Message{
		Type: TypeTeammateVoted,
		Text: fmt.Sprintf("%s voted for %s.", username, c.Name),
		Data: map[string]interface{}{"character_id": c.ID},
	}
}

func MissedVote(round int) Message {
	return Message{
		Type: TypeMissedVote,
		Text: fmt.Sprintf("You did not vote in round %d.", round),
		Data: map[string]interface{}{"round": round},
	}
}

// RoundSummary tells a team what it picked and how each member voted, in vote order.
func RoundSummary(round int, role string, selected *models.Character, votes []models.Vote, names map[int64]string, chars map[int64]models.Character) Message {
	var b strings.Builder
	if selected == nil {
		fmt.Fprintf(&b, "Round %d (%s): your team did not vote.", round, role)
	} else {
		fmt.Fprintf(&b, "Round %d (%s): your team chose %s.", round, role, selected.Name)
	}
	for _, v := range votes {
		name := chars[v.CharacterID].Name
		if v.Random {
			name += " (dice)"
		}
		fmt.Fprintf(&b, "\n- %s: %s", names[v.UserID], name)
	}
	return Message{Type: TypeRoundSummary, Text: b.String(), Data: map[string]interface{}{"round": round}}
}

// RoundResults is the room-wide announcement after a round closes.
func RoundResults(round int, role string, lines []string) Message {
	return Message{
		Type: TypeRoundResults,
		Text: fmt.Sprintf("Round %d (%s) results:\n%s", round, role, strings.Join(lines, "\n")),
		Data: map[string]interface{}{"round": round},
	}
}

func GameResults(text string, winners []int) Message {
	return Message{Type: TypeGameResults, Text: text, Data: map[string]interface{}{"winners": winners}}
}

func GameCancelled() Message {
	return Message{Type: TypeGameCancelled, Text: "The game was cancelled."}
}

func GameHalted() Message {
	return Message{Type: TypeGameHalted, Text: "The game was paused because of a technical problem. An operator has been notified."}
}

func TeamChat(from string, text string) Message {
	return Message{Type: TypeTeamChat, Text: fmt.Sprintf("%s: %s", from, text)}
}
