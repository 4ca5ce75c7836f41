// internal/handlers/player_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/lobby"
	"github.com/jason-s-yu/rolecast/internal/middleware"
	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/jason-s-yu/rolecast/internal/voting"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol players must speak.
const Subprotocol = "rolecast"

// ClientMessage is an inbound frame from a player.
type ClientMessage struct {
	Type   string `json:"type"`
	GameID string `json:"game_id,omitempty"`
	Round  int    `json:"round,omitempty"`
	Team   int    `json:"team,omitempty"`
	Choice string `json:"choice,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Reply acknowledges or rejects a ClientMessage.
type Reply struct {
	Type    string      `json:"type"` // ack | error
	Request string      `json:"request"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func ack(request string, data interface{}) Reply {
	return Reply{Type: "ack", Request: request, Data: data}
}

func reject(request, reason string) Reply {
	return Reply{Type: "error", Request: request, Reason: reason}
}

// PlayerWSHandler upgrades a player connection from a chat room. The socket is the
// player's notification channel and the intake for lobby, vote and chat actions.
func (s *APIServer) PlayerWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the rolecast subprotocol")
		return
	}
	player, err := s.Sessions.AuthenticateJWT(requestToken(r))
	if err != nil {
		c.Close(InvalidAuthTokenError, "invalid session token")
		return
	}
	room, ok := parseRoomID(r.URL.Query().Get("room"))
	if !ok {
		c.Close(InvalidRoomIDError, "missing or invalid room")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	conn := &playerConn{
		UserID:   player.UserID,
		Username: player.Username,
		RoomID:   room,
		OutChan:  make(chan interface{}, 32),
		Cancel:   cancel,
	}
	if prev := s.Gateway.register(conn); prev != nil {
		prev.Cancel()
	}
	defer s.Gateway.unregister(conn)

	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, player.UserID)
	go writePump(ctx, c, conn, s.Logger)
	err = s.readPump(ctx, c, conn)
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, player.UserID, err)

	if conn.replaced.Load() {
		c.Close(SessionReplacedError, "connected elsewhere")
	}
}

func (s *APIServer) readPump(ctx context.Context, c *websocket.Conn, conn *playerConn) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = enqueue(ctx, conn, reject("", "invalid_json"))
			continue
		}
		reply := s.handleClientMessage(ctx, conn, msg)
		if err := enqueue(ctx, conn, reply); err != nil {
			s.Logger.WithField("user_id", conn.UserID).Warnf("reply dropped: %v", err)
		}
	}
}

// handleClientMessage dispatches one inbound frame.
func (s *APIServer) handleClientMessage(ctx context.Context, conn *playerConn, msg ClientMessage) Reply {
	log := s.Logger.WithFields(logrus.Fields{"user_id": conn.UserID, "type": msg.Type})

	switch msg.Type {
	case "lobby_open":
		if err := s.Lobby.Open(ctx, conn.RoomID); err != nil {
			return s.lobbyReject(log, msg.Type, err)
		}
		return ack(msg.Type, s.Lobby.State())

	case "lobby_join":
		if err := s.Lobby.Join(ctx, conn.RoomID, conn.UserID, conn.Username); err != nil {
			return s.lobbyReject(log, msg.Type, err)
		}
		return ack(msg.Type, s.Lobby.State())

	case "lobby_quit":
		if err := s.Lobby.Quit(ctx, conn.UserID); err != nil {
			return s.lobbyReject(log, msg.Type, err)
		}
		return ack(msg.Type, nil)

	case "lobby_status":
		return ack(msg.Type, s.Lobby.State())

	case "vote":
		b, reason := ballotFrom(conn.UserID, msg)
		if reason != "" {
			return reject(msg.Type, reason)
		}
		acc, err := s.Games.CastVote(ctx, b)
		if err != nil {
			reason := voting.Reason(err)
			if reason == "internal_error" {
				log.Errorf("vote failed: %v", err)
			} else {
				log.Debugf("vote rejected: %v", err)
			}
			return reject(msg.Type, reason)
		}
		return ack(msg.Type, map[string]interface{}{
			"character_id": acc.Character.ID,
			"character":    acc.Character.Name,
			"random":       acc.Vote.Random,
		})

	case "cancel_game":
		if err := s.Games.CancelByPlayer(ctx, conn.UserID); err != nil {
			reason := gameReason(err)
			if reason == "internal_error" {
				log.Errorf("cancel failed: %v", err)
			}
			return reject(msg.Type, reason)
		}
		return ack(msg.Type, nil)

	case "team_chat":
		if err := s.Games.TeamChat(ctx, conn.UserID, msg.Text); err != nil {
			return reject(msg.Type, gameReason(err))
		}
		return ack(msg.Type, nil)

	default:
		return reject(msg.Type, "unknown_type")
	}
}

func (s *APIServer) lobbyReject(log *logrus.Entry, request string, err error) Reply {
	reason := lobby.Reason(err)
	if reason == "internal_error" {
		log.Errorf("lobby action failed: %v", err)
	} else {
		log.Debugf("lobby action rejected: %v", err)
	}
	return reject(request, reason)
}

// ballotFrom normalizes a vote frame. Game, round and team may be omitted.
func ballotFrom(userID int64, msg ClientMessage) (voting.Ballot, string) {
	b := voting.Ballot{UserID: userID, Round: msg.Round, Team: msg.Team}
	if msg.GameID != "" {
		id, err := uuid.Parse(msg.GameID)
		if err != nil {
			return b, "invalid_game_id"
		}
		b.GameID = id
	}
	choice := strings.TrimSpace(msg.Choice)
	if choice == notify.RandomChoiceID {
		b.Random = true
		return b, ""
	}
	id, err := strconv.ParseInt(choice, 10, 64)
	if err != nil {
		return b, voting.Reason(voting.ErrInvalidChoice)
	}
	b.CharacterID = id
	return b, ""
}

// writePump serializes queued frames to the socket and pings periodically.
func writePump(ctx context.Context, c *websocket.Conn, conn *playerConn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing frame for user %d: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket for user %d: %v", conn.UserID, err)
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				conn.Cancel()
				return
			}
		}
	}
}
