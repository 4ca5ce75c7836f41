// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/auth"
	"github.com/jason-s-yu/rolecast/internal/database"
	"github.com/jason-s-yu/rolecast/internal/game"
	"github.com/jason-s-yu/rolecast/internal/lobby"
	"github.com/jason-s-yu/rolecast/internal/middleware"
	"github.com/sirupsen/logrus"
)

// OperatorKeyHeader carries the operator key on privileged requests.
const OperatorKeyHeader = "X-Operator-Key"

// APIServer holds everything the HTTP and websocket handlers need.
type APIServer struct {
	Logger   *logrus.Logger
	Sessions *auth.Sessions
	Operator *auth.OperatorKey
	Lobby    *lobby.Manager
	Games    *game.Server
	Store    database.EntityStore
	Gateway  *Gateway
}

// Routes builds the service mux, every route wrapped in request logging.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", s.operatorOnly(s.CreateSessionHandler))
	mux.HandleFunc("POST /rooms/{room}/lobby", s.operatorOnly(s.OpenLobbyHandler))
	mux.HandleFunc("DELETE /rooms/{room}/lobby", s.operatorOnly(s.CancelLobbyHandler))
	mux.HandleFunc("GET /lobby", s.LobbyStatusHandler)
	mux.HandleFunc("POST /games/{id}/cancel", s.operatorOnly(s.CancelGameHandler))
	mux.HandleFunc("DELETE /rooms/{room}/game", s.operatorOnly(s.CancelRoomGameHandler))
	mux.HandleFunc("GET /games/{id}/results", s.GameResultsHandler)
	mux.HandleFunc("GET /characters/count", s.CharacterCountHandler)
	mux.HandleFunc("GET /ws", s.PlayerWSHandler)

	return middleware.LogMiddleware(s.Logger)(mux)
}

func (s *APIServer) operatorOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Operator.Enabled() {
			writeError(w, http.StatusForbidden, "operator_disabled")
			return
		}
		if !s.Operator.Verify(r.Header.Get(OperatorKeyHeader)) {
			writeError(w, http.StatusUnauthorized, "invalid_operator_key")
			return
		}
		next(w, r)
	}
}

// CreateSessionHandler mints a player token for the chat front-end.
func (s *APIServer) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 || req.Username == "" {
		writeError(w, http.StatusBadRequest, "user_id and username required")
		return
	}
	token, err := s.Sessions.CreateJWT(auth.Player{UserID: req.UserID, Username: req.Username})
	if err != nil {
		s.Logger.Errorf("create session token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *APIServer) OpenLobbyHandler(w http.ResponseWriter, r *http.Request) {
	room, ok := parseRoomID(r.PathValue("room"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_room")
		return
	}
	if err := s.Lobby.Open(r.Context(), room); err != nil {
		s.writeLobbyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Lobby.State())
}

func (s *APIServer) CancelLobbyHandler(w http.ResponseWriter, r *http.Request) {
	room, ok := parseRoomID(r.PathValue("room"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_room")
		return
	}
	if open, isOpen := s.Lobby.RoomID(); !isOpen || open != room {
		writeError(w, http.StatusNotFound, lobby.Reason(lobby.ErrNoOpenLobby))
		return
	}
	if err := s.Lobby.Cancel(r.Context()); err != nil {
		s.writeLobbyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) LobbyStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Lobby.State())
}

func (s *APIServer) CancelGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_game_id")
		return
	}
	if err := s.Games.CancelGame(r.Context(), id); err != nil {
		if errors.Is(err, game.ErrGameNotActive) {
			writeError(w, http.StatusConflict, gameReason(err))
			return
		}
		s.Logger.WithField("game_id", id).Errorf("cancel game: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelRoomGameHandler cancels whatever game is active in a room.
func (s *APIServer) CancelRoomGameHandler(w http.ResponseWriter, r *http.Request) {
	room, ok := parseRoomID(r.PathValue("room"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_room")
		return
	}
	if err := s.Games.CancelInRoom(r.Context(), room, 0, true); err != nil {
		if errors.Is(err, game.ErrGameNotActive) {
			writeError(w, http.StatusNotFound, gameReason(err))
			return
		}
		s.Logger.WithField("room_id", room).Errorf("cancel room game: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) GameResultsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_game_id")
		return
	}
	res, err := s.Games.Results(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game_not_found")
			return
		}
		s.Logger.WithField("game_id", id).Errorf("results: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *APIServer) CharacterCountHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.CharacterCount(r.Context())
	if err != nil {
		s.Logger.Errorf("character count: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *APIServer) writeLobbyError(w http.ResponseWriter, err error) {
	reason := lobby.Reason(err)
	if reason == "internal_error" {
		s.Logger.Errorf("lobby: %v", err)
		writeError(w, http.StatusInternalServerError, reason)
		return
	}
	writeError(w, http.StatusConflict, reason)
}

// gameReason maps orchestrator errors to reason codes.
func gameReason(err error) string {
	switch {
	case errors.Is(err, game.ErrGameNotActive):
		return "game_not_active"
	case errors.Is(err, game.ErrNotInGame):
		return "not_in_game"
	case errors.Is(err, game.ErrNotParticipant):
		return "not_participant"
	default:
		return "internal_error"
	}
}
