// Package handlers exposes a game session over HTTP and websockets. Every
// operation has its own route; accepted requests are pushed to connected
// players as per-player snapshots by the session itself.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/benassa-de-glassa/uno-backend/engine"
	"github.com/benassa-de-glassa/uno-backend/internal/auth"
	"github.com/benassa-de-glassa/uno-backend/internal/cache"
	"github.com/benassa-de-glassa/uno-backend/internal/database"
	"github.com/benassa-de-glassa/uno-backend/internal/game"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Server routes requests to one game session.
type Server struct {
	Game   *game.Game
	Signer *auth.Signer
	Hub    *Hub
}

// NewServer wires g's event callbacks to a new hub.
func NewServer(g *game.Game, signer *auth.Signer, allow []string) *Server {
	hub := NewHub(allow)
	g.Mu.Lock()
	g.BroadcastFn = hub.Broadcast
	g.BroadcastToPlayerFn = hub.SendToPlayer
	g.Mu.Unlock()
	return &Server{Game: g, Signer: signer, Hub: hub}
}

// Routes returns the request multiplexer.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /players", s.handleJoin)
	mux.HandleFunc("DELETE /players/{id}", s.authenticated(s.handleLeave))

	mux.HandleFunc("POST /game/start", s.authenticated(s.simple(s.Game.Start)))
	mux.HandleFunc("POST /game/deal", s.authenticated(s.simple(s.Game.Deal)))
	mux.HandleFunc("POST /game/reset", s.authenticated(s.simple(s.Game.Reset)))
	mux.HandleFunc("POST /game/draw", s.authenticated(s.simple(s.Game.Draw)))
	mux.HandleFunc("POST /game/pass", s.authenticated(s.simple(s.Game.Pass)))
	mux.HandleFunc("POST /game/declare", s.authenticated(s.simple(s.Game.Declare)))
	mux.HandleFunc("POST /game/play", s.authenticated(s.handlePlay(s.Game.Play)))
	mux.HandleFunc("POST /game/play-wild", s.authenticated(s.handlePlay(s.Game.PlayWild)))
	mux.HandleFunc("POST /game/choose-color", s.authenticated(s.handleChooseColor))

	mux.HandleFunc("GET /game/state", s.handleState)
	mux.HandleFunc("GET /game/hand", s.authenticated(s.handleHand))
	mux.HandleFunc("GET /game/history", s.handleHistory)
	mux.HandleFunc("GET /results", s.handleResults)

	mux.HandleFunc("GET /ws", s.authenticated(func(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
		s.Hub.ServeWS(w, r, s.Game, playerID)
	}))
	return mux
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type playerHandler func(w http.ResponseWriter, r *http.Request, playerID uuid.UUID)

// bearerToken reads the session token from the Authorization header, or from
// the token query parameter for websocket upgrades.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// playerFromRequest verifies the token against the current session. Tokens
// issued before a reset carry the old session id and fail.
func (s *Server) playerFromRequest(r *http.Request) (uuid.UUID, error) {
	token := bearerToken(r)
	if token == "" {
		return uuid.Nil, auth.ErrInvalidToken
	}
	playerID, err := s.Signer.Verify(s.Game.SessionID(), token)
	if err != nil {
		return uuid.Nil, err
	}
	if !s.Game.HasPlayer(playerID) {
		return uuid.Nil, auth.ErrInvalidToken
	}
	return playerID, nil
}

func (s *Server) authenticated(next playerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := s.playerFromRequest(r)
		if err != nil {
			logrus.WithError(err).WithField("path", r.URL.Path).Debug("unauthenticated request")
			writeJSON(w, http.StatusUnauthorized, game.Outcome{ErrorKind: "Unauthorized", Message: "missing or invalid session token"})
			return
		}
		next(w, r, playerID)
	}
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	game.Outcome
	PlayerID uuid.UUID `json:"playerId,omitempty"`
	Name     string    `json:"name,omitempty"`
	GameID   uuid.UUID `json:"gameId,omitempty"`
	Token    string    `json:"token,omitempty"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, gameID, out := s.Game.JoinSession(req.Name)
	if p == nil {
		writeOutcome(w, out)
		return
	}
	token, err := s.Signer.Issue(gameID, p.ID, p.Name)
	if err != nil {
		logrus.WithError(err).Error("issuing session token")
		writeJSON(w, http.StatusInternalServerError, game.Outcome{Internal: true, Message: "internal error"})
		return
	}
	writeJSON(w, statusFor(out), joinResponse{Outcome: out, PlayerID: p.ID, Name: p.Name, GameID: gameID, Token: token})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
	target, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeOutcome(w, game.Outcome{ErrorKind: game.KindBadRequest, Message: "invalid player id"})
		return
	}
	writeOutcome(w, s.Game.Leave(playerID, target))
}

// simple adapts an operation that only needs the acting player.
func (s *Server) simple(op func(uuid.UUID) game.Outcome) playerHandler {
	return func(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
		writeOutcome(w, op(playerID))
	}
}

type playRequest struct {
	Card *int `json:"card"`
}

func (s *Server) handlePlay(op func(uuid.UUID, int) game.Outcome) playerHandler {
	return func(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
		var req playRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Card == nil {
			writeOutcome(w, game.Outcome{ErrorKind: game.KindBadRequest, Message: "card is required"})
			return
		}
		writeOutcome(w, op(playerID, *req.Card))
	}
}

type colorRequest struct {
	Color string `json:"color"`
}

func (s *Server) handleChooseColor(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
	var req colorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeOutcome(w, s.Game.ChooseColor(playerID, req.Color))
}

// handleState returns the caller's view, or the public view without a valid
// token.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	viewer, err := s.playerFromRequest(r)
	if err != nil {
		viewer = uuid.Nil
	}
	writeJSON(w, http.StatusOK, s.Game.Snapshot(viewer))
}

func (s *Server) handleHand(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) {
	hand, out := s.Game.Hand(playerID)
	if !out.OK {
		writeOutcome(w, out)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": hand})
}

// handleHistory lists the actions recorded for the current session.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if cache.Rdb == nil {
		writeJSON(w, http.StatusServiceUnavailable, game.Outcome{Message: "history is not enabled"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	recs, err := cache.GameActions(ctx, s.Game.SessionID())
	if err != nil {
		logrus.WithError(err).Error("reading history")
		writeJSON(w, http.StatusInternalServerError, game.Outcome{Internal: true, Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actions": recs})
}

// handleResults lists recently finished games, newest first.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		writeJSON(w, http.StatusServiceUnavailable, game.Outcome{Message: "results archive is not enabled"})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeOutcome(w, game.Outcome{ErrorKind: game.KindBadRequest, Message: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	results, err := database.RecentResults(ctx, limit)
	if err != nil {
		logrus.WithError(err).Error("reading results")
		writeJSON(w, http.StatusInternalServerError, game.Outcome{Internal: true, Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "body too large"
		}
		writeOutcome(w, game.Outcome{ErrorKind: game.KindBadRequest, Message: msg})
		return false
	}
	return true
}

// statusFor maps an outcome to an HTTP status. Rule rejections are ordinary
// replies with ok=false.
func statusFor(out game.Outcome) int {
	switch {
	case out.OK:
		return http.StatusOK
	case out.Internal:
		return http.StatusInternalServerError
	case out.ErrorKind == game.KindBadRequest:
		return http.StatusBadRequest
	case out.ErrorKind == game.KindNotPrivileged:
		return http.StatusForbidden
	case out.ErrorKind == engine.KindPlayerNotFound:
		return http.StatusNotFound
	}
	return http.StatusOK
}

func writeOutcome(w http.ResponseWriter, out game.Outcome) {
	writeJSON(w, statusFor(out), out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("writing response")
	}
}
