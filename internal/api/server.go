// Package api provides the HTTP handlers for joining the game, viewing the
// market, submitting trades, and choosing night events.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/game"
	"github.com/stonkgame/market-engine/internal/market"
)

// Server holds the HTTP handlers. All state lives in the game; handlers
// translate requests and map domain errors to status codes.
type Server struct {
	game *game.Game
}

// NewServer creates the handler set around a game.
func NewServer(g *game.Game) *Server {
	return &Server{game: g}
}

// Routes mounts every handler on r under the caller's prefix.
func (s *Server) Routes(r chi.Router) {
	r.Post("/join", s.Join)
	r.Get("/market", s.GetMarket)
	r.Get("/leaderboard", s.GetLeaderboard)
	r.Get("/stonks/{stonkID}/history", s.GetHistory)
	r.Get("/agents/{username}", s.GetAgent)
	r.Get("/agents/{username}/max-buy/{stonkID}", s.GetMaxBuy)
	r.Post("/agents/{username}/action", s.PostAction)
	r.Post("/agents/{username}/events/{index}", s.PostNightEvent)
}

// JoinRequest is the JSON body for POST /join.
type JoinRequest struct {
	Username string `json:"username"`
}

// Join handles POST /api/v1/join. Joining an already registered username
// reattaches to the existing agent.
func (s *Server) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		writeError(w, "username is required", http.StatusBadRequest)
		return
	}

	view, err := s.game.Join(r.Context(), req.Username)
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetMarket handles GET /api/v1/market. The optional ?username= parameter
// unlocks per-agent stonk detail.
func (s *Server) GetMarket(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	writeJSON(w, http.StatusOK, s.game.MarketViewFor(username))
}

// GetLeaderboard handles GET /api/v1/leaderboard.
func (s *Server) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	board := s.game.MarketViewFor("").Leaderboard
	if board == nil {
		board = []market.PortfolioEntry{}
	}
	writeJSON(w, http.StatusOK, board)
}

// GetHistory handles GET /api/v1/stonks/{stonkID}/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	stonkID, err := strconv.Atoi(chi.URLParam(r, "stonkID"))
	if err != nil {
		writeError(w, "invalid stonk id", http.StatusBadRequest)
		return
	}
	prices, err := s.game.History(stonkID)
	if err != nil {
		writeError(w, "stonk not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int64{"prices_cents": prices})
}

// GetAgent handles GET /api/v1/agents/{username}.
func (s *Server) GetAgent(w http.ResponseWriter, r *http.Request) {
	view, err := s.game.AgentViewFor(chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetMaxBuy handles GET /api/v1/agents/{username}/max-buy/{stonkID}.
func (s *Server) GetMaxBuy(w http.ResponseWriter, r *http.Request) {
	stonkID, err := strconv.Atoi(chi.URLParam(r, "stonkID"))
	if err != nil {
		writeError(w, "invalid stonk id", http.StatusBadRequest)
		return
	}
	max, err := s.game.MaxBuy(chi.URLParam(r, "username"), stonkID)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, market.ErrUnknownStonk) {
			status = http.StatusBadRequest
		}
		writeError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"max_amount": max})
}

// ActionRequest is the JSON body for POST /agents/{username}/action. Only
// trades can be submitted directly; everything else comes through a night
// event.
type ActionRequest struct {
	Kind    agent.ActionKind `json:"kind"`
	StonkID int              `json:"stonk_id"`
	Amount  int64            `json:"amount"`
}

// PostAction handles POST /api/v1/agents/{username}/action. The action is
// queued into the agent's pending slot and resolved on the next tick, so a
// success here means accepted, not applied.
func (s *Server) PostAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := s.game.SelectTrade(chi.URLParam(r, "username"), req.Kind, req.StonkID, req.Amount)
	switch {
	case errors.Is(err, game.ErrUnknownAgent):
		writeError(w, "agent not found", http.StatusNotFound)
	case errors.Is(err, game.ErrActionNotAllowed):
		writeError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		writeError(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

// PostNightEvent handles POST /api/v1/agents/{username}/events/{index},
// choosing one of the agent's current night offers by position.
func (s *Server) PostNightEvent(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, "invalid event index", http.StatusBadRequest)
		return
	}

	err = s.game.SelectNightEvent(chi.URLParam(r, "username"), idx)
	switch {
	case errors.Is(err, game.ErrUnknownAgent):
		writeError(w, "agent not found", http.StatusNotFound)
	case errors.Is(err, game.ErrNoSuchEvent):
		writeError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		writeError(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
