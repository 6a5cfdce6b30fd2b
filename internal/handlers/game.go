// internal/handlers/game.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/models"
)

type gameRequest struct {
	GameID uuid.UUID `json:"gameId"`
}

type moveRequest struct {
	GameID uuid.UUID `json:"gameId"`
	Row    *int      `json:"row"`
	Col    *int      `json:"col"`
}

// GameStateHandler returns the caller's view of ?id=.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		gameID, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			writeError(gs.Logger, w, r, fmt.Errorf("%w: invalid game id", game.ErrInvalidInput))
			return
		}

		g, err := gs.Service.GetGame(r.Context(), gameID, id.ID)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, game.NewGameView(g, id.ID))
	}
}

// MoveHandler reveals a cell for the caller. The same endpoint serves classic turns
// and race moves.
func MoveHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		var req moveRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		if req.Row == nil || req.Col == nil {
			writeError(gs.Logger, w, r, fmt.Errorf("%w: row and col are required", game.ErrInvalidInput))
			return
		}

		g, _, err := gs.Service.Move(r.Context(), req.GameID, id.ID, *req.Row, *req.Col)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, game.NewGameView(g, id.ID))
	}
}

// LeaveGameHandler forfeits the caller's seat.
func LeaveGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		var req gameRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}

		winner, err := gs.Service.LeaveGame(r.Context(), req.GameID, id.ID)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"winnerId": winner})
	}
}

// SpectateHandler adds the caller as a spectator.
func SpectateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		var req gameRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}

		g, err := gs.Service.Spectate(r.Context(), req.GameID, id.ID)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, game.NewGameView(g, id.ID))
	}
}

// DifficultiesHandler lists the board presets.
func DifficultiesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Difficulties)
}
