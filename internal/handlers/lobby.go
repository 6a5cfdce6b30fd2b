// internal/handlers/lobby.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/game"
)

type lobbyRequest struct {
	LobbyID  uuid.UUID `json:"lobbyId"`
	Password string    `json:"password,omitempty"`
}

// CreateLobbyHandler opens a lobby hosted by the caller.
func CreateLobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		var opts game.LobbyOptions
		if err := decodeBody(r, &opts); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}

		l, err := gs.Service.CreateLobby(r.Context(), asMember(id), opts)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, game.NewLobbyView(l))
	}
}

// ListLobbiesHandler returns the open lobbies, optionally filtered by ?q=.
func ListLobbiesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authenticate(r); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		lobbies, err := gs.Service.ListLobbies(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		views := make([]game.LobbyView, 0, len(lobbies))
		for _, l := range lobbies {
			views = append(views, game.NewLobbyView(l))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// JoinLobbyHandler adds the caller to a lobby.
func JoinLobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		var req lobbyRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}

		l, err := gs.Service.JoinLobby(r.Context(), req.LobbyID, asMember(id), req.Password)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, game.NewLobbyView(l))
	}
}

// LeaveLobbyHandler removes the caller from a lobby that has not started.
func LeaveLobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		var req lobbyRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}

		if err := gs.Service.LeaveLobby(r.Context(), req.LobbyID, id.ID); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// StartGameHandler lets the host start a full lobby.
func StartGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		var req lobbyRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}

		g, err := gs.Service.StartGame(r.Context(), req.LobbyID, id.ID)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, game.NewGameView(g, id.ID))
	}
}
