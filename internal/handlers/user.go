// internal/handlers/user.go
package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/auth"
	"github.com/jason-s-yu/minesweep/internal/game"
)

const maxUsernameLen = 32

type guestRequest struct {
	Username string `json:"username"`
}

type guestResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Token    string    `json:"token"`
}

// GuestHandler issues a throwaway identity and sets it as the auth_token cookie.
func GuestHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req guestRequest
		if r.ContentLength != 0 {
			if err := decodeBody(r, &req); err != nil {
				writeError(gs.Logger, w, r, err)
				return
			}
		}
		name := strings.TrimSpace(req.Username)
		if name == "" {
			name = "Guest"
		}
		if utf8.RuneCountInString(name) > maxUsernameLen {
			writeError(gs.Logger, w, r, game.ErrInvalidInput)
			return
		}

		id := auth.Identity{ID: uuid.New(), Name: name}
		token, err := auth.CreateJWT(id)
		if err != nil {
			writeError(gs.Logger, w, r, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     authCookie,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
		})
		gs.Logger.WithField("user_id", id.ID).Debug("guest identity issued")
		writeJSON(w, http.StatusCreated, guestResponse{ID: id.ID, Username: name, Token: token})
	}
}
