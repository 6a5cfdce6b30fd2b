// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jason-s-yu/minesweep/internal/auth"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/sirupsen/logrus"
)

const authCookie = "auth_token"

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken returns the auth_token cookie, falling back to a Bearer header.
func requestToken(r *http.Request) string {
	if token := extractCookieToken(r.Header.Get("Cookie"), authCookie); token != "" {
		return token
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// authenticate resolves the caller of r.
func authenticate(r *http.Request) (auth.Identity, error) {
	token := requestToken(r)
	if token == "" {
		return auth.Identity{}, fmt.Errorf("%w: missing %s", game.ErrUnauthorized, authCookie)
	}
	id, err := auth.AuthenticateJWT(token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %v", game.ErrUnauthorized, err)
	}
	return id, nil
}

func asMember(id auth.Identity) models.Member {
	name := id.Name
	if name == "" {
		name = "Guest"
	}
	return models.Member{ID: id.ID, Name: name}
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: bad request payload: %v", game.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidState):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// writeError answers with the status of err's kind. Errors of no known kind are
// logged and reported without detail.
func writeError(logger *logrus.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{"path": r.URL.Path, "method": r.Method}).WithError(err).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Retryable: game.Retryable(err)})
}
