// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/middleware"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/sirupsen/logrus"
)

const wsWriteTimeout = 5 * time.Second

// GameWSHandler streams the caller's view of a game over a WebSocket, one message per
// stored version. The feed is read-only; moves go through POST /game/move.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract Game ID from URL path: /game/ws/{game_id}
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			gs.Logger.WithField("game_id", gameID).WithError(err).Warn("websocket accept error")
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
			return
		}

		id, err := authenticate(r)
		if err != nil {
			c.Close(InvalidAuthTokenError, "Authentication failed.")
			return
		}

		// CloseRead discards client frames and cancels ctx once the client goes away.
		ctx := c.CloseRead(r.Context())
		feed, err := gs.Service.Subscribe(ctx, gameID, id.ID)
		if err != nil {
			c.Close(InvalidGameIDError, "Game not found or not visible.")
			return
		}

		middleware.LogWebSocketConnect(gs.Logger, r.RemoteAddr, r.URL.Path)
		err = streamGame(ctx, gs, c, gameID, id.ID, feed)
		middleware.LogWebSocketDisconnect(gs.Logger, r.RemoteAddr, r.URL.Path, err)
	}
}

var errGameRemoved = errors.New("game removed")

// streamGame sends the current view, then a fresh view for every newer version, until
// the game finishes, is removed, or ctx ends.
func streamGame(ctx context.Context, gs *GameServer, c *websocket.Conn, gameID, viewer uuid.UUID, feed <-chan int64) error {
	var sent int64
	push := func() (done bool, err error) {
		g, err := gs.Service.GetGame(ctx, gameID, viewer)
		if errors.Is(err, game.ErrNotFound) {
			return true, errGameRemoved
		}
		if err != nil {
			return false, err
		}
		if g.Version <= sent {
			return false, nil
		}
		wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		defer cancel()
		if err := wsjson.Write(wctx, c, game.NewGameView(g, viewer)); err != nil {
			return true, err
		}
		sent = g.Version
		return g.Status == models.GameFinished, nil
	}

	done, err := push()
	for !done {
		if err != nil {
			gs.Logger.WithFields(logrus.Fields{"game_id": gameID, "user_id": viewer}).WithError(err).Warn("game feed reload failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-feed:
			if !ok {
				return ctx.Err()
			}
			done, err = push()
		}
	}

	switch {
	case errors.Is(err, errGameRemoved):
		c.Close(GameRemovedError, "Game was removed.")
		return nil
	case err != nil:
		return err
	}
	c.Close(websocket.StatusNormalClosure, "Game finished.")
	return nil
}
