// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/auth"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/jason-s-yu/minesweep/internal/service"
	"github.com/jason-s-yu/minesweep/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := auth.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*GameServer, *store.MemoryStore) {
	logger, _ := test.NewNullLogger()
	st := store.NewMemoryStore()
	svc := service.New(st, logger, service.WithRand(rand.New(rand.NewSource(3))))
	return NewGameServer(svc, logger), st
}

func tokenFor(t *testing.T, name string) (uuid.UUID, string) {
	id := auth.Identity{ID: uuid.New(), Name: name}
	token, err := auth.CreateJWT(id)
	require.NoError(t, err)
	return id.ID, token
}

func call(t *testing.T, h http.HandlerFunc, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Cookie", "auth_token="+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGuestHandler(t *testing.T) {
	gs, _ := newTestServer(t)
	w := call(t, GuestHandler(gs), http.MethodPost, "/user/guest", "", map[string]string{"username": "mia"})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[guestResponse](t, w)
	assert.Equal(t, "mia", resp.Username)
	id, err := auth.AuthenticateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, id.ID)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
}

func TestMissingToken(t *testing.T) {
	gs, _ := newTestServer(t)
	w := call(t, CreateLobbyHandler(gs), http.MethodPost, "/lobby/create", "", game.LobbyOptions{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, ListLobbiesHandler(gs), http.MethodGet, "/lobby/list", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	gs, _ := newTestServer(t)
	_, token := tokenFor(t, "bo")
	req := httptest.NewRequest(http.MethodGet, "/lobby/list", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ListLobbiesHandler(gs).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLobbyEndpoints(t *testing.T) {
	gs, _ := newTestServer(t)
	_, hostToken := tokenFor(t, "host")
	_, guestToken := tokenFor(t, "guest")

	w := call(t, CreateLobbyHandler(gs), http.MethodPost, "/lobby/create", hostToken, game.LobbyOptions{
		Name: "Pub Quiz", Password: "pw", MaxPlayers: 2, Difficulty: "beginner", Mode: models.ModeClassic,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "argon2id")
	lobby := decode[game.LobbyView](t, w)
	assert.True(t, lobby.HasPassword)
	assert.Equal(t, "pub-quiz", lobby.Slug)

	w = call(t, CreateLobbyHandler(gs), http.MethodPost, "/lobby/create", hostToken, game.LobbyOptions{Name: "x", MaxPlayers: 9, Difficulty: "beginner", Mode: models.ModeClassic})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, StartGameHandler(gs), http.MethodPost, "/lobby/start", hostToken, lobbyRequest{LobbyID: lobby.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = call(t, JoinLobbyHandler(gs), http.MethodPost, "/lobby/join", guestToken, lobbyRequest{LobbyID: lobby.ID, Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = call(t, JoinLobbyHandler(gs), http.MethodPost, "/lobby/join", guestToken, lobbyRequest{LobbyID: uuid.New(), Password: "pw"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = call(t, JoinLobbyHandler(gs), http.MethodPost, "/lobby/join", guestToken, lobbyRequest{LobbyID: lobby.ID, Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.LobbyFull, decode[game.LobbyView](t, w).Status)
	w = call(t, JoinLobbyHandler(gs), http.MethodPost, "/lobby/join", guestToken, lobbyRequest{LobbyID: lobby.ID, Password: "pw"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, ListLobbiesHandler(gs), http.MethodGet, "/lobby/list?q=quiz", guestToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]game.LobbyView](t, w), 1)

	w = call(t, StartGameHandler(gs), http.MethodPost, "/lobby/start", guestToken, lobbyRequest{LobbyID: lobby.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = call(t, StartGameHandler(gs), http.MethodPost, "/lobby/start", hostToken, lobbyRequest{LobbyID: lobby.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[game.GameView](t, w)
	assert.Equal(t, models.GamePlaying, view.Status)
	assert.Len(t, view.Board, 9)

	w = call(t, LeaveLobbyHandler(gs), http.MethodPost, "/lobby/leave", guestToken, lobbyRequest{LobbyID: lobby.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// startGame drives a two-player lobby to a started game through the handlers.
func startGame(t *testing.T, gs *GameServer, mode models.Mode) (game.GameView, string, string) {
	_, hostToken := tokenFor(t, "host")
	_, guestToken := tokenFor(t, "guest")
	w := call(t, CreateLobbyHandler(gs), http.MethodPost, "/lobby/create", hostToken, game.LobbyOptions{
		Name: "duel", MaxPlayers: 2, Difficulty: "beginner", Mode: mode,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	lobby := decode[game.LobbyView](t, w)
	w = call(t, JoinLobbyHandler(gs), http.MethodPost, "/lobby/join", guestToken, lobbyRequest{LobbyID: lobby.ID})
	require.Equal(t, http.StatusOK, w.Code)
	w = call(t, StartGameHandler(gs), http.MethodPost, "/lobby/start", hostToken, lobbyRequest{LobbyID: lobby.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	return decode[game.GameView](t, w), hostToken, guestToken
}

func move(t *testing.T, gs *GameServer, token string, gameID uuid.UUID, row, col int) *httptest.ResponseRecorder {
	return call(t, MoveHandler(gs), http.MethodPost, "/game/move", token, map[string]interface{}{"gameId": gameID, "row": row, "col": col})
}

func TestGameEndpoints(t *testing.T) {
	gs, _ := newTestServer(t)
	view, hostToken, guestToken := startGame(t, gs, models.ModeClassic)

	w := move(t, gs, guestToken, view.ID, 0, 0)
	assert.Equal(t, http.StatusForbidden, w.Code, "not the guest's turn")

	w = call(t, MoveHandler(gs), http.MethodPost, "/game/move", hostToken, map[string]interface{}{"gameId": view.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = move(t, gs, hostToken, view.ID, 4, 4)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	after := decode[game.GameView](t, w)
	assert.Equal(t, view.Version+1, after.Version)
	require.NotNil(t, after.LastMove)
	assert.Equal(t, 4, after.LastMove.Row)

	// already revealed, or no longer the host's turn after a mine
	w = move(t, gs, hostToken, view.ID, 4, 4)
	assert.Contains(t, []int{http.StatusConflict, http.StatusForbidden}, w.Code)

	w = call(t, GameStateHandler(gs), http.MethodGet, "/game/state?id="+view.ID.String(), guestToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, outsider := tokenFor(t, "outsider")
	w = call(t, GameStateHandler(gs), http.MethodGet, "/game/state?id="+view.ID.String(), outsider, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = call(t, GameStateHandler(gs), http.MethodGet, "/game/state?id=nope", outsider, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, SpectateHandler(gs), http.MethodPost, "/game/spectate", outsider, gameRequest{GameID: view.ID})
	require.Equal(t, http.StatusOK, w.Code)
	w = call(t, GameStateHandler(gs), http.MethodGet, "/game/state?id="+view.ID.String(), outsider, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, LeaveGameHandler(gs), http.MethodPost, "/game/leave", guestToken, gameRequest{GameID: view.ID})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[map[string]string](t, w)
	assert.Equal(t, view.Players[0].ID.String(), res["winnerId"])

	w = move(t, gs, hostToken, view.ID, 0, 1)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = call(t, GameStateHandler(gs), http.MethodGet, "/game/state?id="+view.ID.String(), hostToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	final := decode[game.GameView](t, w)
	mines := 0
	for _, row := range final.Board {
		for _, c := range row {
			if c.IsMine {
				mines++
			}
		}
	}
	assert.Equal(t, 10, mines, "a finished game discloses the whole board")
}

func TestDifficultiesHandler(t *testing.T) {
	w := httptest.NewRecorder()
	DifficultiesHandler(w, httptest.NewRequest(http.MethodGet, "/difficulties", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Difficulty](t, w), 3)
}

func TestGameFeed(t *testing.T) {
	gs, _ := newTestServer(t)
	view, hostToken, _ := startGame(t, gs, models.ModeRace)

	srv := httptest.NewServer(GameWSHandler(gs))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/ws/" + view.ID.String()
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{"game"},
		HTTPHeader:   http.Header{"Cookie": []string{"auth_token=" + hostToken}},
	})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	var first game.GameView
	require.NoError(t, wsjson.Read(ctx, c, &first))
	assert.Equal(t, view.Version, first.Version)

	w := move(t, gs, hostToken, view.ID, 0, 0)
	require.Equal(t, http.StatusOK, w.Code)

	var next game.GameView
	require.NoError(t, wsjson.Read(ctx, c, &next))
	assert.Equal(t, view.Version+1, next.Version)
	require.NotNil(t, next.LastMove)
}

func TestGameFeedRejectsOutsider(t *testing.T) {
	gs, _ := newTestServer(t)
	view, _, _ := startGame(t, gs, models.ModeClassic)
	_, outsider := tokenFor(t, "outsider")

	srv := httptest.NewServer(GameWSHandler(gs))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/ws/" + view.ID.String()
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{"game"},
		HTTPHeader:   http.Header{"Cookie": []string{"auth_token=" + outsider}},
	})
	require.NoError(t, err)
	defer c.CloseNow()

	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(InvalidGameIDError), websocket.CloseStatus(err))
}
