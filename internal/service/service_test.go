// internal/service/service_test.go
package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/cache"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/jason-s-yu/minesweep/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingLog struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (r *recordingLog) PublishGameAction(_ context.Context, rec cache.GameActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingLog) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.records {
		out = append(out, rec.ActionType)
	}
	return out
}

type recordingArchive struct {
	mu    sync.Mutex
	games []*models.Game
}

func (r *recordingArchive) RecordGameResult(_ context.Context, g *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = append(r.games, g)
	return nil
}

type harness struct {
	svc     *Service
	store   *store.MemoryStore
	clock   *fakeClock
	actions *recordingLog
	archive *recordingArchive
}

func newHarness(t *testing.T) *harness {
	logger, _ := test.NewNullLogger()
	h := &harness{
		store:   store.NewMemoryStore(),
		clock:   &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		actions: &recordingLog{},
		archive: &recordingArchive{},
	}
	h.svc = New(h.store, logger,
		WithClock(h.clock.Now),
		WithRand(rand.New(rand.NewSource(1))),
		WithActionLog(h.actions),
		WithArchive(h.archive),
	)
	return h
}

func member(name string) models.Member {
	return models.Member{ID: uuid.New(), Name: name}
}

// startedGame creates a full lobby of n players and starts it.
func (h *harness) startedGame(t *testing.T, mode models.Mode, n int) (*models.Lobby, *models.Game, []models.Member) {
	ctx := context.Background()
	players := []models.Member{member("host")}
	l, err := h.svc.CreateLobby(ctx, players[0], game.LobbyOptions{
		Name: "table", MaxPlayers: n, Difficulty: "beginner", Mode: mode,
	})
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		p := member("guest")
		players = append(players, p)
		l, err = h.svc.JoinLobby(ctx, l.ID, p, "")
		require.NoError(t, err)
	}
	g, err := h.svc.StartGame(ctx, l.ID, players[0].ID)
	require.NoError(t, err)
	l, err = h.svc.GetLobby(ctx, l.ID)
	require.NoError(t, err)
	return l, g, players
}

func TestLobbyOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	host, guest := member("host"), member("guest")

	l, err := h.svc.CreateLobby(ctx, host, game.LobbyOptions{Name: "Late Night Mines", MaxPlayers: 3, Difficulty: "expert", Mode: models.ModeRace})
	require.NoError(t, err)
	_, err = h.svc.CreateLobby(ctx, host, game.LobbyOptions{Name: "Другое", MaxPlayers: 2, Difficulty: "beginner", Mode: models.ModeClassic})
	require.NoError(t, err)

	all, err := h.svc.ListLobbies(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	found, err := h.svc.ListLobbies(ctx, "night")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, l.ID, found[0].ID)

	l, err = h.svc.JoinLobby(ctx, l.ID, guest, "")
	require.NoError(t, err)
	assert.Len(t, l.Roster, 2)
	_, err = h.svc.JoinLobby(ctx, l.ID, guest, "")
	assert.ErrorIs(t, err, game.ErrConflict)
	_, err = h.svc.JoinLobby(ctx, uuid.New(), guest, "")
	assert.ErrorIs(t, err, game.ErrNotFound)

	require.NoError(t, h.svc.LeaveLobby(ctx, l.ID, guest.ID))
	assert.ErrorIs(t, h.svc.LeaveLobby(ctx, l.ID, guest.ID), game.ErrForbidden)
	require.NoError(t, h.svc.LeaveLobby(ctx, l.ID, host.ID))
	_, err = h.svc.GetLobby(ctx, l.ID)
	assert.ErrorIs(t, err, game.ErrNotFound)
}

// TestStartNeedsFullLobby: a two-seat lobby started with only the host is rejected.
func TestStartNeedsFullLobby(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	host := member("host")
	l, err := h.svc.CreateLobby(ctx, host, game.LobbyOptions{Name: "solo", MaxPlayers: 2, Difficulty: "beginner", Mode: models.ModeClassic})
	require.NoError(t, err)

	_, err = h.svc.StartGame(ctx, l.ID, host.ID)
	assert.ErrorIs(t, err, game.ErrInvalidState)

	games, err := h.store.ListGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestStartGame(t *testing.T) {
	h := newHarness(t)
	l, g, players := h.startedGame(t, models.ModeClassic, 2)

	assert.Equal(t, models.LobbyInGame, l.Status)
	assert.Equal(t, g.ID, l.GameID)
	assert.Equal(t, players[0].ID, g.CurrentPlayerID())
	assert.Equal(t, []string{cache.ActionStart}, h.actions.types())

	ctx := context.Background()
	assert.ErrorIs(t, h.svc.LeaveLobby(ctx, l.ID, players[1].ID), game.ErrInvalidState)
	_, err := h.svc.StartGame(ctx, l.ID, players[0].ID)
	assert.ErrorIs(t, err, game.ErrInvalidState)

	list, err := h.svc.ListLobbies(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list, "started lobbies are not listed")
}

func TestMoveAndViewAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, g, players := h.startedGame(t, models.ModeClassic, 2)

	_, _, err := h.svc.Move(ctx, g.ID, players[1].ID, 0, 0)
	assert.ErrorIs(t, err, game.ErrForbidden)
	_, _, err = h.svc.Move(ctx, uuid.New(), players[0].ID, 0, 0)
	assert.ErrorIs(t, err, game.ErrNotFound)

	updated, res, err := h.svc.Move(ctx, g.ID, players[0].ID, 4, 4)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Revealed)
	assert.Equal(t, g.Version+1, updated.Version)

	_, err = h.svc.GetGame(ctx, g.ID, uuid.New())
	assert.ErrorIs(t, err, game.ErrForbidden)
	viewer := uuid.New()
	_, err = h.svc.Spectate(ctx, g.ID, viewer)
	require.NoError(t, err)
	_, err = h.svc.GetGame(ctx, g.ID, viewer)
	assert.NoError(t, err)
	_, err = h.svc.Spectate(ctx, g.ID, players[0].ID)
	assert.ErrorIs(t, err, game.ErrConflict)
}

func TestLeaveGameFinishesAndCleansUp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l, g, players := h.startedGame(t, models.ModeRace, 2)

	winner, err := h.svc.LeaveGame(ctx, g.ID, players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, players[1].ID.String(), winner)

	stored, err := h.store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameFinished, stored.Status)
	_, err = h.svc.GetLobby(ctx, l.ID)
	assert.ErrorIs(t, err, game.ErrNotFound)
	require.Len(t, h.archive.games, 1)
	assert.Equal(t, g.ID, h.archive.games[0].ID)
	assert.Equal(t, []string{cache.ActionStart, cache.ActionForfeit}, h.actions.types())

	_, err = h.svc.LeaveGame(ctx, g.ID, players[1].ID)
	assert.ErrorIs(t, err, game.ErrInvalidState)
}

// TestConcurrentRaceMoves fires simultaneous moves from one starting version. Every
// request either applies or fails as a retryable conflict, and no accepted move is lost.
func TestConcurrentRaceMoves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, g, players := h.startedGame(t, models.ModeRace, 2)

	// numbered cells reveal exactly one cell and can never finish the race
	var targets [][2]int
	for _, c := range g.Board.Cells {
		if !c.IsMine && c.NeighborMines > 0 {
			targets = append(targets, [2]int{c.Row, c.Col})
		}
		if len(targets) == 8 {
			break
		}
	}
	require.NotEmpty(t, targets)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i, cell := range targets {
		wg.Add(1)
		go func(player uuid.UUID, row, col int) {
			defer wg.Done()
			_, _, err := h.svc.Move(ctx, g.ID, player, row, col)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			assert.True(t, game.Retryable(err), "unexpected error: %v", err)
			assert.ErrorIs(t, err, game.ErrConflict)
		}(players[i%2].ID, cell[0], cell[1])
	}
	wg.Wait()

	final, err := h.store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, accepted, 1)
	assert.EqualValues(t, g.Version+int64(accepted), final.Version)

	revealed := 0
	for _, p := range final.Players {
		for _, r := range p.Revealed {
			if r {
				revealed++
			}
		}
	}
	assert.Equal(t, accepted, revealed)
}

// TestReapTimesOutOldGame: a game past the age limit is ended with "timeout" and its
// lobby is gone afterwards.
func TestReapTimesOutOldGame(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l, g, _ := h.startedGame(t, models.ModeClassic, 2)

	h.clock.Advance(4*time.Hour + time.Minute)
	res, err := h.svc.Reap(ctx, ReapPolicy{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.GamesTimedOut)

	stored, err := h.store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameFinished, stored.Status)
	assert.Equal(t, models.WinnerTimeout, stored.Winner)
	_, err = h.store.GetLobby(ctx, l.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, h.actions.types(), cache.ActionTimeout)

	// kept through the grace period, then removed
	res, err = h.svc.Reap(ctx, ReapPolicy{})
	require.NoError(t, err)
	assert.Equal(t, ReapResult{}, res)
	h.clock.Advance(11 * time.Minute)
	res, err = h.svc.Reap(ctx, ReapPolicy{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.GamesDeleted)
	_, err = h.store.GetGame(ctx, g.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReapIdleLobbies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	old, err := h.svc.CreateLobby(ctx, member("a"), game.LobbyOptions{Name: "old", MaxPlayers: 2, Difficulty: "beginner", Mode: models.ModeClassic})
	require.NoError(t, err)
	h.clock.Advance(90 * time.Minute)
	fresh, err := h.svc.CreateLobby(ctx, member("b"), game.LobbyOptions{Name: "fresh", MaxPlayers: 2, Difficulty: "beginner", Mode: models.ModeClassic})
	require.NoError(t, err)
	h.clock.Advance(time.Hour)

	res, err := h.svc.Reap(ctx, ReapPolicy{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.LobbiesDeleted)
	_, err = h.store.GetLobby(ctx, old.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.store.GetLobby(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestReapOrphanedLobby(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l, g, _ := h.startedGame(t, models.ModeRace, 2)
	require.NoError(t, h.store.DeleteGame(ctx, g.ID))

	res, err := h.svc.Reap(ctx, ReapPolicy{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.OrphansDeleted)
	_, err = h.store.GetLobby(ctx, l.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReaperSchedule(t *testing.T) {
	h := newHarness(t)
	logger, _ := test.NewNullLogger()
	_, _, _ = h.startedGame(t, models.ModeClassic, 2)
	h.clock.Advance(5 * time.Hour)

	r, err := NewReaper(h.svc, ReapPolicy{}, 20*time.Millisecond, logger)
	require.NoError(t, err)
	r.Start()
	defer func() { require.NoError(t, r.Stop()) }()

	require.Eventually(t, func() bool {
		games, err := h.store.ListGames(context.Background())
		return err == nil && len(games) == 1 && games[0].Winner == models.WinnerTimeout
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTranslate(t *testing.T) {
	id := uuid.New()
	assert.ErrorIs(t, translate(store.ErrNotFound, "game", id), game.ErrNotFound)
	assert.True(t, game.Retryable(translate(store.ErrStale, "game", id)))
	assert.ErrorIs(t, translate(store.ErrExists, "game", id), game.ErrConflict)

	other := errors.New("boom")
	assert.ErrorIs(t, translate(other, "game", id), other)
	assert.NoError(t, translate(nil, "game", id))
}
