// internal/service/lobby.go
package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jason-s-yu/minesweep/internal/cache"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/sirupsen/logrus"
)

// CreateLobby opens a new waiting lobby hosted by host.
func (s *Service) CreateLobby(ctx context.Context, host models.Member, opts game.LobbyOptions) (*models.Lobby, error) {
	l, err := game.NewLobby(host, opts, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateLobby(ctx, l); err != nil {
		return nil, translate(err, "lobby", l.ID)
	}
	s.log.WithFields(logrus.Fields{"lobby_id": l.ID, "host_id": host.ID, "mode": l.Mode}).Info("lobby created")
	return l, nil
}

// ListLobbies returns the lobbies still accepting or awaiting a start, oldest first.
// A non-empty query keeps only lobbies whose slug contains the query's slug.
func (s *Service) ListLobbies(ctx context.Context, query string) ([]*models.Lobby, error) {
	all, err := s.store.ListLobbies(ctx)
	if err != nil {
		return nil, err
	}
	q := ""
	if strings.TrimSpace(query) != "" {
		q = slug.Make(query)
	}

	out := make([]*models.Lobby, 0, len(all))
	for _, l := range all {
		if l.Status == models.LobbyInGame {
			continue
		}
		if q != "" && !strings.Contains(l.Slug, q) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetLobby loads a lobby.
func (s *Service) GetLobby(ctx context.Context, id uuid.UUID) (*models.Lobby, error) {
	l, err := s.store.GetLobby(ctx, id)
	return l, translate(err, "lobby", id)
}

// JoinLobby adds player to the lobby's roster.
func (s *Service) JoinLobby(ctx context.Context, lobbyID uuid.UUID, player models.Member, password string) (*models.Lobby, error) {
	l, err := s.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if err := game.Join(l, player, password); err != nil {
		return nil, err
	}
	if err := s.store.SaveLobby(ctx, l); err != nil {
		return nil, translate(err, "lobby", lobbyID)
	}
	s.log.WithFields(logrus.Fields{"lobby_id": l.ID, "user_id": player.ID, "status": l.Status}).Info("player joined lobby")
	return l, nil
}

// LeaveLobby removes player from a lobby that has not started. The lobby is deleted
// when its host leaves.
func (s *Service) LeaveLobby(ctx context.Context, lobbyID, player uuid.UUID) error {
	l, err := s.GetLobby(ctx, lobbyID)
	if err != nil {
		return err
	}
	del, err := game.Leave(l, player)
	if err != nil {
		return err
	}

	fields := logrus.Fields{"lobby_id": l.ID, "user_id": player}
	if del {
		if _, err := s.deleteLobby(ctx, l.ID); err != nil {
			return translate(err, "lobby", l.ID)
		}
		s.log.WithFields(fields).Info("lobby closed")
		return nil
	}
	if err := s.store.SaveLobby(ctx, l); err != nil {
		return translate(err, "lobby", l.ID)
	}
	s.log.WithFields(fields).Info("player left lobby")
	return nil
}

// StartGame builds and stores the game of a full lobby. The game is written first and
// the lobby is then switched to in_game; if that switch loses a race the new game is
// removed again.
func (s *Service) StartGame(ctx context.Context, lobbyID, player uuid.UUID) (*models.Game, error) {
	l, err := s.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	g, err := game.Start(l, player, s.newRand(), s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateGame(ctx, g); err != nil {
		return nil, translate(err, "game", g.ID)
	}
	if err := s.store.SaveLobby(ctx, l); err != nil {
		if derr := s.store.DeleteGame(ctx, g.ID); derr != nil {
			s.log.WithField("game_id", g.ID).WithError(derr).Warn("failed to remove game of aborted start")
		}
		return nil, translate(err, "lobby", l.ID)
	}

	s.log.WithFields(logrus.Fields{"lobby_id": l.ID, "game_id": g.ID, "players": len(g.Players), "mode": g.Mode}).Info("game started")
	s.publish(ctx, g, player, cache.ActionStart, map[string]interface{}{
		"mode":  g.Mode,
		"rows":  g.Board.Rows,
		"cols":  g.Board.Cols,
		"mines": g.Board.Mines,
	})
	return g, nil
}
