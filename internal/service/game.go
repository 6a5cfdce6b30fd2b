// internal/service/game.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/cache"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/sirupsen/logrus"
)

func (s *Service) loadGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	g, err := s.store.GetGame(ctx, id)
	if err != nil {
		return nil, translate(err, "game", id)
	}
	return g, nil
}

// GetGame loads a game for a player or spectator of it.
func (s *Service) GetGame(ctx context.Context, id, viewer uuid.UUID) (*models.Game, error) {
	g, err := s.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if !game.CanView(g, viewer) {
		return nil, fmt.Errorf("%w: not a player or spectator of this game", game.ErrForbidden)
	}
	return g, nil
}

// Move applies a reveal under the game's mode. Classic and race moves take the same
// path; the rule set decides turn handling and visibility.
func (s *Service) Move(ctx context.Context, id, player uuid.UUID, row, col int) (*models.Game, *game.MoveResult, error) {
	g, err := s.loadGame(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	res, err := game.Move(g, player, row, col, s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		return nil, nil, translate(err, "game", id)
	}

	s.log.WithFields(logrus.Fields{
		"game_id":  g.ID,
		"user_id":  player,
		"mine":     res.Mine,
		"revealed": len(res.Revealed),
		"version":  g.Version,
	}).Debug("move applied")
	s.publish(ctx, g, player, cache.ActionReveal, map[string]interface{}{
		"row":      row,
		"col":      col,
		"mine":     res.Mine,
		"revealed": len(res.Revealed),
		"delta":    res.Delta,
	})
	if res.Finished {
		s.finished(ctx, g)
	}
	return g, res, nil
}

// LeaveGame forfeits player's seat and ends the game. It returns the winner.
func (s *Service) LeaveGame(ctx context.Context, id, player uuid.UUID) (string, error) {
	g, err := s.loadGame(ctx, id)
	if err != nil {
		return "", err
	}
	winner, err := game.Forfeit(g, player, s.now())
	if err != nil {
		return "", err
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		return "", translate(err, "game", id)
	}

	s.publish(ctx, g, player, cache.ActionForfeit, map[string]interface{}{"winner": winner})
	s.finished(ctx, g)
	return winner, nil
}

// Spectate registers viewer as a spectator of a running game.
func (s *Service) Spectate(ctx context.Context, id, viewer uuid.UUID) (*models.Game, error) {
	g, err := s.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.IsSpectator(viewer) {
		return g, nil
	}
	if err := game.Watch(g, viewer); err != nil {
		return nil, err
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		return nil, translate(err, "game", id)
	}
	s.publish(ctx, g, viewer, cache.ActionSpectate, nil)
	return g, nil
}

// Subscribe streams version numbers of the game to someone allowed to view it.
func (s *Service) Subscribe(ctx context.Context, id, viewer uuid.UUID) (<-chan int64, error) {
	if _, err := s.GetGame(ctx, id, viewer); err != nil {
		return nil, err
	}
	return s.store.Subscribe(ctx, id)
}
