// internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/cache"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/jason-s-yu/minesweep/internal/store"
	"github.com/sirupsen/logrus"
)

// ActionLog receives every accepted game action.
type ActionLog interface {
	PublishGameAction(ctx context.Context, record cache.GameActionRecord) error
}

// ResultArchive records the outcome of finished games.
type ResultArchive interface {
	RecordGameResult(ctx context.Context, g *models.Game) error
}

// Service is the single entry point for every lobby and game mutation. It holds no
// session state of its own: each call loads the documents it needs, applies the rules
// on that private copy and writes back with a version check.
type Service struct {
	store   store.Store
	log     logrus.FieldLogger
	now     func() time.Time
	actions ActionLog
	archive ResultArchive

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand sets the source used for mine layouts.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithActionLog forwards accepted actions to l.
func WithActionLog(l ActionLog) Option {
	return func(s *Service) { s.actions = l }
}

// WithArchive records finished games in a.
func WithArchive(a ResultArchive) Option {
	return func(s *Service) { s.archive = a }
}

// New returns a Service over st.
func New(st store.Store, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		store: st,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// translate maps store errors onto the session error kinds.
func translate(err error, what string, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s %s", game.ErrNotFound, what, id)
	case errors.Is(err, store.ErrStale):
		return game.ErrStaleWrite
	case errors.Is(err, store.ErrExists):
		return fmt.Errorf("%w: %s %s already exists", game.ErrConflict, what, id)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

// deleteLobby removes a companion lobby; one that is already gone is fine.
func (s *Service) deleteLobby(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	err := s.store.DeleteLobby(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// finished runs the follow-up of a game that just reached its terminal state. The
// game itself is already persisted; failures here are logged, never returned.
func (s *Service) finished(ctx context.Context, g *models.Game) {
	fields := logrus.Fields{"game_id": g.ID, "lobby_id": g.LobbyID, "winner": g.Winner}
	if _, err := s.deleteLobby(ctx, g.LobbyID); err != nil {
		s.log.WithFields(fields).WithError(err).Warn("failed to remove lobby of finished game")
	}
	if s.archive != nil {
		if err := s.archive.RecordGameResult(ctx, g); err != nil {
			s.log.WithFields(fields).WithError(err).Error("failed to archive game result")
		}
	}
	s.log.WithFields(fields).Info("game finished")
}

func (s *Service) publish(ctx context.Context, g *models.Game, actor uuid.UUID, action string, payload map[string]interface{}) {
	if s.actions == nil {
		return
	}
	rec := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.Version,
		ActorUserID:   actor,
		ActionType:    action,
		ActionPayload: payload,
		Timestamp:     s.now().UnixMilli(),
	}
	if err := s.actions.PublishGameAction(ctx, rec); err != nil {
		s.log.WithFields(logrus.Fields{"game_id": g.ID, "action": action}).WithError(err).Warn("failed to publish game action")
	}
}

func (s *Service) newRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}
