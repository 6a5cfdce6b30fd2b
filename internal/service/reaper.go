// internal/service/reaper.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/cache"
	"github.com/jason-s-yu/minesweep/internal/game"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/jason-s-yu/minesweep/internal/store"
	"github.com/sirupsen/logrus"
)

// ReapPolicy holds the age limits the reaper enforces.
type ReapPolicy struct {
	LobbyIdleTTL  time.Duration // waiting/full lobbies older than this are deleted
	GameMaxAge    time.Duration // playing games older than this time out
	FinishedGrace time.Duration // finished games are kept this long for late readers
}

// DefaultReapPolicy is used for any zero field of a policy.
var DefaultReapPolicy = ReapPolicy{
	LobbyIdleTTL:  2 * time.Hour,
	GameMaxAge:    4 * time.Hour,
	FinishedGrace: 10 * time.Minute,
}

func (p ReapPolicy) withDefaults() ReapPolicy {
	if p.LobbyIdleTTL <= 0 {
		p.LobbyIdleTTL = DefaultReapPolicy.LobbyIdleTTL
	}
	if p.GameMaxAge <= 0 {
		p.GameMaxAge = DefaultReapPolicy.GameMaxAge
	}
	if p.FinishedGrace <= 0 {
		p.FinishedGrace = DefaultReapPolicy.FinishedGrace
	}
	return p
}

// ReapResult counts what a single pass removed or ended.
type ReapResult struct {
	LobbiesDeleted int `json:"lobbiesDeleted"`
	GamesTimedOut  int `json:"gamesTimedOut"`
	OrphansDeleted int `json:"orphansDeleted"`
	GamesDeleted   int `json:"gamesDeleted"`
}

// Reap runs one cleanup pass. Each item is handled on its own; a failure is logged and
// the sweep moves on. Only a failure to list documents aborts the pass.
func (s *Service) Reap(ctx context.Context, policy ReapPolicy) (ReapResult, error) {
	policy = policy.withDefaults()
	now := s.now()
	var res ReapResult

	lobbies, err := s.store.ListLobbies(ctx)
	if err != nil {
		return res, fmt.Errorf("list lobbies: %w", err)
	}
	for _, l := range lobbies {
		if l.Status == models.LobbyInGame || now.Sub(l.CreatedAt) <= policy.LobbyIdleTTL {
			continue
		}
		if ok, err := s.deleteLobby(ctx, l.ID); err != nil {
			s.log.WithField("lobby_id", l.ID).WithError(err).Warn("reaper: failed to delete idle lobby")
		} else if ok {
			res.LobbiesDeleted++
		}
	}

	games, err := s.store.ListGames(ctx)
	if err != nil {
		return res, fmt.Errorf("list games: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
		if g.Status != models.GamePlaying || now.Sub(g.StartedAt) <= policy.GameMaxAge {
			continue
		}
		if err := s.timeout(ctx, g); err != nil {
			s.log.WithField("game_id", g.ID).WithError(err).Warn("reaper: failed to time out game")
			continue
		}
		res.GamesTimedOut++
	}

	lobbies, err = s.store.ListLobbies(ctx)
	if err != nil {
		return res, fmt.Errorf("list lobbies: %w", err)
	}
	for _, l := range lobbies {
		if l.Status != models.LobbyInGame {
			continue
		}
		orphan, err := s.isOrphan(ctx, l, byID)
		if err != nil {
			s.log.WithField("lobby_id", l.ID).WithError(err).Warn("reaper: failed to check lobby game")
			continue
		}
		if !orphan {
			continue
		}
		if ok, err := s.deleteLobby(ctx, l.ID); err != nil {
			s.log.WithField("lobby_id", l.ID).WithError(err).Warn("reaper: failed to delete orphaned lobby")
		} else if ok {
			res.OrphansDeleted++
		}
	}

	for _, g := range games {
		if g.Status != models.GameFinished || g.FinishedAt == nil || now.Sub(*g.FinishedAt) <= policy.FinishedGrace {
			continue
		}
		if err := s.store.DeleteGame(ctx, g.ID); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				s.log.WithField("game_id", g.ID).WithError(err).Warn("reaper: failed to delete finished game")
			}
			continue
		}
		res.GamesDeleted++
		if _, err := s.deleteLobby(ctx, g.LobbyID); err != nil {
			s.log.WithField("lobby_id", g.LobbyID).WithError(err).Warn("reaper: failed to delete lobby of finished game")
		}
	}
	return res, nil
}

// timeout force-finishes g in place and persists it.
func (s *Service) timeout(ctx context.Context, g *models.Game) error {
	if err := game.Timeout(g, s.now()); err != nil {
		return err
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		return translate(err, "game", g.ID)
	}
	s.publish(ctx, g, uuid.Nil, cache.ActionTimeout, nil)
	s.finished(ctx, g)
	return nil
}

// isOrphan reports whether an in_game lobby's game is missing or already over. A game
// absent from the listing is looked up again since it may have been created after it.
func (s *Service) isOrphan(ctx context.Context, l *models.Lobby, byID map[uuid.UUID]*models.Game) (bool, error) {
	g, ok := byID[l.GameID]
	if !ok {
		var err error
		g, err = s.store.GetGame(ctx, l.GameID)
		if errors.Is(err, store.ErrNotFound) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
	return g.Status == models.GameFinished, nil
}

// Reaper runs Reap on a fixed interval.
type Reaper struct {
	svc      *Service
	policy   ReapPolicy
	interval time.Duration
	log      logrus.FieldLogger
	sched    gocron.Scheduler
}

// NewReaper schedules svc.Reap every interval. Passes never overlap; a pass still
// running when the next one is due delays it.
func NewReaper(svc *Service, policy ReapPolicy, interval time.Duration, log logrus.FieldLogger) (*Reaper, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	r := &Reaper{svc: svc, policy: policy, interval: interval, log: log, sched: sched}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { r.RunOnce(context.Background()) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule reaper: %w", err)
	}
	return r, nil
}

// Start begins the schedule.
func (r *Reaper) Start() {
	r.sched.Start()
	r.log.WithField("interval", r.interval).Info("session reaper started")
}

// Stop waits for a running pass and stops the schedule.
func (r *Reaper) Stop() error {
	return r.sched.Shutdown()
}

// RunOnce performs a single pass and logs its outcome.
func (r *Reaper) RunOnce(ctx context.Context) ReapResult {
	res, err := r.svc.Reap(ctx, r.policy)
	if err != nil {
		r.log.WithError(err).Error("reaper pass failed")
		return res
	}
	if res != (ReapResult{}) {
		r.log.WithFields(logrus.Fields{
			"lobbies_deleted": res.LobbiesDeleted,
			"games_timed_out": res.GamesTimedOut,
			"orphans_deleted": res.OrphansDeleted,
			"games_deleted":   res.GamesDeleted,
		}).Info("reaper pass")
	}
	return res
}
