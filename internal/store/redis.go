// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "minesweep"

// RedisStore keeps each document as a JSON string under its own key, with one index
// set per kind for listing. Saves run under WATCH so concurrent writers from the same
// version cannot both succeed.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps a connected client. An empty prefix uses DefaultPrefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

const (
	kindLobby = "lobby"
	kindGame  = "game"
)

func (s *RedisStore) key(kind string, id uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, id)
}

func (s *RedisStore) index(kind string) string {
	return fmt.Sprintf("%s:%ss", s.prefix, kind)
}

func (s *RedisStore) feed(gameID uuid.UUID) string {
	return fmt.Sprintf("%s:game:%s:feed", s.prefix, gameID)
}

func (s *RedisStore) CreateLobby(ctx context.Context, l *models.Lobby) error {
	return s.create(ctx, kindLobby, l.ID, &l.Version, l)
}

func (s *RedisStore) GetLobby(ctx context.Context, id uuid.UUID) (*models.Lobby, error) {
	var l models.Lobby
	if err := s.get(ctx, kindLobby, id, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *RedisStore) SaveLobby(ctx context.Context, l *models.Lobby) error {
	return s.save(ctx, kindLobby, l.ID, &l.Version, l, "")
}

func (s *RedisStore) DeleteLobby(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, kindLobby, id, "")
}

func (s *RedisStore) ListLobbies(ctx context.Context) ([]*models.Lobby, error) {
	var out []*models.Lobby
	err := s.list(ctx, kindLobby, func(raw []byte) error {
		var l models.Lobby
		if err := json.Unmarshal(raw, &l); err != nil {
			return err
		}
		out = append(out, &l)
		return nil
	})
	return out, err
}

func (s *RedisStore) CreateGame(ctx context.Context, g *models.Game) error {
	return s.create(ctx, kindGame, g.ID, &g.Version, g)
}

func (s *RedisStore) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var g models.Game
	if err := s.get(ctx, kindGame, id, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *RedisStore) SaveGame(ctx context.Context, g *models.Game) error {
	return s.save(ctx, kindGame, g.ID, &g.Version, g, s.feed(g.ID))
}

func (s *RedisStore) DeleteGame(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, kindGame, id, s.feed(id))
}

func (s *RedisStore) ListGames(ctx context.Context) ([]*models.Game, error) {
	var out []*models.Game
	err := s.list(ctx, kindGame, func(raw []byte) error {
		var g models.Game
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		out = append(out, &g)
		return nil
	})
	return out, err
}

// Subscribe listens on the game's feed channel.
func (s *RedisStore) Subscribe(ctx context.Context, gameID uuid.UUID) (<-chan int64, error) {
	ps := s.rdb.Subscribe(ctx, s.feed(gameID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to game %s: %w", gameID, err)
	}

	out := make(chan int64, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				v, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) create(ctx context.Context, kind string, id uuid.UUID, version *int64, v any) error {
	key := s.key(kind, id)
	prev := *version
	*version = 1
	data, err := json.Marshal(v)
	if err != nil {
		*version = prev
		return fmt.Errorf("encode %s: %w", kind, err)
	}

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.index(kind), id.String())
			return nil
		})
		return err
	}, key)
	if err != nil {
		*version = prev
		if errors.Is(err, redis.TxFailedErr) {
			return ErrExists
		}
		if errors.Is(err, ErrExists) {
			return err
		}
		return fmt.Errorf("create %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *RedisStore) save(ctx context.Context, kind string, id uuid.UUID, version *int64, v any, channel string) error {
	key := s.key(kind, id)
	expected := *version

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("decode %s version: %w", kind, err)
		}
		if stored.Version != expected {
			return ErrStale
		}

		*version = expected + 1
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", kind, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if channel != "" {
				pipe.Publish(ctx, channel, *version)
			}
			return nil
		})
		return err
	}, key)
	if err != nil {
		*version = expected
		switch {
		case errors.Is(err, redis.TxFailedErr):
			return ErrStale
		case errors.Is(err, ErrStale), errors.Is(err, ErrNotFound):
			return err
		}
		return fmt.Errorf("save %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, kind string, id uuid.UUID, v any) error {
	raw, err := s.rdb.Get(ctx, s.key(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *RedisStore) delete(ctx context.Context, kind string, id uuid.UUID, channel string) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(kind, id))
		pipe.SRem(ctx, s.index(kind), id.String())
		if channel != "" {
			pipe.Publish(ctx, channel, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// list loads every indexed document of kind. Index entries whose key is gone are
// pruned as they are found.
func (s *RedisStore) list(ctx context.Context, kind string, decode func([]byte) error) error {
	ids, err := s.rdb.SMembers(ctx, s.index(kind)).Result()
	if err != nil {
		return fmt.Errorf("list %s index: %w", kind, err)
	}
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("%s:%s:%s", s.prefix, kind, id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("load %ss: %w", kind, err)
	}

	var stale []any
	for i, val := range vals {
		str, ok := val.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		if err := decode([]byte(str)); err != nil {
			return fmt.Errorf("decode %s %s: %w", kind, ids[i], err)
		}
	}
	if len(stale) > 0 {
		s.rdb.SRem(ctx, s.index(kind), stale...)
	}
	return nil
}
