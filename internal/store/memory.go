// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/models"
)

type memDoc struct {
	version int64
	data    []byte
}

// MemoryStore keeps encoded documents in process memory. Documents are stored as
// JSON so callers never share pointers with the store.
type MemoryStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]memDoc
	games   map[uuid.UUID]memDoc
	subs    map[uuid.UUID]map[chan int64]struct{}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lobbies: make(map[uuid.UUID]memDoc),
		games:   make(map[uuid.UUID]memDoc),
		subs:    make(map[uuid.UUID]map[chan int64]struct{}),
	}
}

func (s *MemoryStore) CreateLobby(_ context.Context, l *models.Lobby) error {
	return s.create(s.lobbies, l.ID, &l.Version, l)
}

func (s *MemoryStore) GetLobby(_ context.Context, id uuid.UUID) (*models.Lobby, error) {
	var l models.Lobby
	if err := s.get(s.lobbies, id, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *MemoryStore) SaveLobby(_ context.Context, l *models.Lobby) error {
	return s.save(s.lobbies, l.ID, &l.Version, l)
}

func (s *MemoryStore) DeleteLobby(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lobbies[id]; !ok {
		return ErrNotFound
	}
	delete(s.lobbies, id)
	return nil
}

func (s *MemoryStore) ListLobbies(_ context.Context) ([]*models.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Lobby, 0, len(s.lobbies))
	for _, d := range s.lobbies {
		var l models.Lobby
		if err := json.Unmarshal(d.data, &l); err != nil {
			return nil, fmt.Errorf("decode lobby: %w", err)
		}
		out = append(out, &l)
	}
	return out, nil
}

func (s *MemoryStore) CreateGame(_ context.Context, g *models.Game) error {
	return s.create(s.games, g.ID, &g.Version, g)
}

func (s *MemoryStore) GetGame(_ context.Context, id uuid.UUID) (*models.Game, error) {
	var g models.Game
	if err := s.get(s.games, id, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *MemoryStore) SaveGame(_ context.Context, g *models.Game) error {
	if err := s.save(s.games, g.ID, &g.Version, g); err != nil {
		return err
	}
	s.notify(g.ID, g.Version)
	return nil
}

func (s *MemoryStore) DeleteGame(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	if _, ok := s.games[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.games, id)
	s.mu.Unlock()
	s.notify(id, 0)
	return nil
}

func (s *MemoryStore) ListGames(_ context.Context) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Game, 0, len(s.games))
	for _, d := range s.games {
		var g models.Game
		if err := json.Unmarshal(d.data, &g); err != nil {
			return nil, fmt.Errorf("decode game: %w", err)
		}
		out = append(out, &g)
	}
	return out, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, gameID uuid.UUID) (<-chan int64, error) {
	ch := make(chan int64, 1)
	s.mu.Lock()
	if s.subs[gameID] == nil {
		s.subs[gameID] = make(map[chan int64]struct{})
	}
	s.subs[gameID][ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[gameID], ch)
		if len(s.subs[gameID]) == 0 {
			delete(s.subs, gameID)
		}
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// notify never blocks; a subscriber that is behind still reloads the latest document.
func (s *MemoryStore) notify(gameID uuid.UUID, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[gameID] {
		select {
		case ch <- version:
		default:
		}
	}
}

func (s *MemoryStore) create(docs map[uuid.UUID]memDoc, id uuid.UUID, version *int64, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := docs[id]; ok {
		return ErrExists
	}
	return s.put(docs, id, version, 1, v)
}

func (s *MemoryStore) save(docs map[uuid.UUID]memDoc, id uuid.UUID, version *int64, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := docs[id]
	if !ok {
		return ErrNotFound
	}
	if cur.version != *version {
		return ErrStale
	}
	return s.put(docs, id, version, cur.version+1, v)
}

// put must be called with s.mu held.
func (s *MemoryStore) put(docs map[uuid.UUID]memDoc, id uuid.UUID, version *int64, next int64, v any) error {
	prev := *version
	*version = next
	data, err := json.Marshal(v)
	if err != nil {
		*version = prev
		return fmt.Errorf("encode document: %w", err)
	}
	docs[id] = memDoc{version: next, data: data}
	return nil
}

func (s *MemoryStore) get(docs map[uuid.UUID]memDoc, id uuid.UUID, v any) error {
	s.mu.Lock()
	d, ok := docs[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(d.data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
