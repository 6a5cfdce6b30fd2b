// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/models"
)

var (
	// ErrNotFound is returned when no document exists under the id.
	ErrNotFound = errors.New("document not found")
	// ErrStale is returned when a save carries a version other than the stored one.
	ErrStale = errors.New("document version is stale")
	// ErrExists is returned when creating a document whose id is already taken.
	ErrExists = errors.New("document already exists")
)

// Store persists lobby and game documents. Every read returns a private copy; writes
// are compare-and-swap on the Version field, which a successful Create or Save bumps
// in place on the passed document.
type Store interface {
	CreateLobby(ctx context.Context, l *models.Lobby) error
	GetLobby(ctx context.Context, id uuid.UUID) (*models.Lobby, error)
	SaveLobby(ctx context.Context, l *models.Lobby) error
	DeleteLobby(ctx context.Context, id uuid.UUID) error
	ListLobbies(ctx context.Context) ([]*models.Lobby, error)

	CreateGame(ctx context.Context, g *models.Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	SaveGame(ctx context.Context, g *models.Game) error
	DeleteGame(ctx context.Context, id uuid.UUID) error
	ListGames(ctx context.Context) ([]*models.Game, error)

	// Subscribe delivers the new version number each time the game is saved or
	// deleted. The channel is closed once ctx is done.
	Subscribe(ctx context.Context, gameID uuid.UUID) (<-chan int64, error)
}
