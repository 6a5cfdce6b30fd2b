// internal/game/lobby.go
package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jason-s-yu/minesweep/internal/auth"
	"github.com/jason-s-yu/minesweep/internal/board"
	"github.com/jason-s-yu/minesweep/internal/models"
)

const maxLobbyNameLen = 64

// LobbyOptions are the host-chosen settings of a new lobby.
type LobbyOptions struct {
	Name       string      `json:"name"`
	Password   string      `json:"password,omitempty"`
	MaxPlayers int         `json:"maxPlayers"`
	Difficulty string      `json:"difficulty"`
	Mode       models.Mode `json:"mode"`
}

// NewLobby validates opts and builds a waiting lobby with host as its first member.
// The password, if any, is stored only as a salted argon2id hash.
func NewLobby(host models.Member, opts LobbyOptions, now time.Time) (*models.Lobby, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" || utf8.RuneCountInString(name) > maxLobbyNameLen {
		return nil, fmt.Errorf("%w: lobby name must be 1-%d characters", ErrInvalidInput, maxLobbyNameLen)
	}
	if opts.MaxPlayers < models.MinPlayers || opts.MaxPlayers > models.MaxPlayers {
		return nil, fmt.Errorf("%w: maxPlayers must be between %d and %d", ErrInvalidInput, models.MinPlayers, models.MaxPlayers)
	}
	if _, ok := models.LookupDifficulty(opts.Difficulty); !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, opts.Difficulty)
	}
	if _, err := RulesFor(opts.Mode); err != nil {
		return nil, err
	}
	if host.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: host has no identity", ErrInvalidInput)
	}

	l := &models.Lobby{
		ID:         uuid.New(),
		Name:       name,
		Slug:       slug.Make(name),
		HostID:     host.ID,
		MaxPlayers: opts.MaxPlayers,
		Roster:     []models.Member{host},
		Difficulty: opts.Difficulty,
		Mode:       opts.Mode,
		Status:     models.LobbyWaiting,
		CreatedAt:  now,
	}
	if opts.Password != "" {
		hash, err := auth.HashPassword(opts.Password, auth.LobbyParams)
		if err != nil {
			return nil, fmt.Errorf("hash lobby password: %w", err)
		}
		l.PasswordHash = hash
	}
	return l, nil
}

// Join appends player to the roster.
func Join(l *models.Lobby, player models.Member, password string) error {
	if l.HasPassword() {
		ok, err := auth.VerifyPassword(password, l.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify lobby password: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: wrong lobby password", ErrUnauthorized)
		}
	}
	if l.HasMember(player.ID) {
		return fmt.Errorf("%w: already in lobby", ErrConflict)
	}
	if l.Status != models.LobbyWaiting || len(l.Roster) >= l.MaxPlayers {
		return fmt.Errorf("%w: lobby is not accepting players (%s)", ErrConflict, l.Status)
	}

	l.Roster = append(l.Roster, player)
	refreshStatus(l)
	return nil
}

// Leave removes player from the roster. When the host leaves there is no migration:
// the returned flag tells the caller to delete the lobby outright.
func Leave(l *models.Lobby, player uuid.UUID) (deleteLobby bool, err error) {
	if !l.HasMember(player) {
		return false, fmt.Errorf("%w: not in lobby", ErrForbidden)
	}
	if l.Status == models.LobbyInGame {
		return false, fmt.Errorf("%w: lobby is in game, leave the game instead", ErrInvalidState)
	}
	if l.IsHost(player) {
		return true, nil
	}

	roster := l.Roster[:0]
	for _, m := range l.Roster {
		if m.ID != player {
			roster = append(roster, m)
		}
	}
	l.Roster = roster
	refreshStatus(l)
	return len(l.Roster) == 0, nil
}

func refreshStatus(l *models.Lobby) {
	if l.Status == models.LobbyInGame {
		return
	}
	if len(l.Roster) >= l.MaxPlayers {
		l.Status = models.LobbyFull
	} else {
		l.Status = models.LobbyWaiting
	}
}

// Start builds the game for a full lobby and links it. The mine layout is generated
// around a server-chosen safe cell.
func Start(l *models.Lobby, player uuid.UUID, rng *rand.Rand, now time.Time) (*models.Game, error) {
	if !l.IsHost(player) {
		return nil, fmt.Errorf("%w: only the host can start the game", ErrForbidden)
	}
	if l.Status != models.LobbyFull {
		return nil, fmt.Errorf("%w: lobby must be full to start (%d/%d players)", ErrInvalidState, len(l.Roster), l.MaxPlayers)
	}
	diff, ok := models.LookupDifficulty(l.Difficulty)
	if !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, l.Difficulty)
	}
	rules, err := RulesFor(l.Mode)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}

	b, err := board.Generate(diff.Rows, diff.Cols, diff.Mines, rng.Intn(diff.Rows), rng.Intn(diff.Cols), rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	g := &models.Game{
		ID:        uuid.New(),
		LobbyID:   l.ID,
		Mode:      l.Mode,
		Status:    models.GamePlaying,
		Board:     b,
		StartedAt: now,
	}
	for _, m := range l.Roster {
		g.Players = append(g.Players, models.Player{ID: m.ID, Name: m.Name})
	}
	rules.Setup(g)

	l.Status = models.LobbyInGame
	l.GameID = g.ID
	return g, nil
}
