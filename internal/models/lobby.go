// internal/models/lobby.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LobbyStatus is the lifecycle phase of a lobby. A removed lobby has no status; it
// simply no longer exists in the store.
type LobbyStatus string

const (
	LobbyWaiting LobbyStatus = "waiting"
	LobbyFull    LobbyStatus = "full"
	LobbyInGame  LobbyStatus = "in_game"
)

// Mode selects the rule set a game is played under.
type Mode string

const (
	ModeClassic Mode = "classic" // turn-based, one shared board
	ModeRace    Mode = "race"    // simultaneous, per-player reveal sets
)

const (
	MinPlayers = 2
	MaxPlayers = 6
)

// Member is one entry of a lobby roster.
type Member struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Lobby is the stored pre-game document. Roster[0] is always the host.
type Lobby struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Slug         string      `json:"slug"`
	PasswordHash string      `json:"passwordHash,omitempty"`
	HostID       uuid.UUID   `json:"hostId"`
	MaxPlayers   int         `json:"maxPlayers"`
	Roster       []Member    `json:"roster"`
	Difficulty   string      `json:"difficulty"`
	Mode         Mode        `json:"mode"`
	Status       LobbyStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
	GameID       uuid.UUID   `json:"gameId"`

	// Version is bumped by the store on every successful write.
	Version int64 `json:"version"`
}

// HasMember reports whether id is on the roster.
func (l *Lobby) HasMember(id uuid.UUID) bool {
	for _, m := range l.Roster {
		if m.ID == id {
			return true
		}
	}
	return false
}

// IsHost reports whether id hosts the lobby.
func (l *Lobby) IsHost(id uuid.UUID) bool {
	return l.HostID == id
}

// HasPassword reports whether joining requires a password.
func (l *Lobby) HasPassword() bool {
	return l.PasswordHash != ""
}
