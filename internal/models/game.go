// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/board"
)

// GameStatus is the lifecycle phase of a game. Finished is terminal.
type GameStatus string

const (
	GamePlaying  GameStatus = "playing"
	GameFinished GameStatus = "finished"
)

// Sentinel winner values besides a player id.
const (
	WinnerDraw    = "draw"
	WinnerTimeout = "timeout"
)

// Player is a participant's in-game record.
type Player struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Score int       `json:"score"`

	// Race mode only: whether the player has cleared the board, and the player's own
	// reveal set indexed like board.Board.Cells.
	Finished bool   `json:"finished,omitempty"`
	Revealed []bool `json:"revealed,omitempty"`
}

// LastMove describes the most recent accepted move.
type LastMove struct {
	PlayerID uuid.UUID `json:"playerId"`
	Row      int       `json:"row"`
	Col      int       `json:"col"`
	Mine     bool      `json:"mine"`
	Revealed int       `json:"revealed"`
	Delta    int       `json:"delta"`
	At       time.Time `json:"at"`
}

// Game is the stored document for one match. Board holds the authoritative layout
// and must only leave the server through a sanitized view.
type Game struct {
	ID      uuid.UUID  `json:"id"`
	LobbyID uuid.UUID  `json:"lobbyId"`
	Mode    Mode       `json:"mode"`
	Status  GameStatus `json:"status"`

	Players     []Player     `json:"players"`
	TurnOrder   []uuid.UUID  `json:"turnOrder,omitempty"`
	CurrentTurn int          `json:"currentTurn"`
	Board       *board.Board `json:"board"`

	MinesRevealed int         `json:"minesRevealed"`
	Winner        string      `json:"winner,omitempty"`
	StartedAt     time.Time   `json:"startedAt"`
	FinishedAt    *time.Time  `json:"finishedAt,omitempty"`
	LastMove      *LastMove   `json:"lastMove,omitempty"`
	Spectators    []uuid.UUID `json:"spectators,omitempty"`

	Version int64 `json:"version"`
}

// Player returns the record for id, or nil.
func (g *Game) Player(id uuid.UUID) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// IsSpectator reports whether id is watching the game.
func (g *Game) IsSpectator(id uuid.UUID) bool {
	for _, s := range g.Spectators {
		if s == id {
			return true
		}
	}
	return false
}

// CurrentPlayerID is the player whose turn it is, or uuid.Nil when the mode has no turns.
func (g *Game) CurrentPlayerID() uuid.UUID {
	if len(g.TurnOrder) == 0 || g.CurrentTurn < 0 || g.CurrentTurn >= len(g.TurnOrder) {
		return uuid.Nil
	}
	return g.TurnOrder[g.CurrentTurn]
}

// Finish moves the game to its terminal state.
func (g *Game) Finish(winner string, now time.Time) {
	g.Status = GameFinished
	g.Winner = winner
	g.FinishedAt = &now
}
