// internal/game/view.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/board"
	"github.com/jason-s-yu/minesweep/internal/models"
)

// LobbyView is what clients see of a lobby. The password hash never leaves the server.
type LobbyView struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	HasPassword bool               `json:"hasPassword"`
	HostID      uuid.UUID          `json:"hostId"`
	MaxPlayers  int                `json:"maxPlayers"`
	Players     []models.Member    `json:"players"`
	Difficulty  string             `json:"difficulty"`
	Mode        models.Mode        `json:"mode"`
	Status      models.LobbyStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	GameID      *uuid.UUID         `json:"gameId,omitempty"`
}

// NewLobbyView renders l for clients.
func NewLobbyView(l *models.Lobby) LobbyView {
	v := LobbyView{
		ID:          l.ID,
		Name:        l.Name,
		Slug:        l.Slug,
		HasPassword: l.HasPassword(),
		HostID:      l.HostID,
		MaxPlayers:  l.MaxPlayers,
		Players:     append([]models.Member(nil), l.Roster...),
		Difficulty:  l.Difficulty,
		Mode:        l.Mode,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
	}
	if l.GameID != uuid.Nil {
		id := l.GameID
		v.GameID = &id
	}
	return v
}

// PlayerView is a player's public standing.
type PlayerView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Finished bool      `json:"finished,omitempty"`
}

// GameView is the sanitized game a single viewer receives.
type GameView struct {
	ID            uuid.UUID          `json:"id"`
	LobbyID       uuid.UUID          `json:"lobbyId"`
	Mode          models.Mode        `json:"mode"`
	Status        models.GameStatus  `json:"status"`
	Rows          int                `json:"rows"`
	Cols          int                `json:"cols"`
	Mines         int                `json:"mines"`
	Players       []PlayerView       `json:"players"`
	TurnOrder     []uuid.UUID        `json:"turnOrder,omitempty"`
	CurrentTurn   *uuid.UUID         `json:"currentTurn,omitempty"`
	Winner        string             `json:"winner,omitempty"`
	MinesRevealed int                `json:"minesRevealed"`
	LastMove      *models.LastMove   `json:"lastMove,omitempty"`
	Spectators    int                `json:"spectators"`
	StartedAt     time.Time          `json:"startedAt"`
	FinishedAt    *time.Time         `json:"finishedAt,omitempty"`
	Board         [][]board.CellView `json:"board"`
	Version       int64              `json:"version"`
}

// NewGameView renders g for viewer. While the game is playing, cells the viewer has
// not revealed show isMine=false and neighborMines=0; once finished the whole board
// is disclosed.
func NewGameView(g *models.Game, viewer uuid.UUID) GameView {
	rules, err := RulesFor(g.Mode)
	mask := board.Nothing
	var last *models.LastMove
	if err == nil {
		mask = rules.Mask(g, viewer)
		last = rules.LastMoveFor(g, viewer)
	}

	v := GameView{
		ID:            g.ID,
		LobbyID:       g.LobbyID,
		Mode:          g.Mode,
		Status:        g.Status,
		Rows:          g.Board.Rows,
		Cols:          g.Board.Cols,
		Mines:         g.Board.Mines,
		TurnOrder:     append([]uuid.UUID(nil), g.TurnOrder...),
		Winner:        g.Winner,
		MinesRevealed: g.MinesRevealed,
		LastMove:      last,
		Spectators:    len(g.Spectators),
		StartedAt:     g.StartedAt,
		FinishedAt:    g.FinishedAt,
		Board:         board.View(g.Board, mask, g.Status == models.GameFinished),
		Version:       g.Version,
	}
	for _, p := range g.Players {
		v.Players = append(v.Players, PlayerView{ID: p.ID, Name: p.Name, Score: p.Score, Finished: p.Finished})
	}
	if g.Status == models.GamePlaying {
		if cur := g.CurrentPlayerID(); cur != uuid.Nil {
			v.CurrentTurn = &cur
		}
	}
	return v
}
