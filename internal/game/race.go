// internal/game/race.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/board"
	"github.com/jason-s-yu/minesweep/internal/models"
)

// raceRules is the simultaneous mode: one mine layout, a private reveal set per
// player, first to clear every safe cell wins.
type raceRules struct{}

func (raceRules) Mode() models.Mode { return models.ModeRace }

func (raceRules) Setup(g *models.Game) {
	g.TurnOrder = nil
	g.CurrentTurn = -1
	for i := range g.Players {
		g.Players[i].Revealed = make([]bool, len(g.Board.Cells))
		g.Players[i].Finished = false
	}
}

func (raceRules) Move(g *models.Game, player uuid.UUID, row, col int, now time.Time) (*MoveResult, error) {
	if g.Status != models.GamePlaying {
		return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, g.Status)
	}
	p := g.Player(player)
	if p == nil {
		return nil, fmt.Errorf("%w: not a player in this game", ErrForbidden)
	}
	if p.Finished {
		return nil, fmt.Errorf("%w: you already cleared the board", ErrConflict)
	}
	if err := checkTarget(g, row, col); err != nil {
		return nil, err
	}
	if len(p.Revealed) != len(g.Board.Cells) {
		// tolerate documents written before the player's set existed
		p.Revealed = make([]bool, len(g.Board.Cells))
	}
	mask := g.Board.Overlay(p.Revealed)
	if mask.IsRevealed(row, col) {
		return nil, fmt.Errorf("%w: cell (%d,%d) already revealed", ErrConflict, row, col)
	}

	res := &MoveResult{Revealed: board.Cascade(g.Board, mask, row, col)}
	for _, co := range res.Revealed {
		p.Revealed[g.Board.Index(co.Row, co.Col)] = true
	}

	if g.Board.At(row, col).IsMine {
		res.Mine = true
		res.Delta = penalize(p)
		g.MinesRevealed++
	} else {
		res.Delta = board.Score(g.Board, res.Revealed)
		p.Score += res.Delta
	}
	recordMove(g, player, row, col, res, now)

	if g.Board.Cleared(mask) {
		p.Finished = true
		g.Finish(p.ID.String(), now)
		res.Finished = true
	}
	return res, nil
}

// Mask exposes only the viewer's own reveal set. Spectators and outsiders see nothing
// until the game is over.
func (raceRules) Mask(g *models.Game, viewer uuid.UUID) board.Mask {
	if p := g.Player(viewer); p != nil {
		return g.Board.Overlay(p.Revealed)
	}
	return board.Nothing
}

// LastMoveFor hides other players' moves while the race is on; their coordinates and
// outcome would leak layout information.
func (raceRules) LastMoveFor(g *models.Game, viewer uuid.UUID) *models.LastMove {
	if g.LastMove == nil {
		return nil
	}
	if g.Status == models.GameFinished || g.LastMove.PlayerID == viewer {
		return g.LastMove
	}
	return nil
}
