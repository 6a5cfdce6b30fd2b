// internal/game/classic.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/board"
	"github.com/jason-s-yu/minesweep/internal/models"
)

// classicRules is the turn-based mode: one shared board, the turn passes on a mine.
type classicRules struct{}

func (classicRules) Mode() models.Mode { return models.ModeClassic }

// Setup fixes the turn order to roster order, host first.
func (classicRules) Setup(g *models.Game) {
	g.TurnOrder = make([]uuid.UUID, 0, len(g.Players))
	for _, p := range g.Players {
		g.TurnOrder = append(g.TurnOrder, p.ID)
	}
	g.CurrentTurn = 0
}

func (classicRules) Move(g *models.Game, player uuid.UUID, row, col int, now time.Time) (*MoveResult, error) {
	if g.Status != models.GamePlaying {
		return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, g.Status)
	}
	if player != g.CurrentPlayerID() {
		return nil, fmt.Errorf("%w: not your turn", ErrForbidden)
	}
	p := g.Player(player)
	if p == nil {
		return nil, fmt.Errorf("%w: not a player in this game", ErrForbidden)
	}
	if err := checkTarget(g, row, col); err != nil {
		return nil, err
	}
	if g.Board.IsRevealed(row, col) {
		return nil, fmt.Errorf("%w: cell (%d,%d) already revealed", ErrConflict, row, col)
	}

	res := &MoveResult{Revealed: board.Cascade(g.Board, g.Board, row, col)}
	g.Board.Apply(res.Revealed)

	if g.Board.At(row, col).IsMine {
		res.Mine = true
		res.Delta = penalize(p)
		g.MinesRevealed++
		g.CurrentTurn = (g.CurrentTurn + 1) % len(g.TurnOrder)
	} else {
		res.Delta = board.Score(g.Board, res.Revealed)
		p.Score += res.Delta
	}
	recordMove(g, player, row, col, res, now)

	if g.Board.Cleared(g.Board) {
		g.Finish(winnerByScore(g.Players), now)
		res.Finished = true
	}
	return res, nil
}

// Mask is the shared board for everybody, spectators included.
func (classicRules) Mask(g *models.Game, _ uuid.UUID) board.Mask {
	return g.Board
}

func (classicRules) LastMoveFor(g *models.Game, _ uuid.UUID) *models.LastMove {
	return g.LastMove
}
