// internal/game/rules.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/board"
	"github.com/jason-s-yu/minesweep/internal/models"
)

// minePenalty is subtracted from a player's score for revealing a mine, floored at 0.
const minePenalty = 3

// MoveResult is the delta a validated move applied to the game.
type MoveResult struct {
	Revealed []board.Coord `json:"revealed"`
	Mine     bool          `json:"mine"`
	Delta    int           `json:"delta"`
	Finished bool          `json:"finished"`
}

// Rules is implemented once per game mode. All mode-specific behavior goes through
// it; callers never branch on models.Mode themselves.
type Rules interface {
	Mode() models.Mode

	// Setup initialises the per-mode fields of a freshly built game.
	Setup(g *models.Game)

	// Move validates and applies a reveal by player at (row, col). On error g is
	// left untouched.
	Move(g *models.Game, player uuid.UUID, row, col int, now time.Time) (*MoveResult, error)

	// Mask is the reveal state viewer is allowed to see.
	Mask(g *models.Game, viewer uuid.UUID) board.Mask

	// LastMoveFor returns the last move as viewer may see it, or nil.
	LastMoveFor(g *models.Game, viewer uuid.UUID) *models.LastMove
}

var rulesByMode = map[models.Mode]Rules{
	models.ModeClassic: classicRules{},
	models.ModeRace:    raceRules{},
}

// RulesFor returns the rule set for mode.
func RulesFor(mode models.Mode) (Rules, error) {
	r, ok := rulesByMode[mode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown game mode %q", ErrInvalidInput, mode)
	}
	return r, nil
}

// penalize applies the mine penalty with the zero floor and returns the delta.
func penalize(p *models.Player) int {
	before := p.Score
	p.Score -= minePenalty
	if p.Score < 0 {
		p.Score = 0
	}
	return p.Score - before
}

// winnerByScore returns the sole highest scorer's id, or WinnerDraw on a tie.
func winnerByScore(players []models.Player) string {
	if len(players) == 0 {
		return models.WinnerDraw
	}
	best := players[0]
	tied := false
	for _, p := range players[1:] {
		switch {
		case p.Score > best.Score:
			best, tied = p, false
		case p.Score == best.Score:
			tied = true
		}
	}
	if tied {
		return models.WinnerDraw
	}
	return best.ID.String()
}

func checkTarget(g *models.Game, row, col int) error {
	if !g.Board.InBounds(row, col) {
		return fmt.Errorf("%w: cell (%d,%d) is off the %dx%d board", ErrConflict, row, col, g.Board.Rows, g.Board.Cols)
	}
	return nil
}

func recordMove(g *models.Game, player uuid.UUID, row, col int, res *MoveResult, now time.Time) {
	g.LastMove = &models.LastMove{
		PlayerID: player,
		Row:      row,
		Col:      col,
		Mine:     res.Mine,
		Revealed: len(res.Revealed),
		Delta:    res.Delta,
		At:       now,
	}
}
