// internal/game/session.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/models"
)

// Move dispatches a reveal to the rule set of the game's mode.
func Move(g *models.Game, player uuid.UUID, row, col int, now time.Time) (*MoveResult, error) {
	rules, err := RulesFor(g.Mode)
	if err != nil {
		return nil, err
	}
	return rules.Move(g, player, row, col, now)
}

// Forfeit ends the game because player left. A single remaining player wins; with
// several remaining the highest score wins, or the game is a draw on a tie.
func Forfeit(g *models.Game, player uuid.UUID, now time.Time) (string, error) {
	if g.Status != models.GamePlaying {
		return "", fmt.Errorf("%w: game is %s", ErrInvalidState, g.Status)
	}
	if g.Player(player) == nil {
		return "", fmt.Errorf("%w: not a player in this game", ErrForbidden)
	}

	remaining := make([]models.Player, 0, len(g.Players)-1)
	for _, p := range g.Players {
		if p.ID != player {
			remaining = append(remaining, p)
		}
	}

	var winner string
	switch len(remaining) {
	case 0:
		winner = models.WinnerDraw
	case 1:
		winner = remaining[0].ID.String()
	default:
		winner = winnerByScore(remaining)
	}
	g.Finish(winner, now)
	return winner, nil
}

// Timeout force-finishes a game that outlived its maximum age.
func Timeout(g *models.Game, now time.Time) error {
	if g.Status != models.GamePlaying {
		return fmt.Errorf("%w: game is %s", ErrInvalidState, g.Status)
	}
	g.Finish(models.WinnerTimeout, now)
	return nil
}

// Watch adds a spectator. Players already see the game and cannot also spectate.
func Watch(g *models.Game, viewer uuid.UUID) error {
	if g.Status != models.GamePlaying {
		return fmt.Errorf("%w: game is %s", ErrInvalidState, g.Status)
	}
	if g.Player(viewer) != nil {
		return fmt.Errorf("%w: players cannot spectate their own game", ErrConflict)
	}
	if g.IsSpectator(viewer) {
		return nil
	}
	g.Spectators = append(g.Spectators, viewer)
	return nil
}

// CanView reports whether viewer may load the game at all.
func CanView(g *models.Game, viewer uuid.UUID) bool {
	return g.Player(viewer) != nil || g.IsSpectator(viewer)
}
