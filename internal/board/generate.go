// internal/board/generate.go
package board

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrInvalidDimensions is returned when the requested layout cannot exist.
var ErrInvalidDimensions = errors.New("invalid board dimensions")

// Generate places mines uniformly at random, never on (safeRow, safeCol), and
// computes neighbour counts. A nil rng falls back to a time-seeded source.
func Generate(rows, cols, mines, safeRow, safeCol int, rng *rand.Rand) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}
	if mines < 0 || mines >= rows*cols {
		return nil, fmt.Errorf("%w: %d mines on %d cells", ErrInvalidDimensions, mines, rows*cols)
	}
	b := newBoard(rows, cols)
	if !b.InBounds(safeRow, safeCol) {
		return nil, fmt.Errorf("%w: safe cell (%d,%d) off board", ErrInvalidDimensions, safeRow, safeCol)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// rejection sampling; mine counts are always well below the cell count
	placed := 0
	for placed < mines {
		r, c := rng.Intn(rows), rng.Intn(cols)
		if r == safeRow && c == safeCol {
			continue
		}
		cell := b.At(r, c)
		if cell.IsMine {
			continue
		}
		cell.IsMine = true
		placed++
	}
	b.Mines = mines
	b.countNeighbors()
	return b, nil
}

// FromMines builds a board with an explicit mine layout.
func FromMines(rows, cols int, mines []Coord) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}
	b := newBoard(rows, cols)
	for _, m := range mines {
		cell := b.At(m.Row, m.Col)
		if cell == nil {
			return nil, fmt.Errorf("%w: mine (%d,%d) off board", ErrInvalidDimensions, m.Row, m.Col)
		}
		if !cell.IsMine {
			cell.IsMine = true
			b.Mines++
		}
	}
	if b.Mines >= rows*cols {
		return nil, fmt.Errorf("%w: board has no safe cell", ErrInvalidDimensions)
	}
	b.countNeighbors()
	return b, nil
}

func (b *Board) countNeighbors() {
	for i := range b.Cells {
		c := &b.Cells[i]
		if c.IsMine {
			c.NeighborMines = 0
			continue
		}
		n := 0
		for _, nb := range b.neighbors(c.Row, c.Col) {
			if b.At(nb.Row, nb.Col).IsMine {
				n++
			}
		}
		c.NeighborMines = n
	}
}
