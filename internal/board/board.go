// internal/board/board.go
package board

// CellState is the authoritative reveal state of a cell. Flags are a client-side
// annotation and never stored here.
type CellState string

const (
	Hidden   CellState = "hidden"
	Revealed CellState = "revealed"
)

// Coord addresses a single cell.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Cell is one square of the authoritative board.
type Cell struct {
	Row           int       `json:"row"`
	Col           int       `json:"col"`
	IsMine        bool      `json:"isMine"`
	NeighborMines int       `json:"neighborMines"`
	State         CellState `json:"state"`
}

// Board holds the full mine layout in row-major order. It must never be sent to a
// client as-is; see View.
type Board struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Mines int    `json:"mines"`
	Cells []Cell `json:"cells"`
}

// Mask reports whether a cell has already been revealed for some observer.
type Mask interface {
	IsRevealed(row, col int) bool
}

type maskFunc func(row, col int) bool

func (f maskFunc) IsRevealed(row, col int) bool { return f(row, col) }

func newBoard(rows, cols int) *Board {
	b := &Board{
		Rows:  rows,
		Cols:  cols,
		Cells: make([]Cell, rows*cols),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b.Cells[r*cols+c] = Cell{Row: r, Col: c, State: Hidden}
		}
	}
	return b
}

// InBounds reports whether (row, col) lies on the board.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.Rows && col >= 0 && col < b.Cols
}

// Index returns the row-major index of (row, col). The caller checks bounds.
func (b *Board) Index(row, col int) int {
	return row*b.Cols + col
}

// At returns the cell at (row, col), or nil when out of bounds.
func (b *Board) At(row, col int) *Cell {
	if !b.InBounds(row, col) {
		return nil
	}
	return &b.Cells[b.Index(row, col)]
}

// IsRevealed implements Mask using the board's own shared reveal state.
func (b *Board) IsRevealed(row, col int) bool {
	c := b.At(row, col)
	return c != nil && c.State == Revealed
}

// Overlay returns a Mask backed by a per-observer reveal set indexed like Cells.
func (b *Board) Overlay(set []bool) Mask {
	return maskFunc(func(row, col int) bool {
		if !b.InBounds(row, col) {
			return false
		}
		i := b.Index(row, col)
		return i < len(set) && set[i]
	})
}

// neighbors returns the in-bounds Moore neighbours of (row, col).
func (b *Board) neighbors(row, col int) []Coord {
	out := make([]Coord, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			nr, nc := row+dr, col+dc
			if b.InBounds(nr, nc) {
				out = append(out, Coord{Row: nr, Col: nc})
			}
		}
	}
	return out
}

// SafeCells is the number of cells without a mine.
func (b *Board) SafeCells() int {
	return b.Rows*b.Cols - b.Mines
}

// Apply marks every coordinate as revealed on the shared board.
func (b *Board) Apply(coords []Coord) {
	for _, co := range coords {
		if c := b.At(co.Row, co.Col); c != nil {
			c.State = Revealed
		}
	}
}

// RevealedSafe counts safe cells the mask considers revealed.
func (b *Board) RevealedSafe(m Mask) int {
	n := 0
	for i := range b.Cells {
		c := &b.Cells[i]
		if !c.IsMine && m.IsRevealed(c.Row, c.Col) {
			n++
		}
	}
	return n
}

// Cleared reports whether every safe cell is revealed under the mask.
func (b *Board) Cleared(m Mask) bool {
	return b.RevealedSafe(m) >= b.SafeCells()
}
