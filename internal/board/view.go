// internal/board/view.go
package board

// CellView is the client-facing shape of a cell. Hidden cells always carry
// IsMine=false and NeighborMines=0 unless the board is disclosed.
type CellView struct {
	Row           int       `json:"row"`
	Col           int       `json:"col"`
	IsMine        bool      `json:"isMine"`
	NeighborMines int       `json:"neighborMines"`
	State         CellState `json:"state"`
}

// View renders the board for an observer whose reveal state is m. When disclose is
// true (the game is over) every cell shows its true content; State still reflects m.
func View(b *Board, m Mask, disclose bool) [][]CellView {
	rows := make([][]CellView, b.Rows)
	for r := 0; r < b.Rows; r++ {
		row := make([]CellView, b.Cols)
		for c := 0; c < b.Cols; c++ {
			cell := b.Cells[b.Index(r, c)]
			v := CellView{Row: r, Col: c, State: Hidden}
			if m != nil && m.IsRevealed(r, c) {
				v.State = Revealed
			}
			if v.State == Revealed || disclose {
				v.IsMine = cell.IsMine
				v.NeighborMines = cell.NeighborMines
			}
			row[c] = v
		}
		rows[r] = row
	}
	return rows
}

// Nothing is a Mask under which no cell is revealed.
var Nothing Mask = maskFunc(func(int, int) bool { return false })
