// internal/board/reveal.go
package board

// Cascade computes the cells that become revealed when (row, col) is opened by an
// observer whose existing reveal state is m. It does not modify the board.
//
// A mine or a numbered cell reveals only itself. A zero cell floods outward through
// hidden safe neighbours; numbered cells on the frontier are revealed but not
// expanded and mines are never reached by expansion. Returns nil if the target is
// out of bounds or already revealed.
func Cascade(b *Board, m Mask, row, col int) []Coord {
	start := b.At(row, col)
	if start == nil || m.IsRevealed(row, col) {
		return nil
	}
	out := []Coord{{Row: row, Col: col}}
	if start.IsMine || start.NeighborMines > 0 {
		return out
	}

	visited := make([]bool, len(b.Cells))
	visited[b.Index(row, col)] = true
	stack := []Coord{{Row: row, Col: col}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, nb := range b.neighbors(cur.Row, cur.Col) {
			i := b.Index(nb.Row, nb.Col)
			if visited[i] {
				continue
			}
			visited[i] = true
			cell := &b.Cells[i]
			if cell.IsMine || m.IsRevealed(nb.Row, nb.Col) {
				continue
			}
			out = append(out, nb)
			if cell.NeighborMines == 0 {
				stack = append(stack, nb)
			}
		}
	}
	return out
}

// Score is the points earned for revealing coords: each safe cell is worth its
// neighbour count, or 1 when that count is zero. Mines are worth nothing here.
func Score(b *Board, coords []Coord) int {
	total := 0
	for _, co := range coords {
		c := b.At(co.Row, co.Col)
		if c == nil || c.IsMine {
			continue
		}
		if c.NeighborMines == 0 {
			total++
		} else {
			total += c.NeighborMines
		}
	}
	return total
}

// ContainsMine reports whether any of coords is a mine.
func ContainsMine(b *Board, coords []Coord) bool {
	for _, co := range coords {
		if c := b.At(co.Row, co.Col); c != nil && c.IsMine {
			return true
		}
	}
	return false
}
