package engine

// Board dimensions are fixed: classic four-in-a-row.
const (
	Rows = 6
	Cols = 7

	// CenterCol is the middle column, preferred by the heuristic.
	CenterCol = Cols / 2

	winLength = 4
)

// Disc is the state of a single cell.
type Disc uint8

const (
	DiscNone Disc = iota
	DiscOne
	DiscTwo
)

// Opponent returns the other side's disc. DiscNone has no opponent.
func (d Disc) Opponent() Disc {
	switch d {
	case DiscOne:
		return DiscTwo
	case DiscTwo:
		return DiscOne
	default:
		return DiscNone
	}
}

func (d Disc) String() string {
	switch d {
	case DiscOne:
		return "ONE"
	case DiscTwo:
		return "TWO"
	default:
		return "NONE"
	}
}

// Axis is one of the four win directions expressed as a row/column step.
type Axis struct {
	DeltaRow int
	DeltaCol int
}

// Axes covers horizontal, vertical and both diagonals. Runs are counted in
// both directions along an axis, so four entries suffice.
var Axes = [4]Axis{
	{DeltaRow: 0, DeltaCol: 1},
	{DeltaRow: 1, DeltaCol: 0},
	{DeltaRow: 1, DeltaCol: 1},
	{DeltaRow: 1, DeltaCol: -1},
}

// Board is the playing grid. Row 0 is the top; pieces fall toward Rows-1.
// It is a value type: copies are cheap and the heuristic relies on that.
type Board [Rows][Cols]Disc

// ValidColumns returns the columns that still accept a piece, ascending.
func (b Board) ValidColumns() []int {
	cols := make([]int, 0, Cols)
	for c := 0; c < Cols; c++ {
		if b[0][c] == DiscNone {
			cols = append(cols, c)
		}
	}
	return cols
}

// DropRow returns the lowest empty row in col. ok is false when the column
// is out of range or full.
func (b Board) DropRow(col int) (int, bool) {
	if col < 0 || col >= Cols {
		return 0, false
	}
	for r := Rows - 1; r >= 0; r-- {
		if b[r][col] == DiscNone {
			return r, true
		}
	}
	return 0, false
}

// Drop places d in the lowest empty cell of col and returns the row it
// landed in. ok is false and the board is untouched when the column is out
// of range or full.
func (b *Board) Drop(col int, d Disc) (int, bool) {
	row, ok := b.DropRow(col)
	if !ok {
		return 0, false
	}
	b[row][col] = d
	return row, true
}

// IsFull reports whether the board has no empty cells. Checking the top row
// is sufficient: pieces always fall to the lowest empty row.
func (b Board) IsFull() bool {
	for c := 0; c < Cols; c++ {
		if b[0][c] == DiscNone {
			return false
		}
	}
	return true
}

// RunLength counts contiguous cells equal to d through (row, col) along
// axis, in both directions. The cell at (row, col) itself is counted only
// if it holds d.
func (b Board) RunLength(row, col int, axis Axis, d Disc) int {
	if d == DiscNone || b[row][col] != d {
		return 0
	}
	count := 1
	for r, c := row+axis.DeltaRow, col+axis.DeltaCol; b.inBounds(r, c) && b[r][c] == d; r, c = r+axis.DeltaRow, c+axis.DeltaCol {
		count++
	}
	for r, c := row-axis.DeltaRow, col-axis.DeltaCol; b.inBounds(r, c) && b[r][c] == d; r, c = r-axis.DeltaRow, c-axis.DeltaCol {
		count++
	}
	return count
}

// IsWinningPlacement reports whether the piece at (row, col) completes a run
// of four or more along any axis.
func (b Board) IsWinningPlacement(row, col int) bool {
	d := b[row][col]
	if d == DiscNone {
		return false
	}
	for _, axis := range Axes {
		if b.RunLength(row, col, axis, d) >= winLength {
			return true
		}
	}
	return false
}

func (b Board) inBounds(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}
