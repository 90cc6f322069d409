package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDrop(t *testing.T, b *Board, col int, d Disc) int {
	t.Helper()
	row, ok := b.Drop(col, d)
	require.True(t, ok, "drop into column %d should succeed", col)
	return row
}

// fillDrawBoard fills the board completely with a pattern that contains no
// run of four: even columns hold ONE,ONE,TWO,TWO,ONE,ONE bottom-up, odd
// columns the inverse.
func fillDrawBoard() Board {
	var b Board
	for c := 0; c < Cols; c++ {
		for i := 0; i < Rows; i++ {
			d := DiscOne
			if (i == 2 || i == 3) != (c%2 == 1) {
				d = DiscTwo
			}
			b[Rows-1-i][c] = d
		}
	}
	return b
}

func TestDrop_LandsOnLowestEmptyRow(t *testing.T) {
	assert := assert.New(t)
	var b Board

	row := mustDrop(t, &b, 3, DiscOne)
	assert.Equal(Rows-1, row)

	row = mustDrop(t, &b, 3, DiscTwo)
	assert.Equal(Rows-2, row)

	assert.Equal(DiscOne, b[Rows-1][3])
	assert.Equal(DiscTwo, b[Rows-2][3])
}

func TestDrop_ColumnFullAfterRowsMoves(t *testing.T) {
	assert := assert.New(t)
	var b Board

	for i := 0; i < Rows; i++ {
		_, ok := b.Drop(0, DiscOne)
		assert.True(ok, "drop %d should fit", i)
	}

	_, ok := b.Drop(0, DiscOne)
	assert.False(ok, "a seventh drop into a full column must fail")

	_, ok = b.DropRow(0)
	assert.False(ok)
}

func TestDrop_OutOfRangeColumn(t *testing.T) {
	assert := assert.New(t)
	var b Board

	_, ok := b.Drop(-1, DiscOne)
	assert.False(ok)
	_, ok = b.Drop(Cols, DiscOne)
	assert.False(ok)
}

func TestValidColumns_ExcludesFullColumns(t *testing.T) {
	assert := assert.New(t)
	var b Board

	assert.Equal([]int{0, 1, 2, 3, 4, 5, 6}, b.ValidColumns())

	for i := 0; i < Rows; i++ {
		mustDrop(t, &b, 2, DiscOne)
	}

	assert.Equal([]int{0, 1, 3, 4, 5, 6}, b.ValidColumns())
}

func TestIsWinningPlacement_Horizontal(t *testing.T) {
	assert := assert.New(t)
	var b Board

	mustDrop(t, &b, 0, DiscOne)
	mustDrop(t, &b, 1, DiscOne)
	mustDrop(t, &b, 2, DiscOne)
	row := mustDrop(t, &b, 3, DiscOne)

	assert.Equal(Rows-1, row)
	assert.True(b.IsWinningPlacement(row, 3))
}

func TestIsWinningPlacement_GapDoesNotWin(t *testing.T) {
	assert := assert.New(t)
	var b Board

	mustDrop(t, &b, 0, DiscOne)
	mustDrop(t, &b, 1, DiscOne)
	// Column 2 left empty.
	row := mustDrop(t, &b, 3, DiscOne)

	assert.False(b.IsWinningPlacement(row, 3))
}

func TestIsWinningPlacement_Vertical(t *testing.T) {
	assert := assert.New(t)
	var b Board

	var row int
	for i := 0; i < 4; i++ {
		row = mustDrop(t, &b, 5, DiscTwo)
	}

	assert.True(b.IsWinningPlacement(row, 5))
}

func TestIsWinningPlacement_DiagonalUpRight(t *testing.T) {
	assert := assert.New(t)
	var b Board

	// Stairs: TWO discs climbing from (5,0) to (2,3) on top of filler.
	mustDrop(t, &b, 0, DiscTwo)
	mustDrop(t, &b, 1, DiscOne)
	mustDrop(t, &b, 1, DiscTwo)
	mustDrop(t, &b, 2, DiscOne)
	mustDrop(t, &b, 2, DiscOne)
	mustDrop(t, &b, 2, DiscTwo)
	mustDrop(t, &b, 3, DiscOne)
	mustDrop(t, &b, 3, DiscOne)
	mustDrop(t, &b, 3, DiscOne)
	row := mustDrop(t, &b, 3, DiscTwo)

	assert.Equal(2, row)
	assert.True(b.IsWinningPlacement(row, 3))
}

func TestIsWinningPlacement_DiagonalDownRight(t *testing.T) {
	assert := assert.New(t)
	var b Board

	// Stairs descending: ONE discs from (2,0) to (5,3).
	mustDrop(t, &b, 0, DiscTwo)
	mustDrop(t, &b, 0, DiscTwo)
	mustDrop(t, &b, 0, DiscTwo)
	mustDrop(t, &b, 0, DiscOne)
	mustDrop(t, &b, 1, DiscTwo)
	mustDrop(t, &b, 1, DiscTwo)
	mustDrop(t, &b, 1, DiscOne)
	mustDrop(t, &b, 2, DiscTwo)
	mustDrop(t, &b, 2, DiscOne)
	row := mustDrop(t, &b, 3, DiscOne)

	assert.Equal(Rows-1, row)
	assert.True(b.IsWinningPlacement(row, 3))
}

func TestIsWinningPlacement_RunOfFiveStillWins(t *testing.T) {
	assert := assert.New(t)
	var b Board

	mustDrop(t, &b, 0, DiscOne)
	mustDrop(t, &b, 1, DiscOne)
	// Place at 2 last so the run is completed in the middle.
	mustDrop(t, &b, 3, DiscOne)
	mustDrop(t, &b, 4, DiscOne)
	row := mustDrop(t, &b, 2, DiscOne)

	assert.True(b.IsWinningPlacement(row, 2))
}

func TestIsFull_TopRowOnly(t *testing.T) {
	assert := assert.New(t)
	var b Board

	assert.False(b.IsFull())

	b = fillDrawBoard()
	assert.True(b.IsFull())
}

func TestFullBoardWithoutRunOfFour_IsNeverAWin(t *testing.T) {
	assert := assert.New(t)
	b := fillDrawBoard()

	assert.True(b.IsFull())
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			assert.False(b.IsWinningPlacement(r, c), "cell (%d,%d) must not win", r, c)
		}
	}
}

func TestRunLength_CountsBothDirections(t *testing.T) {
	assert := assert.New(t)
	var b Board

	mustDrop(t, &b, 1, DiscOne)
	mustDrop(t, &b, 2, DiscOne)
	mustDrop(t, &b, 3, DiscOne)

	horizontal := Axis{DeltaRow: 0, DeltaCol: 1}
	assert.Equal(3, b.RunLength(Rows-1, 2, horizontal, DiscOne))
	assert.Equal(3, b.RunLength(Rows-1, 1, horizontal, DiscOne))
	assert.Equal(0, b.RunLength(Rows-1, 2, horizontal, DiscTwo))
	assert.Equal(0, b.RunLength(0, 0, horizontal, DiscNone))
}

func TestOpponent(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(DiscTwo, DiscOne.Opponent())
	assert.Equal(DiscOne, DiscTwo.Opponent())
	assert.Equal(DiscNone, DiscNone.Opponent())
}
