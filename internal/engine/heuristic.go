package engine

// buildThreshold is the run length the build tier aims for.
const buildThreshold = 3

// SelectColumn chooses a column for side using a fixed priority cascade:
// win now, block the opponent's immediate win, build a run of three, take
// the center, otherwise the legal column closest to center (lower index on
// ties). One ply only: every tier tests a hypothetical placement on a copy
// of the board. Deterministic for a given board. Returns -1 when no column
// is legal.
func SelectColumn(b Board, side Disc) int {
	valid := b.ValidColumns()
	if len(valid) == 0 {
		return -1
	}

	// Win now.
	for _, col := range valid {
		if wouldWin(b, col, side) {
			return col
		}
	}

	// Block the opponent's win.
	opp := side.Opponent()
	for _, col := range valid {
		if wouldWin(b, col, opp) {
			return col
		}
	}

	// Build a run of at least three.
	for _, col := range valid {
		if wouldRun(b, col, side, buildThreshold) {
			return col
		}
	}

	// Prefer the center.
	for _, col := range valid {
		if col == CenterCol {
			return col
		}
	}

	// Closest to center, lower index on ties. valid is ascending, so a
	// strict < keeps the lower index.
	best := valid[0]
	for _, col := range valid[1:] {
		if centerDistance(col) < centerDistance(best) {
			best = col
		}
	}
	return best
}

// wouldWin reports whether dropping d into col wins immediately.
func wouldWin(b Board, col int, d Disc) bool {
	row, ok := b.Drop(col, d)
	if !ok {
		return false
	}
	return b.IsWinningPlacement(row, col)
}

// wouldRun reports whether dropping d into col yields a run of at least n
// along any axis.
func wouldRun(b Board, col int, d Disc, n int) bool {
	row, ok := b.Drop(col, d)
	if !ok {
		return false
	}
	for _, axis := range Axes {
		if b.RunLength(row, col, axis, d) >= n {
			return true
		}
	}
	return false
}

func centerDistance(col int) int {
	if col < CenterCol {
		return CenterCol - col
	}
	return col - CenterCol
}
