package terrain

// structureTable holds the seven generator matrices of the fixed
// non-commutative multiplication rule over the eight feature channels. Each
// generator is the 8×8 left-multiplication matrix of one imaginary unit of
// the octonion algebra, with the Fano-plane triads
// (1,2,3) (1,4,5) (1,7,6) (2,4,6) (2,5,7) (3,4,7) (3,6,5).
// Every matrix is skew-symmetric and the table is closed: conjugating a
// candidate kernel by each generator and averaging projects it onto the
// invariant subspace. The values are domain constants; do not derive them at
// runtime.
var structureTable = [7][NumBands][NumBands]float64{
	// e1: (1,2,3) (1,4,5) (1,7,6)
	{
		0: {1: -1},
		1: {0: 1},
		2: {3: -1},
		3: {2: 1},
		4: {5: -1},
		5: {4: 1},
		6: {7: 1},
		7: {6: -1},
	},
	// e2: (2,3,1) (2,4,6) (2,5,7)
	{
		0: {2: -1},
		1: {3: 1},
		2: {0: 1},
		3: {1: -1},
		4: {6: -1},
		5: {7: -1},
		6: {4: 1},
		7: {5: 1},
	},
	// e3: (3,1,2) (3,4,7) (3,6,5)
	{
		0: {3: -1},
		1: {2: -1},
		2: {1: 1},
		3: {0: 1},
		4: {7: -1},
		5: {6: 1},
		6: {5: -1},
		7: {4: 1},
	},
	// e4: (4,5,1) (4,6,2) (4,7,3)
	{
		0: {4: -1},
		1: {5: 1},
		2: {6: 1},
		3: {7: 1},
		4: {0: 1},
		5: {1: -1},
		6: {2: -1},
		7: {3: -1},
	},
	// e5: (5,1,4) (5,7,2) (5,3,6)
	{
		0: {5: -1},
		1: {4: -1},
		2: {7: 1},
		3: {6: -1},
		4: {1: 1},
		5: {0: 1},
		6: {3: 1},
		7: {2: -1},
	},
	// e6: (6,1,7) (6,2,4) (6,5,3)
	{
		0: {6: -1},
		1: {7: -1},
		2: {4: -1},
		3: {5: 1},
		4: {2: 1},
		5: {3: -1},
		6: {0: 1},
		7: {1: 1},
	},
	// e7: (7,6,1) (7,2,5) (7,3,4)
	{
		0: {7: -1},
		1: {6: 1},
		2: {5: -1},
		3: {4: 1},
		4: {3: -1},
		5: {2: 1},
		6: {1: -1},
		7: {0: 1},
	},
}

// structureWeight returns the antisymmetric coupling constant for the
// ordered feature pair (i, j), summed over the seven generators. Each
// unordered pair is covered by exactly one generator, so the result is a
// single signed unit (or zero on the diagonal).
func structureWeight(i, j int) float64 {
	var w float64
	for a := 0; a < 7; a++ {
		w += structureTable[a][i][j]
	}
	return w
}
