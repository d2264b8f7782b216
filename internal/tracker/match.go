package tracker

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hafizalfariz/yoi-engine-go/internal/scipy"
)

// GreedyMatch repeatedly finds the matrix's global minimum and commits it as
// a match, then invalidates that row and column, guaranteeing a one-to-one
// correspondence. Generalizes the teacher's MatchDetectionsAndObjects to
// either matching stage of the associator (it no longer assumes rows are
// "candidates" and columns are "objects" specifically; callers decide).
func GreedyMatch(cost *mat.Dense, threshold float64) (rows, cols []int) {
	r, c := cost.Dims()
	if r == 0 || c == 0 {
		return nil, nil
	}

	work := mat.DenseCopyOf(cost)
	invalid := threshold + 1.0

	for {
		minVal, minR, minC := matrixMin(work)
		if minVal >= threshold {
			break
		}
		rows = append(rows, minR)
		cols = append(cols, minC)

		for j := 0; j < c; j++ {
			work.Set(minR, j, invalid)
		}
		for i := 0; i < r; i++ {
			work.Set(i, minC, invalid)
		}
	}
	return rows, cols
}

func matrixMin(m *mat.Dense) (val float64, row, col int) {
	r, c := m.Dims()
	val = math.Inf(1)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if v < val {
				val, row, col = v, i, j
			}
		}
	}
	return
}

// OptimalMatch solves the assignment exactly via the Hungarian algorithm
// (reusing the teacher's scipy-style wrapper unmodified) instead of the
// greedy heuristic, for callers that set Config.UseOptimal.
func OptimalMatch(cost *mat.Dense, threshold float64) (rows, cols []int) {
	r, c := cost.Dims()
	if r == 0 || c == 0 {
		return nil, nil
	}
	dense := make([][]float64, r)
	for i := 0; i < r; i++ {
		dense[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			dense[i][j] = cost.At(i, j)
		}
	}
	assignments, _, _ := scipy.LinearSumAssignment(dense, threshold)
	for _, a := range assignments {
		rows = append(rows, a.RowIdx)
		cols = append(cols, a.ColIdx)
	}
	return rows, cols
}
