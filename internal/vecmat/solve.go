package vecmat

import (
	"errors"
	"math"
)

// ErrSingular mirrors the teacher's mat.ErrSingular: the system matrix is
// singular (or too close to it) to solve reliably.
var ErrSingular = errors.New("vecmat: matrix is singular")

// SolveSmall solves A*x = b for small, dense square systems using Gaussian
// elimination with partial pivoting. A is consumed (copied internally), not
// mutated. Used by the point-to-line estimator's 3x3 normal-equations solve.
func SolveSmall(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	if n == 0 || len(b) != n {
		return nil, ErrSingular
	}

	// Augmented copy.
	m := make([][]float64, n)
	for i := range a {
		row := make([]float64, n+1)
		copy(row, a[i])
		row[n] = b[i]
		m[i] = row
	}

	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(m[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(m[r][col]); v > best {
				best = v
				pivot = r
			}
		}
		if best < 1e-12 {
			return nil, ErrSingular
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}
