package rectify

import (
	"errors"
	"fmt"
)

// ErrSingularMatrix is returned when a pivot falls below pivotEpsilon during elimination.
var ErrSingularMatrix = errors.New("singular matrix")

// pivotEpsilon is the smallest pivot magnitude accepted by the solvers.
const pivotEpsilon = 1e-10

// SolveLinearSystem solves a*x = b for a square matrix a using Gaussian
// elimination with partial pivoting followed by back-substitution.
// The inputs are not modified.
func SolveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	if n == 0 {
		return nil, errors.New("empty system")
	}
	if len(b) != n {
		return nil, fmt.Errorf("dimension mismatch: %d rows, %d constants", n, len(b))
	}

	m := make([][]float64, n)
	for i, row := range a {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), n)
		}
		m[i] = append([]float64(nil), row...)
	}
	v := append([]float64(nil), b...)

	for col := range n {
		pivot := col
		maxAbs := abs(m[col][col])
		for r := col + 1; r < n; r++ {
			if mag := abs(m[r][col]); mag > maxAbs {
				maxAbs = mag
				pivot = r
			}
		}
		if maxAbs < pivotEpsilon {
			return nil, fmt.Errorf("column %d: %w", col, ErrSingularMatrix)
		}
		if pivot != col {
			m[col], m[pivot] = m[pivot], m[col]
			v[col], v[pivot] = v[pivot], v[col]
		}
		for r := col + 1; r < n; r++ {
			factor := m[r][col] / m[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				m[r][c] -= factor * m[col][c]
			}
			v[r] -= factor * v[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := v[i]
		for c := i + 1; c < n; c++ {
			sum -= m[i][c] * x[c]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}

// solve8x8 is the fixed-size variant used by the homography estimator.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, error) {
	matrix := a
	vector := b

	// Forward elimination with partial pivoting
	for col := range 8 {
		pivotRow := findPivotRow(&matrix, col)
		if pivotRow == -1 {
			return [8]float64{}, fmt.Errorf("column %d: %w", col, ErrSingularMatrix)
		}
		if pivotRow != col {
			swapRows(&matrix, &vector, col, pivotRow)
		}
		eliminateBelow(&matrix, &vector, col)
	}

	// Back substitution
	var x [8]float64
	for i := 7; i >= 0; i-- {
		sum := vector[i]
		for c := i + 1; c < 8; c++ {
			sum -= matrix[i][c] * x[c]
		}
		x[i] = sum / matrix[i][i]
	}
	return x, nil
}

// findPivotRow returns the row at or below col with the largest magnitude in
// column col, or -1 when that magnitude is below pivotEpsilon.
func findPivotRow(matrix *[8][8]float64, col int) int {
	maxAbs := abs(matrix[col][col])
	pivotRow := col
	for r := col + 1; r < 8; r++ {
		if v := abs(matrix[r][col]); v > maxAbs {
			maxAbs = v
			pivotRow = r
		}
	}
	if maxAbs < pivotEpsilon {
		return -1
	}
	return pivotRow
}

func swapRows(matrix *[8][8]float64, vector *[8]float64, row1, row2 int) {
	matrix[row1], matrix[row2] = matrix[row2], matrix[row1]
	vector[row1], vector[row2] = vector[row2], vector[row1]
}

func eliminateBelow(matrix *[8][8]float64, vector *[8]float64, col int) {
	for r := col + 1; r < 8; r++ {
		factor := matrix[r][col] / matrix[col][col]
		if factor == 0 {
			continue
		}
		for c := col; c < 8; c++ {
			matrix[r][c] -= factor * matrix[col][c]
		}
		vector[r] -= factor * vector[col]
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
