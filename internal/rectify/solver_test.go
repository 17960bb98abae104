package rectify

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSolveLinearSystemSmall(t *testing.T) {
	a := [][]float64{
		{2, 1, -1},
		{-3, -1, 2},
		{-2, 1, 2},
	}
	b := []float64{8, -11, -3}

	x, err := SolveLinearSystem(a, b)
	if err != nil {
		t.Fatalf("SolveLinearSystem failed: %v", err)
	}
	want := []float64{2, 3, -1}
	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-12 {
			t.Errorf("x[%d] = %f, want %f", i, x[i], want[i])
		}
	}
	// inputs stay untouched
	if a[0][0] != 2 || b[0] != 8 {
		t.Error("SolveLinearSystem modified its inputs")
	}
}

func TestSolveLinearSystemNeedsPivoting(t *testing.T) {
	// A zero leading entry fails without row swaps.
	a := [][]float64{
		{0, 1},
		{1, 0},
	}
	x, err := SolveLinearSystem(a, []float64{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x[0] != 4 || x[1] != 3 {
		t.Errorf("got %v, want [4 3]", x)
	}
}

func TestSolveLinearSystemSingular(t *testing.T) {
	a := [][]float64{
		{1, 2},
		{2, 4},
	}
	_, err := SolveLinearSystem(a, []float64{1, 2})
	if !errors.Is(err, ErrSingularMatrix) {
		t.Errorf("expected ErrSingularMatrix, got %v", err)
	}

	// Nearly singular pivots are rejected too.
	a = [][]float64{
		{1, 1},
		{1, 1 + 1e-12},
	}
	_, err = SolveLinearSystem(a, []float64{1, 1})
	if !errors.Is(err, ErrSingularMatrix) {
		t.Errorf("expected ErrSingularMatrix for near-singular system, got %v", err)
	}
}

func TestSolveLinearSystemShapeErrors(t *testing.T) {
	if _, err := SolveLinearSystem(nil, nil); err == nil {
		t.Error("expected error for empty system")
	}
	if _, err := SolveLinearSystem([][]float64{{1, 2}, {3, 4}}, []float64{1}); err == nil {
		t.Error("expected error for short constant vector")
	}
	if _, err := SolveLinearSystem([][]float64{{1, 2}, {3}}, []float64{1, 2}); err == nil {
		t.Error("expected error for ragged matrix")
	}
}

// TestSolveLinearSystemMatchesGonum checks random diagonally dominant systems
// against gonum's LU solver.
func TestSolveLinearSystemMatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := range 50 {
		n := 2 + trial%9
		a := make([][]float64, n)
		flat := make([]float64, 0, n*n)
		b := make([]float64, n)
		for i := range n {
			a[i] = make([]float64, n)
			for j := range n {
				a[i][j] = rng.Float64()*2 - 1
			}
			a[i][i] += float64(n)
			flat = append(flat, a[i]...)
			b[i] = rng.Float64()*200 - 100
		}

		got, err := SolveLinearSystem(a, b)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		var want mat.VecDense
		if err := want.SolveVec(mat.NewDense(n, n, flat), mat.NewVecDense(n, b)); err != nil {
			t.Fatalf("trial %d: gonum: %v", trial, err)
		}
		for i := range n {
			if math.Abs(got[i]-want.AtVec(i)) > 1e-9 {
				t.Errorf("trial %d: x[%d] = %g, gonum %g", trial, i, got[i], want.AtVec(i))
			}
		}
	}
}

func TestSolve8x8(t *testing.T) {
	a := [8][8]float64{}
	b := [8]float64{}
	for i := range 8 {
		a[i][(i+3)%8] = float64(i + 1)
		b[i] = float64(i+1) * float64(i)
	}

	x, err := solve8x8(a, b)
	if err != nil {
		t.Fatalf("solve8x8 failed: %v", err)
	}
	for i := range 8 {
		if math.Abs(x[(i+3)%8]-float64(i)) > 1e-12 {
			t.Errorf("x[%d] = %f, want %d", (i+3)%8, x[(i+3)%8], i)
		}
	}
}

func TestSolve8x8Singular(t *testing.T) {
	a := [8][8]float64{}
	b := [8]float64{}
	for i := range 7 {
		a[i][i] = 1
	}
	_, err := solve8x8(a, b)
	if !errors.Is(err, ErrSingularMatrix) {
		t.Errorf("expected ErrSingularMatrix, got %v", err)
	}
}
