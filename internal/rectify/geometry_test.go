package rectify

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

func TestComputeOutputGeometry(t *testing.T) {
	tests := []struct {
		name   string
		quad   [4]utils.Point
		maxDim int
		wantW  int
		wantH  int
	}{
		{
			name:   "centered square capped",
			quad:   [4]utils.Point{{X: 100, Y: 100}, {X: 900, Y: 100}, {X: 900, Y: 900}, {X: 100, Y: 900}},
			maxDim: 400,
			wantW:  400, wantH: 400,
		},
		{
			name:   "below cap untouched",
			quad:   [4]utils.Point{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 30}, {X: 0, Y: 30}},
			maxDim: 400,
			wantW:  40, wantH: 30,
		},
		{
			name:   "cap disabled",
			quad:   [4]utils.Point{{X: 0, Y: 0}, {X: 1200, Y: 0}, {X: 1200, Y: 600}, {X: 0, Y: 600}},
			maxDim: 0,
			wantW:  1200, wantH: 600,
		},
		{
			name:   "landscape capped keeps aspect",
			quad:   [4]utils.Point{{X: 0, Y: 0}, {X: 1200, Y: 0}, {X: 1200, Y: 600}, {X: 0, Y: 600}},
			maxDim: 400,
			wantW:  400, wantH: 200,
		},
		{
			name:   "trapezoid averages edges",
			quad:   [4]utils.Point{{X: 10, Y: 0}, {X: 90, Y: 0}, {X: 100, Y: 50}, {X: 0, Y: 50}},
			maxDim: 400,
			wantW:  90, wantH: 51,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ComputeOutputGeometry(tt.quad, tt.maxDim)
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, g.Width)
			assert.Equal(t, tt.wantH, g.Height)
		})
	}
}

func TestComputeOutputGeometryScaled(t *testing.T) {
	g, err := ComputeOutputGeometry([4]utils.Point{{X: 100, Y: 100}, {X: 900, Y: 100}, {X: 900, Y: 900}, {X: 100, Y: 900}}, 400)
	require.NoError(t, err)
	assert.True(t, g.Scaled())
	assert.InDelta(t, 800, g.RawWidth, 1e-9)

	g, err = ComputeOutputGeometry([4]utils.Point{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 30}, {X: 0, Y: 30}}, 400)
	require.NoError(t, err)
	assert.False(t, g.Scaled())
}

func TestComputeOutputGeometryKeepsMinimumOfOne(t *testing.T) {
	quad := [4]utils.Point{{X: 0, Y: 0}, {X: 4000, Y: 0}, {X: 4000, Y: 2}, {X: 0, Y: 2}}
	g, err := ComputeOutputGeometry(quad, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, g.Width)
	assert.Equal(t, 1, g.Height)
}

func TestComputeOutputGeometryDegenerate(t *testing.T) {
	same := utils.Point{X: 10, Y: 10}
	_, err := ComputeOutputGeometry([4]utils.Point{same, same, same, same}, 400)
	assert.True(t, errors.Is(err, ErrDegenerateGeometry))

	flat := [4]utils.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 0.2}, {X: 0, Y: 0.2}}
	_, err = ComputeOutputGeometry(flat, 400)
	assert.True(t, errors.Is(err, ErrDegenerateGeometry))

	nan := [4]utils.Point{{X: math.NaN(), Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	_, err = ComputeOutputGeometry(nan, 400)
	assert.True(t, errors.Is(err, ErrDegenerateGeometry))
}

func TestOutputGeometrySizingProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	coord := gen.Float64Range(0, 5000)
	quadGen := gopter.CombineGens(coord, coord, coord, coord, coord, coord, coord, coord).
		Map(func(vals []interface{}) [4]utils.Point {
			var q [4]utils.Point
			for i := range 4 {
				q[i] = utils.Point{X: vals[2*i].(float64), Y: vals[2*i+1].(float64)}
			}
			return q
		})

	properties.Property("longest side never exceeds the cap", prop.ForAll(
		func(q [4]utils.Point, maxDim int) bool {
			g, err := ComputeOutputGeometry(q, maxDim)
			if err != nil {
				return errors.Is(err, ErrDegenerateGeometry)
			}
			return max(g.Width, g.Height) <= maxDim && g.Width >= 1 && g.Height >= 1
		},
		quadGen,
		gen.IntRange(16, 2048),
	))

	properties.Property("capping preserves the aspect ratio within rounding", prop.ForAll(
		func(q [4]utils.Point, maxDim int) bool {
			g, err := ComputeOutputGeometry(q, maxDim)
			if err != nil {
				return true
			}
			preW := math.Round(g.RawWidth)
			preH := math.Round(g.RawHeight)
			if !g.Scaled() {
				return float64(g.Width) == preW && float64(g.Height) == preH
			}
			// Rounding moves each side by at most half a pixel.
			s := float64(maxDim) / math.Max(preW, preH)
			return withinHalf(g.Width, preW*s) && withinHalf(g.Height, preH*s)
		},
		quadGen,
		gen.IntRange(16, 2048),
	))

	properties.TestingRun(t)
}

// withinHalf allows the rounding slack, plus the floor of one pixel.
func withinHalf(got int, want float64) bool {
	return math.Abs(float64(got)-want) <= 0.5+1e-9 || (got == 1 && want < 1)
}
