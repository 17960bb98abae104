package rectify

import (
	"math"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// DefaultMaxDimension caps the longer output side when no other value is configured.
const DefaultMaxDimension = 400

// OutputGeometry holds the rectified output size. RawWidth and RawHeight are
// the averaged edge lengths before rounding and capping.
type OutputGeometry struct {
	Width     int
	Height    int
	RawWidth  float64
	RawHeight float64
}

// Scaled reports whether the max-dimension cap changed the rounded size.
func (g OutputGeometry) Scaled() bool {
	return g.Width != int(math.Round(g.RawWidth)) || g.Height != int(math.Round(g.RawHeight))
}

// ComputeOutputGeometry derives the output size from a TL, TR, BR, BL quad in
// image pixel space. Width averages the top and bottom edges, height the left
// and right edges. When maxDim > 0 and the longer side exceeds it, both sides
// are scaled uniformly so the longer one equals maxDim.
func ComputeOutputGeometry(quad [4]utils.Point, maxDim int) (OutputGeometry, error) {
	top := utils.Distance(quad[0], quad[1])
	bottom := utils.Distance(quad[3], quad[2])
	left := utils.Distance(quad[0], quad[3])
	right := utils.Distance(quad[1], quad[2])

	g := OutputGeometry{
		RawWidth:  (top + bottom) * 0.5,
		RawHeight: (left + right) * 0.5,
	}
	if !isFinite(g.RawWidth) || !isFinite(g.RawHeight) {
		return g, &DegenerateGeometryError{Reason: "non-finite corner coordinates", Quad: quad}
	}
	g.Width = int(math.Round(g.RawWidth))
	g.Height = int(math.Round(g.RawHeight))
	if g.Width <= 0 || g.Height <= 0 {
		return g, &DegenerateGeometryError{Reason: "zero output size", Quad: quad}
	}

	longest := max(g.Width, g.Height)
	if maxDim > 0 && longest > maxDim {
		s := float64(maxDim) / float64(longest)
		g.Width = max(1, int(math.Round(float64(g.Width)*s)))
		g.Height = max(1, int(math.Round(float64(g.Height)*s)))
	}
	return g, nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
