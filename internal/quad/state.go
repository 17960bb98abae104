package quad

import (
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// DefaultHitRadius is the pick distance around a corner in display units.
const DefaultHitRadius = 30.0

// QuadState is the mutable selection of one session: the corners in display
// space, the display bounds they are clamped to and the dragged corner.
type QuadState struct {
	Corners  Quad
	Width    float64
	Height   float64
	Selected CornerID
}

// NewQuadState returns an idle state for the given corners and display bounds.
func NewQuadState(corners Quad, width, height float64) *QuadState {
	return &QuadState{Corners: corners, Width: width, Height: height, Selected: NoCorner}
}

// Dragging reports whether a corner is currently selected.
func (s *QuadState) Dragging() bool { return s.Selected != NoCorner }

// Move clamps p to the display bounds and stores it as corner c.
func (s *QuadState) Move(c CornerID, p utils.Point) utils.Point {
	p = Clamp(p, s.Width, s.Height)
	s.Corners[c] = p
	return p
}

// HitTest returns the first corner, in declaration order, strictly closer
// than radius to p. Overlapping corners resolve to the earlier one.
func HitTest(q Quad, p utils.Point, radius float64) (CornerID, bool) {
	for _, c := range Corners {
		if utils.Distance(q[c], p) < radius {
			return c, true
		}
	}
	return NoCorner, false
}

// Clamp limits p to [0,width] x [0,height].
func Clamp(p utils.Point, width, height float64) utils.Point {
	return utils.ClampPoint(p, width, height)
}
