package rectify

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// ErrDegenerateGeometry matches any *DegenerateGeometryError via errors.Is.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// DegenerateGeometryError reports a quadrilateral that cannot be rectified,
// either because it has no area or because its corners are collinear.
type DegenerateGeometryError struct {
	Reason string
	Quad   [4]utils.Point
	Err    error
}

func (e *DegenerateGeometryError) Error() string {
	msg := fmt.Sprintf("degenerate geometry: %s (quad %v)", e.Reason, e.Quad)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DegenerateGeometryError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDegenerateGeometry.
func (e *DegenerateGeometryError) Is(target error) bool {
	return target == ErrDegenerateGeometry
}
