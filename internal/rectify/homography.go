package rectify

import (
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

const (
	// wEpsilon is the smallest homogeneous w accepted by Apply.
	wEpsilon = 1e-12
	// collinearTolerance is the largest corner angle sine treated as a straight line.
	collinearTolerance = 1e-9
)

// Homography is a row-major 3x3 projective transform with h[8] fixed to 1.
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// ComputeHomography estimates the transform that maps src[i] onto dst[i].
// A singular system yields a *DegenerateGeometryError wrapping ErrSingularMatrix.
func ComputeHomography(src, dst [4]utils.Point) (Homography, error) {
	if err := checkCorners(src); err != nil {
		return Homography{}, err
	}
	if err := checkCorners(dst); err != nil {
		return Homography{}, err
	}

	// Build 8x8 system A*h = b for the 8 unknowns (h0..h7), h8=1.
	A := [8][8]float64{}
	b := [8]float64{}
	for i := range 4 {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		r := 2 * i
		// u = (h0 x + h1 y + h2)/(h6 x + h7 y + 1)
		A[r] = [8]float64{x, y, 1, 0, 0, 0, -u * x, -u * y}
		b[r] = u
		// v = (h3 x + h4 y + h5)/(h6 x + h7 y + 1)
		A[r+1] = [8]float64{0, 0, 0, x, y, 1, -v * x, -v * y}
		b[r+1] = v
	}

	h, err := solve8x8(A, b)
	if err != nil {
		return Homography{}, &DegenerateGeometryError{Reason: "singular homography system", Quad: src, Err: err}
	}
	return Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

// RectCorners returns the corners of a w x h rectangle in TL, TR, BR, BL order.
func RectCorners(w, h float64) [4]utils.Point {
	return [4]utils.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

// OutputToSource builds the destination-to-source transform for a crop: it maps
// output pixel coordinates of g back into the image pixel space of quad.
func OutputToSource(quad [4]utils.Point, g OutputGeometry) (Homography, error) {
	return ComputeHomography(RectCorners(float64(g.Width), float64(g.Height)), quad)
}

// Apply maps (x, y) through h with homogeneous division. ok is false when the
// w component is too close to zero for the result to be meaningful.
func (h Homography) Apply(x, y float64) (sx, sy float64, ok bool) {
	w := h[6]*x + h[7]*y + h[8]
	if abs(w) < wEpsilon {
		return 0, 0, false
	}
	sx = (h[0]*x + h[1]*y + h[2]) / w
	sy = (h[3]*x + h[4]*y + h[5]) / w
	return sx, sy, true
}

// checkCorners rejects point sets where any three corners are collinear.
// Such sets have no invertible projective mapping onto a rectangle.
func checkCorners(q [4]utils.Point) error {
	for skip := range 4 {
		var tri [3]utils.Point
		n := 0
		for i := range 4 {
			if i != skip {
				tri[n] = q[i]
				n++
			}
		}
		if utils.Collinear(tri[0], tri[1], tri[2], collinearTolerance) {
			return &DegenerateGeometryError{Reason: "three corners are collinear", Quad: q}
		}
	}
	return nil
}
