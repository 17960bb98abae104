package utils

import "math"

// PolygonArea returns the signed shoelace area of a closed polygon.
// Positive values mean the vertices run clockwise in image coordinates (y down).
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// PointInPolygon reports whether p lies inside the closed polygon using the
// even-odd rule. Points exactly on an edge may land on either side.
func PointInPolygon(p Point, pts []Point) bool {
	inside := false
	n := len(pts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// IsConvex reports whether the closed polygon turns consistently in one direction.
// Polygons with fewer than three vertices or a zero-length turn are not convex.
func IsConvex(pts []Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	sign := 0
	for i := range n {
		c := cross(pts[i], pts[(i+1)%n], pts[(i+2)%n])
		if math.Abs(c) < 1e-12 {
			return false
		}
		s := 1
		if c < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// cross returns the z component of (a-o) x (b-o).
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Collinear reports whether a, b and c lie on one line. tol bounds the sine of
// the angle at a; coincident points always count as collinear.
func Collinear(a, b, c Point, tol float64) bool {
	return math.Abs(cross(a, b, c)) <= tol*Distance(a, b)*Distance(a, c)
}
