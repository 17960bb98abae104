package utils

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Scale returns p multiplied by s on both axes.
func (p Point) Scale(s float64) Point { return Point{X: p.X * s, Y: p.Y * s} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Round converts p to the nearest integer pixel position.
func (p Point) Round() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// ClampPoint limits p to the closed rectangle [0,w] x [0,h].
func ClampPoint(p Point, w, h float64) Point {
	return Point{X: clampFloat(p.X, 0, w), Y: clampFloat(p.Y, 0, h)}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst draw.Image, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// DrawPolygon draws connected line segments and closes the polygon.
func DrawPolygon(dst draw.Image, pts []Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	for i := range pts {
		DrawLine(dst, pts[i].Round(), pts[(i+1)%len(pts)].Round(), col, thickness)
	}
}

// DrawLine draws a line between two points using a simple Bresenham variant.
func DrawLine(dst draw.Image, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst draw.Image, x, y int, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	lo := -(thickness - 1) / 2
	hi := lo + thickness - 1
	b := dst.Bounds()
	for yy := y + lo; yy <= y+hi; yy++ {
		for xx := x + lo; xx <= x+hi; xx++ {
			if image.Pt(xx, yy).In(b) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

// FillCircle paints a solid disc of radius r centred at c.
func FillCircle(dst draw.Image, c Point, r float64, col color.Color) {
	b := dst.Bounds()
	minX := clampInt(int(math.Floor(c.X-r)), b.Min.X, b.Max.X)
	maxX := clampInt(int(math.Ceil(c.X+r)), b.Min.X, b.Max.X)
	minY := clampInt(int(math.Floor(c.Y-r)), b.Min.Y, b.Max.Y)
	maxY := clampInt(int(math.Ceil(c.Y+r)), b.Min.Y, b.Max.Y)
	r2 := r * r
	for y := minY; y < maxY; y++ {
		dy := float64(y) + 0.5 - c.Y
		for x := minX; x < maxX; x++ {
			dx := float64(x) + 0.5 - c.X
			if dx*dx+dy*dy <= r2 {
				dst.Set(x, y, col)
			}
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
