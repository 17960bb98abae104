// Package quad holds the four-corner selection model: display mapping, hit
// testing, clamping and the pointer-driven drag state machine.
package quad

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// CornerID identifies a corner. The cyclic order TL, TR, BR, BL never changes.
type CornerID int

const (
	TopLeft CornerID = iota
	TopRight
	BottomRight
	BottomLeft
)

// NoCorner marks the absence of a selection.
const NoCorner CornerID = -1

// Corners lists every corner in declaration order.
var Corners = [4]CornerID{TopLeft, TopRight, BottomRight, BottomLeft}

var cornerLabels = [4]string{"TL", "TR", "BR", "BL"}

func (c CornerID) String() string {
	if c < TopLeft || c > BottomLeft {
		return fmt.Sprintf("CornerID(%d)", int(c))
	}
	return cornerLabels[c]
}

// ParseCornerID maps a TL/TR/BR/BL label back to its CornerID.
func ParseCornerID(s string) (CornerID, error) {
	for i, l := range cornerLabels {
		if l == s {
			return CornerID(i), nil
		}
	}
	return NoCorner, fmt.Errorf("unknown corner %q", s)
}

// Quad is a quadrilateral in TL, TR, BR, BL order.
type Quad [4]utils.Point

// Scale multiplies every corner by s.
func (q Quad) Scale(s float64) Quad {
	var out Quad
	for i, p := range q {
		out[i] = p.Scale(s)
	}
	return out
}

// Points returns the corners as a slice, for polygon helpers.
func (q Quad) Points() []utils.Point {
	return q[:]
}

// Rect returns an axis-aligned quad spanning (x0,y0)-(x1,y1).
func Rect(x0, y0, x1, y1 float64) Quad {
	return Quad{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// String renders q in the form ParseQuad accepts.
func (q Quad) String() string {
	parts := make([]string, 0, 8)
	for _, p := range q {
		parts = append(parts,
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

// ParseQuad reads eight numbers "x1,y1,x2,y2,x3,y3,x4,y4" in TL, TR, BR, BL
// order. Commas, semicolons and whitespace all separate values.
func ParseQuad(s string) (Quad, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 8 {
		return Quad{}, fmt.Errorf("corners need 8 values, got %d", len(fields))
	}
	var q Quad
	for i := range 4 {
		x, err := strconv.ParseFloat(fields[2*i], 64)
		if err != nil {
			return Quad{}, fmt.Errorf("corner %s x: %w", CornerID(i), err)
		}
		y, err := strconv.ParseFloat(fields[2*i+1], 64)
		if err != nil {
			return Quad{}, fmt.Errorf("corner %s y: %w", CornerID(i), err)
		}
		q[i] = utils.Point{X: x, Y: y}
	}
	return q, nil
}
