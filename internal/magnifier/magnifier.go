// Package magnifier renders the circular zoomed preview shown while a corner
// is dragged. It samples the original image so on-screen markers never appear
// inside the preview.
package magnifier

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// ErrDisposed is returned by Update after Dispose.
var ErrDisposed = errors.New("magnifier disposed")

var crosshairColor = color.NRGBA{R: 0xff, G: 0x47, B: 0x57, A: 0xff}

// Config controls the preview geometry.
type Config struct {
	Diameter int     // preview size in display units
	Zoom     float64 // magnification factor
	Offset   float64 // gap between the pointer and the preview
}

// DefaultConfig returns a 120 unit preview at 3x zoom, 20 units from the pointer.
func DefaultConfig() Config {
	return Config{Diameter: 120, Zoom: 3, Offset: 20}
}

// Magnifier owns one preview surface for the lifetime of a session.
type Magnifier struct {
	cfg      Config
	source   image.Image
	target   RenderTarget
	visible  bool
	pos      utils.Point
	center   utils.Point
	disposed bool
}

// New creates a magnifier drawing source onto target. Zero config fields fall
// back to DefaultConfig values.
func New(source image.Image, target RenderTarget, cfg Config) *Magnifier {
	def := DefaultConfig()
	if cfg.Diameter <= 0 {
		cfg.Diameter = def.Diameter
	}
	if cfg.Zoom <= 0 {
		cfg.Zoom = def.Zoom
	}
	if cfg.Offset <= 0 {
		cfg.Offset = def.Offset
	}
	return &Magnifier{cfg: cfg, source: source, target: target}
}

// NewRaster creates a magnifier with its own RasterTarget.
func NewRaster(source image.Image, cfg Config) (*Magnifier, *RasterTarget) {
	m := New(source, nil, cfg)
	rt := NewRasterTarget(m.cfg.Diameter, m.cfg.Diameter)
	m.target = rt
	return m, rt
}

// Config returns the effective configuration.
func (m *Magnifier) Config() Config { return m.cfg }

// Visible reports whether the preview is currently shown.
func (m *Magnifier) Visible() bool { return m.visible }

// Position returns the top-left corner of the preview in viewport coordinates.
func (m *Magnifier) Position() utils.Point { return m.pos }

// Center returns the image-space point the preview was last centred on.
func (m *Magnifier) Center() utils.Point { return m.center }

// Update redraws the preview around center (image pixels) and places it next
// to pointer (viewport coordinates).
func (m *Magnifier) Update(center, pointer utils.Point) error {
	if m.disposed {
		return ErrDisposed
	}
	m.center = center
	m.pos = Place(pointer, float64(m.cfg.Diameter), m.cfg.Offset)
	m.visible = true
	m.render()
	return nil
}

func (m *Magnifier) render() {
	d := m.cfg.Diameter
	half := d / 2
	t := m.target
	t.Clear()
	if m.source == nil {
		return
	}
	t.ClipCircle(image.Pt(half, half), half)

	srcSize := max(1, int(math.Round(float64(d)/m.cfg.Zoom)))
	cx := int(math.Round(m.center.X))
	cy := int(math.Round(m.center.Y))
	origin := image.Pt(cx-srcSize/2, cy-srcSize/2)
	sr := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(srcSize, srcSize))}
	if b := m.source.Bounds(); b.Min != (image.Point{}) {
		sr = sr.Add(b.Min)
	}
	t.DrawScaledRegion(m.source, sr, image.Rect(0, 0, d, d))

	arm := max(4, d/12)
	t.DrawLine(image.Pt(half-arm, half), image.Pt(half+arm, half), crosshairColor, 2)
	t.DrawLine(image.Pt(half, half-arm), image.Pt(half, half+arm), crosshairColor, 2)
}

// Hide marks the preview as not shown.
func (m *Magnifier) Hide() { m.visible = false }

// Dispose releases the preview surface. The magnifier cannot be used afterwards.
func (m *Magnifier) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	m.visible = false
	if r, ok := m.target.(interface{ Release() }); ok {
		r.Release()
	}
	m.target = nil
	m.source = nil
}

// Disposed reports whether Dispose has been called.
func (m *Magnifier) Disposed() bool { return m.disposed }

// Place returns the preview's top-left corner for a pointer. The preview sits
// above-left of the pointer and flips below or right when it would cross the
// top or left viewport edge.
func Place(pointer utils.Point, diameter, offset float64) utils.Point {
	x := pointer.X - offset - diameter
	y := pointer.Y - offset - diameter
	if x < 0 {
		x = pointer.X + offset
	}
	if y < 0 {
		y = pointer.Y + offset
	}
	return utils.Pt(x, y)
}
