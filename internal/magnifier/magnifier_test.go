package magnifier

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// recordingTarget logs the calls made against it.
type recordingTarget struct {
	calls    []string
	sr, dr   image.Rectangle
	released bool
}

func (r *recordingTarget) Bounds() image.Rectangle { return image.Rect(0, 0, 120, 120) }

func (r *recordingTarget) Clear() { r.calls = append(r.calls, "clear") }

func (r *recordingTarget) ClipCircle(image.Point, int) {
	r.calls = append(r.calls, "clip")
}

func (r *recordingTarget) DrawScaledRegion(_ image.Image, sr, dr image.Rectangle) {
	r.calls = append(r.calls, "scaled")
	r.sr, r.dr = sr, dr
}

func (r *recordingTarget) DrawLine(image.Point, image.Point, color.Color, int) {
	r.calls = append(r.calls, "line")
}

func (r *recordingTarget) Release() { r.released = true }

func TestPlace(t *testing.T) {
	tests := []struct {
		name    string
		pointer utils.Point
		want    utils.Point
	}{
		{"above left", utils.Pt(400, 300), utils.Pt(260, 160)},
		{"flip below near top", utils.Pt(400, 50), utils.Pt(260, 70)},
		{"flip right near left", utils.Pt(60, 300), utils.Pt(80, 160)},
		{"flip both in corner", utils.Pt(10, 10), utils.Pt(30, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Place(tt.pointer, 120, 20))
		})
	}
}

func TestUpdateDrawsZoomedRegion(t *testing.T) {
	rec := &recordingTarget{}
	src := image.NewNRGBA(image.Rect(0, 0, 1000, 1000))
	m := New(src, rec, Config{})
	assert.Equal(t, DefaultConfig(), m.Config())

	require.NoError(t, m.Update(utils.Pt(500, 500), utils.Pt(400, 300)))
	assert.True(t, m.Visible())
	assert.Equal(t, utils.Pt(260, 160), m.Position())
	assert.Equal(t, utils.Pt(500, 500), m.Center())

	assert.Equal(t, []string{"clear", "clip", "scaled", "line", "line"}, rec.calls)
	assert.Equal(t, image.Rect(480, 480, 520, 520), rec.sr, "120 units at 3x covers 40 source pixels")
	assert.Equal(t, image.Rect(0, 0, 120, 120), rec.dr)
}

func TestNewFillsZeroConfigFields(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	tests := []struct {
		name string
		cfg  Config
		want Config
	}{
		{"zero value", Config{}, DefaultConfig()},
		{"zero offset", Config{Diameter: 80, Zoom: 2}, Config{Diameter: 80, Zoom: 2, Offset: 20}},
		{"negative fields", Config{Diameter: -1, Zoom: -2, Offset: -5}, DefaultConfig()},
		{"explicit", Config{Diameter: 60, Zoom: 4, Offset: 8}, Config{Diameter: 60, Zoom: 4, Offset: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(src, &recordingTarget{}, tt.cfg).Config())
		})
	}
}

func TestHideAndDispose(t *testing.T) {
	rec := &recordingTarget{}
	m := New(image.NewNRGBA(image.Rect(0, 0, 10, 10)), rec, DefaultConfig())
	require.NoError(t, m.Update(utils.Pt(5, 5), utils.Pt(200, 200)))

	m.Hide()
	assert.False(t, m.Visible())

	m.Dispose()
	assert.True(t, m.Disposed())
	assert.True(t, rec.released)
	assert.ErrorIs(t, m.Update(utils.Pt(5, 5), utils.Pt(200, 200)), ErrDisposed)

	// Disposing twice is a no-op.
	m.Dispose()
}

func TestRasterMagnifierSamplesSource(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	blue := color.NRGBA{B: 0xff, A: 0xff}
	for y := range 200 {
		for x := range 200 {
			src.SetNRGBA(x, y, blue)
		}
	}
	m, rt := NewRaster(src, DefaultConfig())
	require.NoError(t, m.Update(utils.Pt(100, 100), utils.Pt(500, 500)))

	img := rt.Image()
	require.Equal(t, image.Rect(0, 0, 120, 120), img.Bounds())
	// Inside the circle but off the crosshair.
	assert.Equal(t, blue, img.NRGBAAt(30, 60))
	// Corners are outside the circular clip.
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(1, 1))
	// Crosshair centre.
	assert.Equal(t, crosshairColor, img.NRGBAAt(60, 60))

	m.Dispose()
	assert.Nil(t, rt.Image())
}

func TestRasterMagnifierOutsideSourceIsTransparent(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0xff
	}
	m, rt := NewRaster(src, DefaultConfig())
	require.NoError(t, m.Update(utils.Pt(0, 0), utils.Pt(300, 300)))

	img := rt.Image()
	// Top-left quadrant of the preview lies left/above the image.
	assert.Equal(t, uint8(0), img.NRGBAAt(30, 30).A)
	// Bottom-right quadrant shows image pixels.
	assert.Equal(t, uint8(0xff), img.NRGBAAt(90, 90).A)
}

func TestRasterTargetClearResetsClip(t *testing.T) {
	rt := NewRasterTarget(20, 20)
	rt.ClipCircle(image.Pt(10, 10), 5)
	red := color.NRGBA{R: 0xff, A: 0xff}
	rt.DrawLine(image.Pt(0, 10), image.Pt(19, 10), red, 1)
	assert.Equal(t, color.NRGBA{}, rt.Image().NRGBAAt(0, 10))
	assert.Equal(t, red, rt.Image().NRGBAAt(10, 10))

	rt.Clear()
	assert.Equal(t, color.NRGBA{}, rt.Image().NRGBAAt(10, 10))
	rt.DrawLine(image.Pt(0, 10), image.Pt(19, 10), red, 1)
	assert.Equal(t, red, rt.Image().NRGBAAt(0, 10))
}
