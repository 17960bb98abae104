package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Pt(0, 0), Pt(3, 4)), 1e-12)
	assert.InDelta(t, 0.0, Distance(Pt(7, 7), Pt(7, 7)), 1e-12)
}

func TestClampPoint(t *testing.T) {
	tests := []struct {
		name string
		in   Point
		want Point
	}{
		{"inside", Pt(10, 20), Pt(10, 20)},
		{"negative", Pt(-5, -1), Pt(0, 0)},
		{"beyond", Pt(500, 300), Pt(100, 50)},
		{"mixed", Pt(-3, 80), Pt(0, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampPoint(tt.in, 100, 50))
		})
	}
}

func TestPointRound(t *testing.T) {
	assert.Equal(t, image.Pt(3, -2), Pt(2.6, -2.4).Round())
}

func TestDrawRect(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	red := color.NRGBA{R: 255, A: 255}
	DrawRect(img, image.Rect(2, 2, 8, 8), red, 1)

	assert.Equal(t, red, img.NRGBAAt(2, 2))
	assert.Equal(t, red, img.NRGBAAt(7, 7))
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(5, 5))
}

func TestDrawLineClipsToBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	assert.NotPanics(t, func() {
		DrawLine(img, image.Pt(-10, 2), image.Pt(20, 2), white, 3)
	})
	for x := range 5 {
		assert.Equal(t, white, img.NRGBAAt(x, 2))
	}
}

func TestFillCircle(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	c := color.NRGBA{G: 255, A: 255}
	FillCircle(img, Pt(10, 10), 4, c)

	assert.Equal(t, c, img.NRGBAAt(10, 10))
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(16, 10))
}
