package session

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

var (
	borderColor   = color.NRGBA{R: 0xff, G: 0x47, B: 0x57, A: 0xff}
	selectedColor = color.NRGBA{R: 0xff, G: 0xd9, B: 0x3d, A: 0xff}
	handleInner   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	labelColor    = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const (
	borderWidth     = 3
	handleOuter     = 15.0
	handleInnerR    = 8.0
	handleOuterSel  = 18.0
	handleInnerRSel = 10.0
	labelDistance   = 26.0
)

// displayCanvas returns the image scaled to the display surface. It is built once.
func (s *Session) displayCanvas() *image.NRGBA {
	s.canvasOnce.Do(func() {
		w, h := s.display.DisplaySize()
		s.canvas = imaging.Resize(s.source, w, h, imaging.Linear)
	})
	return s.canvas
}

// RenderOverlay draws the annotated display surface: the image dimmed outside
// the quad, the quad border, the corner handles and their labels.
func (s *Session) RenderOverlay() *image.NRGBA {
	base := s.displayCanvas()
	s.mu.Lock()
	corners := s.state.Corners
	selected := s.state.Selected
	s.mu.Unlock()

	out := image.NewNRGBA(base.Bounds())
	copy(out.Pix, base.Pix)

	dimOutside(out, corners.Points())
	utils.DrawPolygon(out, corners.Points(), borderColor, borderWidth)

	for _, c := range quad.Corners {
		outer, inner, col := handleOuter, handleInnerR, borderColor
		if c == selected {
			outer, inner, col = handleOuterSel, handleInnerRSel, selectedColor
		}
		utils.FillCircle(out, corners[c], outer, col)
		utils.FillCircle(out, corners[c], inner, handleInner)
	}
	drawLabels(out, corners)
	return out
}

// dimOutside halves the colour of every pixel whose centre lies outside poly.
func dimOutside(img *image.NRGBA, poly []utils.Point) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if utils.PointInPolygon(utils.Pt(float64(x)+0.5, float64(y)+0.5), poly) {
				continue
			}
			i := (x - b.Min.X) * 4
			row[i] /= 2
			row[i+1] /= 2
			row[i+2] /= 2
			if row[i+3] < 0x80 {
				row[i+3] = 0x80
			}
		}
	}
}

// drawLabels writes TL/TR/BR/BL next to each corner, pushed away from the
// quad's centre and kept inside the canvas.
func drawLabels(img draw.Image, corners quad.Quad) {
	face := basicfont.Face7x13
	var cx, cy float64
	for _, p := range corners {
		cx += p.X / 4
		cy += p.Y / 4
	}
	b := img.Bounds()
	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for _, c := range quad.Corners {
		p := corners[c]
		dir := utils.Pt(p.X-cx, p.Y-cy)
		if n := utils.Distance(dir, utils.Point{}); n > 0 {
			dir = dir.Scale(labelDistance / n)
		}
		label := c.String()
		w := font.MeasureString(face, label).Ceil()
		x := int(p.X+dir.X) - w/2
		y := int(p.Y+dir.Y) + ascent/2
		x = min(max(x, b.Min.X), b.Max.X-w)
		y = min(max(y, b.Min.Y+ascent), b.Max.Y-1)
		d.Dot = fixed.P(x, y)
		d.DrawString(label)
	}
}
