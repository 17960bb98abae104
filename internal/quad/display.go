package quad

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// DefaultInsetRatio is the share of the display size between each edge and the initial quad.
const DefaultInsetRatio = 0.1

// DisplayTransform maps between image pixels and the display surface with a
// single uniform scale. It is computed once per session.
type DisplayTransform struct {
	Scale         float64
	ImageWidth    int
	ImageHeight   int
	DisplayWidth  float64
	DisplayHeight float64
}

// NewDisplayTransform fits an imgW x imgH image inside a maxW x maxH viewport
// while keeping its aspect ratio. Small images are scaled up to fill it.
func NewDisplayTransform(imgW, imgH int, maxW, maxH float64) (DisplayTransform, error) {
	if imgW <= 0 || imgH <= 0 {
		return DisplayTransform{}, fmt.Errorf("invalid image size %dx%d", imgW, imgH)
	}
	if !(maxW > 0) || !(maxH > 0) {
		return DisplayTransform{}, fmt.Errorf("invalid viewport %gx%g", maxW, maxH)
	}
	scale := math.Min(maxW/float64(imgW), maxH/float64(imgH))
	return DisplayTransform{
		Scale:         scale,
		ImageWidth:    imgW,
		ImageHeight:   imgH,
		DisplayWidth:  float64(imgW) * scale,
		DisplayHeight: float64(imgH) * scale,
	}, nil
}

// ToImage converts a display-space point to image pixels.
func (d DisplayTransform) ToImage(p utils.Point) utils.Point { return p.Scale(1 / d.Scale) }

// ToDisplay converts an image pixel position to display space.
func (d DisplayTransform) ToDisplay(p utils.Point) utils.Point { return p.Scale(d.Scale) }

// QuadToImage converts all four corners to image pixels.
func (d DisplayTransform) QuadToImage(q Quad) Quad { return q.Scale(1 / d.Scale) }

// QuadToDisplay converts all four corners to display space.
func (d DisplayTransform) QuadToDisplay(q Quad) Quad { return q.Scale(d.Scale) }

// DisplaySize returns the display surface size rounded to whole pixels.
func (d DisplayTransform) DisplaySize() (int, int) {
	return max(1, int(math.Round(d.DisplayWidth))), max(1, int(math.Round(d.DisplayHeight)))
}

// InitialQuad returns the upright rectangle inset by ratio of the display size
// from each edge.
func (d DisplayTransform) InitialQuad(ratio float64) Quad {
	w, h := d.DisplayWidth, d.DisplayHeight
	return Rect(w*ratio, h*ratio, w*(1-ratio), h*(1-ratio))
}
