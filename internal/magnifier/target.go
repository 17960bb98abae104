package magnifier

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// RenderTarget is the drawing surface the magnifier paints on. Implementations
// may be software rasters or accelerated surfaces.
type RenderTarget interface {
	Bounds() image.Rectangle
	// Clear erases the surface to transparent and removes any clip.
	Clear()
	// ClipCircle restricts later drawing to the disc at center with radius.
	ClipCircle(center image.Point, radius int)
	// DrawScaledRegion scales the sr portion of src into dr.
	DrawScaledRegion(src image.Image, sr, dr image.Rectangle)
	DrawLine(a, b image.Point, c color.Color, width int)
}

// RasterTarget is a RenderTarget backed by an in-memory NRGBA image.
type RasterTarget struct {
	img  *image.NRGBA
	mask *image.Alpha
}

var _ RenderTarget = (*RasterTarget)(nil)

// NewRasterTarget allocates a transparent w x h surface.
func NewRasterTarget(w, h int) *RasterTarget {
	return &RasterTarget{img: image.NewNRGBA(image.Rect(0, 0, w, h))}
}

// Image returns the backing image. It is nil after Release.
func (r *RasterTarget) Image() *image.NRGBA { return r.img }

func (r *RasterTarget) Bounds() image.Rectangle {
	if r.img == nil {
		return image.Rectangle{}
	}
	return r.img.Bounds()
}

func (r *RasterTarget) Clear() {
	if r.img == nil {
		return
	}
	clear(r.img.Pix)
	r.mask = nil
}

func (r *RasterTarget) ClipCircle(center image.Point, radius int) {
	if r.img == nil {
		return
	}
	mask := image.NewAlpha(r.img.Bounds())
	utils.FillCircle(mask, utils.Pt(float64(center.X), float64(center.Y)), float64(radius), color.Alpha{A: 0xff})
	r.mask = mask
}

func (r *RasterTarget) DrawScaledRegion(src image.Image, sr, dr image.Rectangle) {
	if r.img == nil || src == nil {
		return
	}
	var opts *xdraw.Options
	if r.mask != nil {
		opts = &xdraw.Options{DstMask: r.mask, DstMaskP: r.mask.Rect.Min}
	}
	xdraw.NearestNeighbor.Scale(r.img, dr, src, sr, xdraw.Over, opts)
}

func (r *RasterTarget) DrawLine(a, b image.Point, c color.Color, width int) {
	if r.img == nil {
		return
	}
	utils.DrawLine(clippedImage{NRGBA: r.img, mask: r.mask}, a, b, c, width)
}

// Release drops the backing pixels.
func (r *RasterTarget) Release() {
	r.img = nil
	r.mask = nil
}

// clippedImage ignores writes outside the mask.
type clippedImage struct {
	*image.NRGBA
	mask *image.Alpha
}

var _ draw.Image = clippedImage{}

func (c clippedImage) Set(x, y int, col color.Color) {
	if c.mask != nil && c.mask.AlphaAt(x, y).A == 0 {
		return
	}
	c.NRGBA.Set(x, y, col)
}
