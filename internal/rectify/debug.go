package rectify

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

var (
	debugQuadColor = color.NRGBA{R: 0xff, G: 0x47, B: 0x57, A: 0xff}
	debugRectColor = color.NRGBA{G: 0xff, A: 0xff}
)

func dumpOverlayPNG(dir string, src image.Image, quad []utils.Point) error {
	b := src.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)
	utils.DrawPolygon(canvas, quad, debugQuadColor, 2)
	return writeDebugPNG(dir, "crop_overlay", canvas)
}

func dumpComparePNG(dir string, src image.Image, srcQuad []utils.Point, dst image.Image) error {
	sb := src.Bounds()
	db := dst.Bounds()
	gap := 10
	outW := sb.Dx() + gap + db.Dx()
	outH := max(sb.Dy(), db.Dy())
	canvas := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	// source on the left, crop on the right
	draw.Draw(canvas, image.Rect(0, 0, sb.Dx(), sb.Dy()), src, sb.Min, draw.Src)
	xoff := sb.Dx() + gap
	draw.Draw(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), dst, db.Min, draw.Src)

	utils.DrawPolygon(canvas, srcQuad, debugQuadColor, 2)
	utils.DrawRect(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), debugRectColor, 2)
	return writeDebugPNG(dir, "crop_compare", canvas)
}

func writeDebugPNG(dir, prefix string, img image.Image) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", prefix, time.Now().UnixNano()))
	f, err := os.Create(path) //nolint:gosec // G304: path is constructed from timestamp in debug directory
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
