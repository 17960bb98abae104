package rectify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// snapEpsilon pulls sample coordinates this close to an integer onto it.
const snapEpsilon = 1e-9

// Warp inverse-maps every pixel of a g.Width x g.Height output through h into
// src and samples it bilinearly. Pixels whose source position falls outside
// [0, w-1) x [0, h-1) stay fully transparent. Rows are shared among workers
// goroutines (0 means runtime.NumCPU()); the result does not depend on the
// worker count. The context is checked before each row.
func Warp(ctx context.Context, src image.Image, h Homography, g OutputGeometry, workers int) (*image.NRGBA, error) {
	if src == nil {
		return nil, errors.New("warp: nil source image")
	}
	if g.Width <= 0 || g.Height <= 0 {
		return nil, fmt.Errorf("warp: invalid output size %dx%d", g.Width, g.Height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := utils.ToNRGBA(src)
	out := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, g.Height)

	if workers == 1 {
		for y := range g.Height {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			warpRow(s, out, h, y)
		}
		return out, nil
	}

	rows := make(chan int, g.Height)
	for y := range g.Height {
		rows <- y
	}
	close(rows)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				if ctx.Err() != nil {
					return
				}
				warpRow(s, out, h, y)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// warpRow fills output row y. Each row touches a disjoint slice of out.Pix.
func warpRow(src, out *image.NRGBA, h Homography, y int) {
	sw := src.Rect.Dx()
	sh := src.Rect.Dy()
	maxX := float64(sw - 1)
	maxY := float64(sh - 1)
	row := out.Pix[y*out.Stride : y*out.Stride+out.Rect.Dx()*4]
	for x := range out.Rect.Dx() {
		sx, sy, ok := h.Apply(float64(x), float64(y))
		if !ok {
			continue
		}
		sx = snap(sx)
		sy = snap(sy)
		if !(sx >= 0 && sy >= 0 && sx < maxX && sy < maxY) {
			continue
		}
		bilinearSample(src, sx, sy, row[x*4:x*4+4])
	}
}

// bilinearSample blends the four neighbours around (x, y) into px and marks it opaque.
// The caller guarantees 0 <= x < w-1 and 0 <= y < h-1.
func bilinearSample(src *image.NRGBA, x, y float64, px []uint8) {
	x0 := int(x)
	y0 := int(y)
	fx := x - float64(x0)
	fy := y - float64(y0)

	i00 := y0*src.Stride + x0*4
	i10 := i00 + 4
	i01 := i00 + src.Stride
	i11 := i01 + 4
	for c := range 3 {
		top := lerp(float64(src.Pix[i00+c]), float64(src.Pix[i10+c]), fx)
		bot := lerp(float64(src.Pix[i01+c]), float64(src.Pix[i11+c]), fx)
		px[c] = uint8(lerp(top, bot, fy) + 0.5)
	}
	px[3] = 0xff
}

func snap(v float64) float64 {
	r := math.Round(v)
	if abs(v-r) < snapEpsilon {
		return r
	}
	return v
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
