package rectify

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/quadcrop/internal/testutil"
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

func warpQuad(t *testing.T, src image.Image, quad [4]utils.Point, maxDim, workers int) *image.NRGBA {
	t.Helper()
	g, err := ComputeOutputGeometry(quad, maxDim)
	require.NoError(t, err)
	h, err := OutputToSource(quad, g)
	require.NoError(t, err)
	out, err := Warp(context.Background(), src, h, g, workers)
	require.NoError(t, err)
	return out
}

func TestWarpIdentityCopiesPixels(t *testing.T) {
	src := testutil.Gradient(64, 64)
	quad := [4]utils.Point{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 30}, {X: 0, Y: 30}}

	out := warpQuad(t, src, quad, 400, 1)
	require.Equal(t, image.Rect(0, 0, 40, 30), out.Bounds())
	for y := range 30 {
		for x := range 40 {
			if got, want := out.NRGBAAt(x, y), src.NRGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestWarpOffsetCopiesPixels(t *testing.T) {
	src := testutil.Gradient(100, 100)
	quad := [4]utils.Point{{X: 20, Y: 10}, {X: 70, Y: 10}, {X: 70, Y: 50}, {X: 20, Y: 50}}

	out := warpQuad(t, src, quad, 400, 3)
	for y := range 40 {
		for x := range 50 {
			if got, want := out.NRGBAAt(x, y), src.NRGBAAt(x+20, y+10); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestWarpScenarioCenterSample(t *testing.T) {
	src := testutil.Gradient(1000, 1000)
	quad := [4]utils.Point{{X: 100, Y: 100}, {X: 900, Y: 100}, {X: 900, Y: 900}, {X: 100, Y: 900}}

	out := warpQuad(t, src, quad, 400, 0)
	require.Equal(t, 400, out.Bounds().Dx())
	require.Equal(t, 400, out.Bounds().Dy())
	assert.Equal(t, src.NRGBAAt(500, 500), out.NRGBAAt(200, 200))
	assert.Equal(t, src.NRGBAAt(100, 100), out.NRGBAAt(0, 0))
}

func TestWarpDeterministicAcrossWorkers(t *testing.T) {
	src := testutil.Checkerboard(300, 200, 7)
	quad := [4]utils.Point{{X: 31.5, Y: 12.25}, {X: 270.1, Y: 40}, {X: 250, Y: 190.7}, {X: 12, Y: 170}}

	base := warpQuad(t, src, quad, 400, 1)
	for _, workers := range []int{0, 2, 4, 16} {
		out := warpQuad(t, src, quad, 400, workers)
		assert.True(t, bytes.Equal(base.Pix, out.Pix), "workers=%d produced different pixels", workers)
	}
	again := warpQuad(t, src, quad, 400, 1)
	assert.True(t, bytes.Equal(base.Pix, again.Pix))
}

func TestWarpOutOfRangeIsTransparent(t *testing.T) {
	src := testutil.Uniform(40, 40, color.Black)
	quad := [4]utils.Point{{X: -10, Y: -10}, {X: 50, Y: -10}, {X: 50, Y: 50}, {X: -10, Y: 50}}

	out := warpQuad(t, src, quad, 400, 2)
	assert.Equal(t, color.NRGBA{}, out.NRGBAAt(0, 0), "outside pixel should be the no-data sentinel")
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(30, 30), "inside pixel should be opaque black")
}

func TestWarpLastRowAndColumnAreNoData(t *testing.T) {
	src := testutil.Gradient(20, 20)
	quad := [4]utils.Point{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}}

	out := warpQuad(t, src, quad, 400, 1)
	assert.Equal(t, uint8(0), out.NRGBAAt(19, 5).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(5, 19).A)
	assert.Equal(t, src.NRGBAAt(18, 18), out.NRGBAAt(18, 18))
}

func TestWarpBilinearBlend(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	for y := range 3 {
		for x := range 3 {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 100), A: 255})
		}
	}
	// Shift by half a pixel horizontally.
	h := Identity()
	h[2] = 0.5
	out, err := Warp(context.Background(), src, h, OutputGeometry{Width: 1, Height: 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(50), out.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), out.NRGBAAt(0, 0).A)
}

func TestWarpHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := testutil.Gradient(50, 50)
	_, err := Warp(ctx, src, Identity(), OutputGeometry{Width: 40, Height: 40}, 4)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWarpInvalidInput(t *testing.T) {
	_, err := Warp(context.Background(), nil, Identity(), OutputGeometry{Width: 1, Height: 1}, 1)
	assert.Error(t, err)

	_, err = Warp(context.Background(), testutil.Gradient(4, 4), Identity(), OutputGeometry{}, 1)
	assert.Error(t, err)
}

func BenchmarkWarp(b *testing.B) {
	src := testutil.Gradient(1000, 1000)
	quad := [4]utils.Point{{X: 120, Y: 80}, {X: 880, Y: 130}, {X: 910, Y: 900}, {X: 90, Y: 860}}
	g, _ := ComputeOutputGeometry(quad, 400)
	h, _ := OutputToSource(quad, g)
	ctx := context.Background()

	b.ResetTimer()
	for range b.N {
		_, _ = Warp(ctx, src, h, g, 0)
	}
}
