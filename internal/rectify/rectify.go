package rectify

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/quadcrop/internal/common"
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// Result is a rectified crop together with the values that produced it.
type Result struct {
	Image      *image.NRGBA
	Geometry   OutputGeometry
	Homography Homography
	Timings    *common.Stopwatch
}

// Rectifier turns a quadrilateral region of an image into an upright rectangle.
type Rectifier struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a rectifier. A nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *Rectifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rectifier{cfg: cfg, logger: logger}
}

// Config returns the rectifier configuration.
func (r *Rectifier) Config() Config { return r.cfg }

// Rectify sizes the output, estimates the output-to-source homography and
// resamples src. quad is in image pixel space, ordered TL, TR, BR, BL.
func (r *Rectifier) Rectify(ctx context.Context, src image.Image, quad [4]utils.Point) (*Result, error) {
	if src == nil {
		return nil, errors.New("nil image")
	}
	sw := common.NewStopwatch("rectify")

	g, err := ComputeOutputGeometry(quad, r.cfg.OutputCap())
	if err != nil {
		return nil, err
	}
	sw.Lap("size")

	h, err := OutputToSource(quad, g)
	if err != nil {
		return nil, err
	}
	sw.Lap("homography")

	if r.cfg.DebugDir != "" {
		if derr := dumpOverlayPNG(r.cfg.DebugDir, src, quad[:]); derr != nil {
			r.logger.Warn("debug overlay dump failed", "dir", r.cfg.DebugDir, "error", derr)
		}
	}

	out, err := Warp(ctx, src, h, g, r.cfg.Workers)
	if err != nil {
		return nil, err
	}
	sw.Lap("resample")

	if r.cfg.DebugDir != "" {
		if derr := dumpComparePNG(r.cfg.DebugDir, src, quad[:], out); derr != nil {
			r.logger.Warn("debug compare dump failed", "dir", r.cfg.DebugDir, "error", derr)
		}
	}

	r.logger.Debug("rectified quad",
		"width", g.Width, "height", g.Height,
		"raw_width", g.RawWidth, "raw_height", g.RawHeight,
		"scaled", g.Scaled(), "timings", sw)

	return &Result{Image: out, Geometry: g, Homography: h, Timings: sw}, nil
}
