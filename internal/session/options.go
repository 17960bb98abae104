package session

import (
	"log/slog"

	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/magnifier"
	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/rectify"
)

// Default viewport bounds for the display surface.
const (
	DefaultViewportWidth  = 800
	DefaultViewportHeight = 500
)

// Options configures a session.
type Options struct {
	ViewportWidth  float64
	ViewportHeight float64
	HitRadius      float64
	InsetRatio     float64
	Rectify        rectify.Config
	Magnifier      magnifier.Config
	Encode         encode.Options
	Logger         *slog.Logger
}

// DefaultOptions returns the stock interactive settings.
func DefaultOptions() Options {
	return Options{
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		HitRadius:      quad.DefaultHitRadius,
		InsetRatio:     quad.DefaultInsetRatio,
		Rectify:        rectify.DefaultConfig(),
		Magnifier:      magnifier.DefaultConfig(),
		Encode:         encode.DefaultOptions(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = def.ViewportWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = def.ViewportHeight
	}
	if o.HitRadius <= 0 {
		o.HitRadius = def.HitRadius
	}
	if o.InsetRatio < 0 || o.InsetRatio >= 0.5 {
		o.InsetRatio = def.InsetRatio
	}
	if o.Magnifier.Diameter <= 0 || o.Magnifier.Zoom <= 0 {
		o.Magnifier = def.Magnifier
	}
	if o.Encode.Format == "" {
		o.Encode.Format = def.Encode.Format
	}
	if o.Encode.JPEGQuality <= 0 {
		o.Encode.JPEGQuality = def.Encode.JPEGQuality
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
