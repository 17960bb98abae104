package config

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/magnifier"
	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/rectify"
	"github.com/MeKo-Tech/quadcrop/internal/session"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	mag := magnifier.DefaultConfig()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Viewport: ViewportConfig{
			MaxWidth:  session.DefaultViewportWidth,
			MaxHeight: session.DefaultViewportHeight,
		},
		Crop: CropConfig{
			MaxDimension: rectify.DefaultMaxDimension,
			HitRadius:    quad.DefaultHitRadius,
			InsetRatio:   quad.DefaultInsetRatio,
			Workers:      0,
		},
		Magnifier: MagnifierConfig{
			Diameter: mag.Diameter,
			Zoom:     mag.Zoom,
			Offset:   mag.Offset,
		},
		Output: OutputConfig{
			Format:      string(encode.FormatJPEG),
			JPEGQuality: encode.DefaultJPEGQuality,
		},
		Server: ServerConfig{
			Host:               "localhost",
			Port:               8080,
			CORSOrigin:         "*",
			MaxUploadMB:        50,
			TimeoutSec:         30,
			ShutdownTimeout:    10,
			MaxSessions:        32,
			MaxConcurrentCrops: 4,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := encode.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("invalid output format: %w", err)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality: %d (must be between 1 and 100)", c.Output.JPEGQuality)
	}

	if c.Viewport.MaxWidth <= 0 || c.Viewport.MaxHeight <= 0 {
		return fmt.Errorf("invalid viewport: %gx%g (both sides must be positive)", c.Viewport.MaxWidth, c.Viewport.MaxHeight)
	}

	if c.Crop.MaxDimension < 0 {
		return fmt.Errorf("invalid crop max dimension: %d (must be zero or positive)", c.Crop.MaxDimension)
	}
	if c.Crop.HitRadius <= 0 {
		return fmt.Errorf("invalid crop hit radius: %g (must be positive)", c.Crop.HitRadius)
	}
	if c.Crop.InsetRatio < 0 || c.Crop.InsetRatio >= 0.5 {
		return fmt.Errorf("invalid crop inset ratio: %.2f (must be in [0, 0.5))", c.Crop.InsetRatio)
	}
	if c.Crop.Workers < 0 {
		return fmt.Errorf("invalid crop workers: %d (must be zero or positive)", c.Crop.Workers)
	}

	if c.Magnifier.Diameter <= 0 {
		return fmt.Errorf("invalid magnifier diameter: %d (must be positive)", c.Magnifier.Diameter)
	}
	if c.Magnifier.Zoom < 1 {
		return fmt.Errorf("invalid magnifier zoom: %g (must be at least 1)", c.Magnifier.Zoom)
	}
	if c.Magnifier.Offset <= 0 {
		return fmt.Errorf("invalid magnifier offset: %g (must be positive)", c.Magnifier.Offset)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.MaxSessions <= 0 {
		return fmt.Errorf("invalid max sessions: %d (must be positive)", c.Server.MaxSessions)
	}
	if c.Server.MaxConcurrentCrops <= 0 {
		return fmt.Errorf("invalid max concurrent crops: %d (must be positive)", c.Server.MaxConcurrentCrops)
	}

	return nil
}

// SlogLevel maps LogLevel to a slog level. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ToRectifyConfig converts the crop section to rectify.Config.
func (c *Config) ToRectifyConfig() rectify.Config {
	cfg := rectify.DefaultConfig()
	cfg.MaxDimension = rectify.MaxDimensionSetting(c.Crop.MaxDimension)
	cfg.Workers = c.Crop.Workers
	cfg.DebugDir = c.Crop.DebugDir
	return cfg
}

// ToEncodeOptions converts the output section to encode.Options.
// Validate has already rejected unknown formats, so a parse failure falls back to JPEG.
func (c *Config) ToEncodeOptions() encode.Options {
	opts := encode.DefaultOptions()
	if f, err := encode.ParseFormat(c.Output.Format); err == nil {
		opts.Format = f
	}
	if c.Output.JPEGQuality > 0 {
		opts.JPEGQuality = c.Output.JPEGQuality
	}
	return opts
}

// ToSessionOptions converts the config to session.Options.
func (c *Config) ToSessionOptions(logger *slog.Logger) session.Options {
	return session.Options{
		ViewportWidth:  c.Viewport.MaxWidth,
		ViewportHeight: c.Viewport.MaxHeight,
		HitRadius:      c.Crop.HitRadius,
		InsetRatio:     c.Crop.InsetRatio,
		Rectify:        c.ToRectifyConfig(),
		Magnifier: magnifier.Config{
			Diameter: c.Magnifier.Diameter,
			Zoom:     c.Magnifier.Zoom,
			Offset:   c.Magnifier.Offset,
		},
		Encode: c.ToEncodeOptions(),
		Logger: logger,
	}
}

// WriteYAML renders the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config as yaml: %w", err)
	}
	return enc.Close()
}
