package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/rectify"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Verbose)
	assert.InDelta(t, 800.0, cfg.Viewport.MaxWidth, 0)
	assert.InDelta(t, 500.0, cfg.Viewport.MaxHeight, 0)
	assert.Equal(t, rectify.DefaultMaxDimension, cfg.Crop.MaxDimension)
	assert.InDelta(t, 30.0, cfg.Crop.HitRadius, 0)
	assert.Equal(t, 120, cfg.Magnifier.Diameter)
	assert.Equal(t, "jpeg", cfg.Output.Format)
	assert.Equal(t, 90, cfg.Output.JPEGQuality)
	assert.Equal(t, 8080, cfg.Server.Port)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"bad format", func(c *Config) { c.Output.Format = "gif" }, "invalid output format"},
		{"quality too high", func(c *Config) { c.Output.JPEGQuality = 101 }, "invalid jpeg quality"},
		{"zero viewport", func(c *Config) { c.Viewport.MaxHeight = 0 }, "invalid viewport"},
		{"negative max dimension", func(c *Config) { c.Crop.MaxDimension = -1 }, "max dimension"},
		{"zero hit radius", func(c *Config) { c.Crop.HitRadius = 0 }, "hit radius"},
		{"inset too large", func(c *Config) { c.Crop.InsetRatio = 0.5 }, "inset ratio"},
		{"negative workers", func(c *Config) { c.Crop.Workers = -2 }, "crop workers"},
		{"zero diameter", func(c *Config) { c.Magnifier.Diameter = 0 }, "magnifier diameter"},
		{"zoom below one", func(c *Config) { c.Magnifier.Zoom = 0.5 }, "magnifier zoom"},
		{"negative offset", func(c *Config) { c.Magnifier.Offset = -1 }, "magnifier offset"},
		{"zero offset", func(c *Config) { c.Magnifier.Offset = 0 }, "magnifier offset"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"zero upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max upload"},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "invalid timeout"},
		{"zero sessions", func(c *Config) { c.Server.MaxSessions = 0 }, "max sessions"},
		{"zero crops", func(c *Config) { c.Server.MaxConcurrentCrops = 0 }, "max concurrent crops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAcceptsUncappedAndPDF(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Crop.MaxDimension = 0
	cfg.Output.Format = "PDF"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, encode.FormatPDF, cfg.ToEncodeOptions().Format)
	assert.Equal(t, rectify.NoCap, cfg.ToRectifyConfig().MaxDimension)
}

func TestSlogLevel(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	cfg.LogLevel = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())

	cfg.LogLevel = "error"
	assert.Equal(t, slog.LevelError, cfg.SlogLevel())

	cfg.Verbose = true
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestToSessionOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Viewport.MaxWidth = 640
	cfg.Crop.MaxDimension = 1200
	cfg.Crop.Workers = 3
	cfg.Crop.DebugDir = "/tmp/dbg"
	cfg.Magnifier.Zoom = 4
	cfg.Output.Format = "png"

	logger := slog.Default()
	opts := cfg.ToSessionOptions(logger)

	assert.InDelta(t, 640.0, opts.ViewportWidth, 0)
	assert.InDelta(t, 500.0, opts.ViewportHeight, 0)
	assert.InDelta(t, 30.0, opts.HitRadius, 0)
	assert.InDelta(t, 0.1, opts.InsetRatio, 0)
	assert.Equal(t, 1200, opts.Rectify.MaxDimension)
	assert.Equal(t, 3, opts.Rectify.Workers)
	assert.Equal(t, "/tmp/dbg", opts.Rectify.DebugDir)
	assert.InDelta(t, 4.0, opts.Magnifier.Zoom, 0)
	assert.Equal(t, 120, opts.Magnifier.Diameter)
	assert.Equal(t, encode.FormatPNG, opts.Encode.Format)
	assert.Equal(t, 90, opts.Encode.JPEGQuality)
	assert.Same(t, logger, opts.Logger)
}

func TestWriteYAML(t *testing.T) {
	cfg := DefaultConfig()
	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	out := buf.String()
	assert.Contains(t, out, "log_level: info")
	assert.Contains(t, out, "max_dimension: 400")
	assert.Contains(t, out, "jpeg_quality: 90")
	assert.Contains(t, out, "max_concurrent_crops: 4")
}
