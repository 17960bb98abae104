//nolint:lll
package config

// Config represents the complete configuration for quadcrop.
// It covers the interactive session, the crop CLI and the HTTP server, and
// loads from configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Display surface bounds
	Viewport ViewportConfig `mapstructure:"viewport" yaml:"viewport" json:"viewport"`

	// Corner editing and resampling
	Crop CropConfig `mapstructure:"crop" yaml:"crop" json:"crop"`

	// Magnifier preview
	Magnifier MagnifierConfig `mapstructure:"magnifier" yaml:"magnifier" json:"magnifier"`

	// Output encoding
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ViewportConfig bounds the display surface the image is fitted into.
type ViewportConfig struct {
	MaxWidth  float64 `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	MaxHeight float64 `mapstructure:"max_height" yaml:"max_height" json:"max_height"`
}

// CropConfig contains corner editing and resampling settings.
type CropConfig struct {
	MaxDimension int     `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
	HitRadius    float64 `mapstructure:"hit_radius" yaml:"hit_radius" json:"hit_radius"`
	InsetRatio   float64 `mapstructure:"inset_ratio" yaml:"inset_ratio" json:"inset_ratio"`
	Workers      int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	DebugDir     string  `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"`
}

// MagnifierConfig contains magnifier preview settings.
type MagnifierConfig struct {
	Diameter int     `mapstructure:"diameter" yaml:"diameter" json:"diameter"`
	Zoom     float64 `mapstructure:"zoom" yaml:"zoom" json:"zoom"`
	Offset   float64 `mapstructure:"offset" yaml:"offset" json:"offset"`
}

// OutputConfig contains output encoding settings.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
	JPEGQuality int    `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
	File        string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host               string `mapstructure:"host" yaml:"host" json:"host"`
	Port               int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin         string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB        int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec         int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout    int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxSessions        int    `mapstructure:"max_sessions" yaml:"max_sessions" json:"max_sessions"`
	MaxConcurrentCrops int    `mapstructure:"max_concurrent_crops" yaml:"max_concurrent_crops" json:"max_concurrent_crops"`
}
