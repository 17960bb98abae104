package rectify

// NoCap disables the max-dimension cap when set as Config.MaxDimension.
const NoCap = -1

// Config holds configuration for the rectification process.
type Config struct {
	MaxDimension int    // cap for the longer output side (0 = DefaultMaxDimension, NoCap = no cap)
	Workers      int    // resampler goroutines (0 = runtime.NumCPU())
	DebugDir     string // if non-empty, writes overlay and comparison PNGs here
}

// DefaultConfig returns sensible defaults for rectification.
func DefaultConfig() Config {
	return Config{
		MaxDimension: DefaultMaxDimension,
		Workers:      0,
		DebugDir:     "",
	}
}

// OutputCap returns the maxDim argument for ComputeOutputGeometry: the
// default for a zero MaxDimension and 0 (uncapped) for a negative one.
func (c Config) OutputCap() int {
	switch {
	case c.MaxDimension == 0:
		return DefaultMaxDimension
	case c.MaxDimension < 0:
		return 0
	default:
		return c.MaxDimension
	}
}

// MaxDimensionSetting maps a user-facing max dimension, where 0 disables the
// cap, onto Config.MaxDimension.
func MaxDimensionSetting(n int) int {
	if n == 0 {
		return NoCap
	}
	return n
}
