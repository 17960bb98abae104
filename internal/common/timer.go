// Package common provides shared timing helpers.
package common

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Lap is a named stage measured by a Stopwatch.
type Lap struct {
	Name     string
	Duration time.Duration
}

// Stopwatch records consecutive named stages. It is safe for concurrent use.
type Stopwatch struct {
	mu    sync.Mutex
	name  string
	start time.Time
	last  time.Time
	laps  []Lap
}

// NewStopwatch starts a stopwatch with the given name.
func NewStopwatch(name string) *Stopwatch {
	now := time.Now()
	return &Stopwatch{name: name, start: now, last: now}
}

// Lap closes the current stage under name and returns its duration.
func (s *Stopwatch) Lap(name string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	s.laps = append(s.laps, Lap{Name: name, Duration: d})
	return d
}

// Laps returns a copy of the recorded stages.
func (s *Stopwatch) Laps() []Lap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Lap(nil), s.laps...)
}

// Elapsed returns the time since the stopwatch started.
func (s *Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Name returns the stopwatch name.
func (s *Stopwatch) Name() string { return s.name }

// LogValue renders the laps as a slog group of millisecond values.
func (s *Stopwatch) LogValue() slog.Value {
	laps := s.Laps()
	attrs := make([]slog.Attr, 0, len(laps)+1)
	for _, l := range laps {
		attrs = append(attrs, slog.Float64(l.Name+"_ms", ms(l.Duration)))
	}
	attrs = append(attrs, slog.Float64("total_ms", ms(s.Elapsed())))
	return slog.GroupValue(attrs...)
}

// String returns a formatted string representation of the stopwatch.
func (s *Stopwatch) String() string {
	laps := s.Laps()
	parts := make([]string, 0, len(laps))
	for _, l := range laps {
		parts = append(parts, fmt.Sprintf("%s=%v", l.Name, l.Duration))
	}
	if s.name != "" {
		return fmt.Sprintf("%s: %s", s.name, strings.Join(parts, " "))
	}
	return strings.Join(parts, " ")
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
