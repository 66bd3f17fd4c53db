// Package config holds runtime configuration for holder evaluation.
package config

import (
	"fmt"
	"runtime"

	"github.com/FocuswithJustin/exprholders/core/errors"
)

// Config holds evaluation configuration.
type Config struct {
	ArenaChunkSize  int    // Bytes per arena chunk
	ArenaLimit      int    // Maximum arena bytes per batch (0 = unlimited)
	PathCacheSize   int    // Translated JSON paths kept per holder
	HolderCacheSize int    // Bound holder prototypes kept by the binder
	StrictJSON      bool   // Validate whole documents before path lookup
	Workers         int    // Parallel projector workers (0 = GOMAXPROCS)
	BatchSize       int    // Rows per record batch
	LogLevel        string // debug, info, warn, error
	LogFormat       string // json or text
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ArenaChunkSize:  64 * 1024,
		ArenaLimit:      0,
		PathCacheSize:   64,
		HolderCacheSize: 256,
		StrictJSON:      false,
		Workers:         0,
		BatchSize:       1024,
		LogLevel:        "warn",
		LogFormat:       "text",
	}
}

// Validate checks that all sizes are usable.
func (c Config) Validate() error {
	if c.ArenaChunkSize <= 0 {
		return &errors.ParseError{Format: "config", Message: fmt.Sprintf("arena chunk size must be positive, got %d", c.ArenaChunkSize)}
	}
	if c.ArenaLimit < 0 {
		return &errors.ParseError{Format: "config", Message: fmt.Sprintf("arena limit must not be negative, got %d", c.ArenaLimit)}
	}
	if c.PathCacheSize < 0 || c.HolderCacheSize < 0 {
		return &errors.ParseError{Format: "config", Message: "cache sizes must not be negative"}
	}
	if c.Workers < 0 {
		return &errors.ParseError{Format: "config", Message: fmt.Sprintf("workers must not be negative, got %d", c.Workers)}
	}
	if c.BatchSize <= 0 {
		return &errors.ParseError{Format: "config", Message: fmt.Sprintf("batch size must be positive, got %d", c.BatchSize)}
	}
	return nil
}

// EffectiveWorkers resolves Workers, substituting GOMAXPROCS for zero.
func (c Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
