// Package simulate drives a running kiosk over HTTP with synthetic
// identities and camera frames, then checks the attendance log it produced.
package simulate

import (
	"fmt"
	"runtime"
	"time"
)

// Config controls one simulation run.
type Config struct {
	BaseURL string
	// Identities is how many synthetic people to register.
	Identities int
	// Frames is how many frames each person presents to the camera.
	Frames  int
	Workers int
	Timeout time.Duration
	// DescriptorLength must match the server's configured length.
	DescriptorLength int
	// Noise is the per-component jitter added to every frame.
	Noise float64
	// Prefix names the synthetic identities, e.g. "sim-0007".
	Prefix string
	Seed   uint64
}

// DefaultConfig returns settings that work against a default server.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:9080",
		Identities:       20,
		Frames:           10,
		Workers:          runtime.NumCPU() * workerMultiplier,
		Timeout:          30 * time.Second,
		DescriptorLength: 128,
		Noise:            0.005,
		Prefix:           "sim",
		Seed:             1,
	}
}

// Validate checks that a run can make progress.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Identities < 1 || c.Frames < 1:
		return fmt.Errorf("%w: identities and frames must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.DescriptorLength < 1:
		return fmt.Errorf("%w: descriptor length must be positive", ErrInvalidConfig)
	case c.Noise < 0:
		return fmt.Errorf("%w: noise must not be negative", ErrInvalidConfig)
	case c.Prefix == "":
		return fmt.Errorf("%w: prefix is required", ErrInvalidConfig)
	}
	return nil
}
