package domain

import (
	"fmt"
	"time"
)

// MaximumNumberOfIterations is the repeated-trial cap for confirming a
// failing probe before it is classified.
const MaximumNumberOfIterations = 50

// Config holds configuration for fault localization.
type Config struct {
	// MaxIterations is the number of consecutive failing trials a probed
	// sub-combination receives before it is classified.
	// Default: 50
	MaxIterations int

	// LargeModelThreshold is the parameter count above which the lattice
	// depth is bounded by LayerCeiling.
	// Default: 16
	LargeModelThreshold int

	// LayerCeiling is the maximum number of subsets a single lattice layer
	// may hold for large models.
	// Default: 50000
	LayerCeiling int

	// BuildTimeout bounds lattice construction. Exceeding it is fatal.
	// Default: 2m
	BuildTimeout time.Duration

	// SearchTimeout bounds each longest-unknown-path search. Exceeding it
	// is fatal for the round.
	// Default: 2m
	SearchTimeout time.Duration

	// Workers bounds the worker pool used for lattice construction and
	// path search. Zero means one worker per CPU.
	Workers int

	// SynthesisAttempts is the number of randomized retries when completing
	// a partial assignment into a valid test input.
	// Default: 100
	SynthesisAttempts int

	// VerificationThreshold is the number of passing checks after which a
	// candidate is discarded as a false positive.
	// Default: 10
	VerificationThreshold int

	// EmptyCombinationThreshold replaces VerificationThreshold for the
	// empty combination.
	// Default: 30
	EmptyCombinationThreshold int

	// ClassificationChecks is the number of executions used to determine
	// the exception type of an exception-inducing combination.
	// Default: 3
	ClassificationChecks int

	// MaxRestarts bounds how often identification restarts for one failing
	// input after verification disputes every candidate.
	// Default: 10
	MaxRestarts int

	// EnableClassification turns on the classification phase once
	// generation is exhausted.
	EnableClassification bool

	// RandomSeed seeds input synthesis. Use 0 for a random seed.
	RandomSeed int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:             MaximumNumberOfIterations,
		LargeModelThreshold:       16,
		LayerCeiling:              50000,
		BuildTimeout:              2 * time.Minute,
		SearchTimeout:             2 * time.Minute,
		Workers:                   0,
		SynthesisAttempts:         100,
		VerificationThreshold:     10,
		EmptyCombinationThreshold: 30,
		ClassificationChecks:      3,
		MaxRestarts:               10,
		EnableClassification:      true,
		RandomSeed:                0,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: MaxIterations must be at least 1, got %d",
			ErrInvalidConfig, c.MaxIterations)
	}
	if c.LargeModelThreshold < 1 {
		return fmt.Errorf("%w: LargeModelThreshold must be at least 1, got %d",
			ErrInvalidConfig, c.LargeModelThreshold)
	}
	if c.LayerCeiling < 1 {
		return fmt.Errorf("%w: LayerCeiling must be at least 1, got %d",
			ErrInvalidConfig, c.LayerCeiling)
	}
	if c.BuildTimeout <= 0 {
		return fmt.Errorf("%w: BuildTimeout must be positive, got %s",
			ErrInvalidConfig, c.BuildTimeout)
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("%w: SearchTimeout must be positive, got %s",
			ErrInvalidConfig, c.SearchTimeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: Workers must not be negative, got %d",
			ErrInvalidConfig, c.Workers)
	}
	if c.SynthesisAttempts < 1 {
		return fmt.Errorf("%w: SynthesisAttempts must be at least 1, got %d",
			ErrInvalidConfig, c.SynthesisAttempts)
	}
	if c.VerificationThreshold < 0 {
		return fmt.Errorf("%w: VerificationThreshold must not be negative, got %d",
			ErrInvalidConfig, c.VerificationThreshold)
	}
	if c.EmptyCombinationThreshold < 0 {
		return fmt.Errorf("%w: EmptyCombinationThreshold must not be negative, got %d",
			ErrInvalidConfig, c.EmptyCombinationThreshold)
	}
	if c.ClassificationChecks < 1 {
		return fmt.Errorf("%w: ClassificationChecks must be at least 1, got %d",
			ErrInvalidConfig, c.ClassificationChecks)
	}
	if c.MaxRestarts < 0 {
		return fmt.Errorf("%w: MaxRestarts must not be negative, got %d",
			ErrInvalidConfig, c.MaxRestarts)
	}
	return nil
}

// WithDefaults returns a new config with defaults applied for zero values.
// EnableClassification and RandomSeed are taken as given.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()
	if c.MaxIterations == 0 {
		c.MaxIterations = defaults.MaxIterations
	}
	if c.LargeModelThreshold == 0 {
		c.LargeModelThreshold = defaults.LargeModelThreshold
	}
	if c.LayerCeiling == 0 {
		c.LayerCeiling = defaults.LayerCeiling
	}
	if c.BuildTimeout == 0 {
		c.BuildTimeout = defaults.BuildTimeout
	}
	if c.SearchTimeout == 0 {
		c.SearchTimeout = defaults.SearchTimeout
	}
	if c.SynthesisAttempts == 0 {
		c.SynthesisAttempts = defaults.SynthesisAttempts
	}
	if c.VerificationThreshold == 0 {
		c.VerificationThreshold = defaults.VerificationThreshold
	}
	if c.EmptyCombinationThreshold == 0 {
		c.EmptyCombinationThreshold = defaults.EmptyCombinationThreshold
	}
	if c.ClassificationChecks == 0 {
		c.ClassificationChecks = defaults.ClassificationChecks
	}
	if c.MaxRestarts == 0 {
		c.MaxRestarts = defaults.MaxRestarts
	}
	return c
}

// DiscardThreshold returns the number of passing checks after which the
// given candidate is discarded.
func (c *Config) DiscardThreshold(candidate Combination) int {
	if candidate.IsEmpty() {
		return c.EmptyCombinationThreshold
	}
	return c.VerificationThreshold
}
