package config

import "time"

// GCConfig tunes the background sweep that reclaims expired keys nobody reads
type GCConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	SamplesPerCheck int           `mapstructure:"samples_per_check"` // keys with a TTL inspected per round
	MatchThreshold  float64       `mapstructure:"match_threshold"`   // expired/inspected ratio that repeats a round at once
}

// DefaultGCConfig returns the sweep parameters used when the config leaves them out.
// Expired keys are evicted lazily on access, so the sweep is off unless enabled
func DefaultGCConfig() GCConfig {
	return GCConfig{
		Enabled:         false,
		Interval:        100 * time.Millisecond,
		SamplesPerCheck: 20,
		MatchThreshold:  0.25,
	}
}
