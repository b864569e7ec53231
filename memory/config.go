package memory

import "math"

// Config holds the scoring and recall constants for a memory service.
// The defaults are the values the agent has always shipped with; changing
// GraceDays or HalfLifeDays changes how fast old memories fade.
type Config struct {
	// ScoreThreshold is the minimum judgment score worth persisting.
	// Default: 7.
	ScoreThreshold int

	// GraceDays is how long a memory keeps full weight. Default: 30.
	GraceDays int

	// HalfLifeDays is how many days past the grace period halve a
	// memory's weight. Default: 30.
	HalfLifeDays int

	// MaxRecall is the default number of memories returned per recall.
	// Default: 3.
	MaxRecall int

	// ProfileMinScore is the minimum stored score that counts toward a
	// user profile. Default: 8.
	ProfileMinScore int

	// ProfileLimit caps how many records feed one profile. Default: 20.
	ProfileLimit int

	// ProfileTags is how many top tags a profile reports. Default: 5.
	ProfileTags int
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		ScoreThreshold:  7,
		GraceDays:       30,
		HalfLifeDays:    30,
		MaxRecall:       3,
		ProfileMinScore: 8,
		ProfileLimit:    20,
		ProfileTags:     5,
	}
}

// Decay returns the time discount for a memory of the given age: 1.0 inside
// the grace period, then an exponential half-life anchored at the end of the
// grace period (with defaults, weight halves every 30 days past day 30).
func (c *Config) Decay(ageDays int) float64 {
	if ageDays <= c.GraceDays {
		return 1.0
	}
	return math.Pow(0.5, float64(ageDays-c.GraceDays)/float64(c.HalfLifeDays))
}

// Value normalizes a stored 1-10 judgment score to [0.1, 1.0].
func Value(score int) float64 {
	return float64(score) / 10
}
