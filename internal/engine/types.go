package engine

import (
	"fmt"
	"time"

	"github.com/scrypster/recall/pkg/types"
)

// Config holds configuration for the memory engine.
type Config struct {
	// DefaultLimit is the result count when a retrieval names none (default: 20).
	DefaultLimit int

	// MaxLimit caps the result count of a retrieval (default: 100).
	MaxLimit int

	// RefreshTopK moves last_accessed forward for every returned result
	// (default: true). Disabling it freezes the decay clocks.
	RefreshTopK bool

	// RefreshTimeout bounds one asynchronous refresh write (default: 5s).
	RefreshTimeout time.Duration

	// DecayThreshold is the strength used for the predicted decay date
	// reported by Get (default: 0.1).
	DecayThreshold float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:   20,
		MaxLimit:       100,
		RefreshTopK:    true,
		RefreshTimeout: 5 * time.Second,
		DecayThreshold: 0.1,
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("default limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max limit %d is below default limit %d", c.MaxLimit, c.DefaultLimit)
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("refresh timeout must be positive, got %s", c.RefreshTimeout)
	}
	if c.DecayThreshold <= 0 || c.DecayThreshold > 1 {
		return fmt.Errorf("decay threshold must be in (0,1], got %v", c.DecayThreshold)
	}
	return nil
}

// RetrievalOptions are the optional filters of a retrieval. Score filters
// apply after scoring; categories narrow the load itself.
type RetrievalOptions struct {
	MinStrength   float64
	MinConfidence float64
	MinImportance float64
	Categories    []types.Category

	// Limit is the maximum number of results. Zero selects the default;
	// values above the configured maximum are capped.
	Limit int
}

// MemoryDetails is a single memory with its read-time decay figures.
type MemoryDetails struct {
	ScoredMemory

	// HalfLifeDays is nil for memories that never decay.
	HalfLifeDays *float64 `json:"half_life_days,omitempty"`

	// DecayDate is when strength reaches the configured threshold; nil when
	// it never does or lies beyond the prediction horizon.
	DecayDate *time.Time `json:"decay_date,omitempty"`
}
