// Package engine holds the decision layer of Recall: time-decayed memory
// relevance, entity identity matching, merge suggestions, identity edges and
// graph clustering. Everything in decay.go, jaro_winkler.go, match_scorer.go,
// cluster.go and graph_traversal.go is pure and safe for concurrent use.
package engine

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/scrypster/recall/pkg/types"
)

const (
	// importanceDampening is the largest fraction of the decay rate that
	// importance can remove. Importance 1.0 halves the rate.
	importanceDampening = 0.5

	// Relevance weights used by RankByRelevance.
	strengthWeight   = 0.5
	confidenceWeight = 0.3
	importanceWeight = 0.2

	// maxHorizonDays bounds PredictDecayDate so the result fits in a time.Time.
	maxHorizonDays = 100 * 365.0

	hoursPerDay = 24.0
)

var (
	// ErrNeverDecays is returned by HalfLife and PredictDecayDate when the
	// effective rate is zero: strength stays at 1 forever.
	ErrNeverDecays = errors.New("memory never decays")

	// ErrInvalidThreshold is returned by PredictDecayDate for thresholds
	// outside (0, 1].
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")

	// ErrBeyondHorizon is returned by PredictDecayDate when the predicted
	// date lies further out than maxHorizonDays.
	ErrBeyondHorizon = errors.New("decay date beyond prediction horizon")
)

// ScoredMemory pairs a memory with its read-time scores.
type ScoredMemory struct {
	Memory   *types.Memory `json:"memory"`
	Strength float64       `json:"strength"`
	Score    float64       `json:"score"`
}

// EffectiveRate returns the decay rate after importance dampening:
//
//	rate(category) * (1 - importance*0.5)
//
// The category table wins over the stored DecayRate. A memory with an
// unknown category falls back to its own DecayRate, which may be zero.
func EffectiveRate(m *types.Memory) float64 {
	if m == nil {
		return 0
	}
	base, ok := types.ProfileFor(m.Category)
	rate := base.DecayRate
	if !ok {
		rate = math.Max(m.DecayRate, 0)
	}
	return rate * (1 - clamp01(m.Importance)*importanceDampening)
}

// CalculateStrength returns the relevance of m at now, in [0,1].
//
// A hard expiry in the past yields 0. Otherwise strength is
// exp(-effectiveRate * daysSinceAccess), where days are counted from the last
// access or, if the memory was never accessed, from its source date. A zero
// effective rate means the memory never decays and always scores 1.
func CalculateStrength(m *types.Memory, now time.Time) float64 {
	if m == nil {
		return 0
	}
	if m.ExpiresAt != nil && now.After(*m.ExpiresAt) {
		return 0
	}

	rate := EffectiveRate(m)
	if rate == 0 {
		return 1
	}

	days := now.Sub(m.ReferenceDate()).Hours() / hoursPerDay
	if days < 0 {
		days = 0
	}
	return clamp01(math.Exp(-rate * days))
}

// RelevanceScore combines strength, confidence and importance:
// strength*0.5 + confidence*0.3 + importance*0.2.
func RelevanceScore(m *types.Memory, strength float64) float64 {
	return strength*strengthWeight +
		clamp01(m.Confidence)*confidenceWeight +
		clamp01(m.Importance)*importanceWeight
}

// Score computes the read-time scores of a single memory.
func Score(m *types.Memory, now time.Time) ScoredMemory {
	strength := CalculateStrength(m, now)
	return ScoredMemory{
		Memory:   m,
		Strength: strength,
		Score:    RelevanceScore(m, strength),
	}
}

// RankByRelevance scores every memory and returns them ordered by relevance,
// highest first. Ties are broken by ID so the order is total.
func RankByRelevance(memories []*types.Memory, now time.Time) []ScoredMemory {
	scored := make([]ScoredMemory, 0, len(memories))
	for _, m := range memories {
		if m == nil {
			continue
		}
		scored = append(scored, Score(m, now))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return rankedBefore(scored[i], scored[j])
	})
	return scored
}

func rankedBefore(a, b ScoredMemory) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Memory.ID < b.Memory.ID
}

// FilterByStrength keeps the memories whose strength at now is >= minStrength.
func FilterByStrength(memories []*types.Memory, minStrength float64, now time.Time) []*types.Memory {
	out := make([]*types.Memory, 0, len(memories))
	for _, m := range memories {
		if m == nil {
			continue
		}
		if CalculateStrength(m, now) >= minStrength {
			out = append(out, m)
		}
	}
	return out
}

// HalfLife returns the number of days for strength to halve from the last
// access baseline: ln(2) / effectiveRate.
func HalfLife(m *types.Memory) (float64, error) {
	rate := EffectiveRate(m)
	if rate == 0 {
		return 0, ErrNeverDecays
	}
	return math.Ln2 / rate, nil
}

// PredictDecayDate returns when strength will fall to threshold:
// referenceDate + (-ln(threshold) / effectiveRate) days.
func PredictDecayDate(m *types.Memory, threshold float64) (time.Time, error) {
	if threshold <= 0 || threshold > 1 || math.IsNaN(threshold) {
		return time.Time{}, ErrInvalidThreshold
	}
	rate := EffectiveRate(m)
	if rate == 0 {
		return time.Time{}, ErrNeverDecays
	}

	days := -math.Log(threshold) / rate
	if days > maxHorizonDays {
		return time.Time{}, ErrBeyondHorizon
	}
	return m.ReferenceDate().Add(time.Duration(days * hoursPerDay * float64(time.Hour))), nil
}

// Refresh resets the decay clock of m by setting LastAccessed to now.
// It mutates m; persisting the change is the caller's job.
func Refresh(m *types.Memory, now time.Time) {
	if m == nil {
		return
	}
	t := now
	m.LastAccessed = &t
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
