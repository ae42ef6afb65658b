package risk

import "math"

// ConfidenceTier maps a minimum signal confidence to a maximum fraction of
// the account the sizer may allocate.
type ConfidenceTier struct {
	MinConfidence float64 `json:"min_confidence" mapstructure:"min_confidence"`
	MaxAllocation float64 `json:"max_allocation" mapstructure:"max_allocation"`
}

// KellyConfig holds the position-sizing policy for one run.
type KellyConfig struct {
	// BaseAllocation is the fixed notional ceiling per position. Kelly only
	// ever reduces exposure below it, never above.
	BaseAllocation float64 `json:"base_allocation" mapstructure:"base_allocation"`
	// Damping scales the raw Kelly fraction (0.5 = half-Kelly).
	Damping float64 `json:"damping" mapstructure:"damping"`
	// MinSampleSize is the smallest trade-return sample the estimator
	// trusts; below it DefaultFraction is used instead.
	MinSampleSize   int     `json:"min_sample_size" mapstructure:"min_sample_size"`
	DefaultFraction float64 `json:"default_fraction" mapstructure:"default_fraction"`
	// FallbackAllocation caps the fraction when confidence is below every
	// tier.
	ConfidenceTiers    []ConfidenceTier `json:"confidence_tiers" mapstructure:"confidence_tiers"`
	FallbackAllocation float64          `json:"fallback_allocation" mapstructure:"fallback_allocation"`
}

// DefaultKellyConfig returns half-Kelly sizing with the documented
// confidence tiers and a 5% conservative prior for thin samples.
func DefaultKellyConfig() KellyConfig {
	return KellyConfig{
		BaseAllocation:  1_000_000,
		Damping:         0.5,
		MinSampleSize:   10,
		DefaultFraction: 0.05,
		ConfidenceTiers: []ConfidenceTier{
			{MinConfidence: 0.8, MaxAllocation: 0.40},
			{MinConfidence: 0.6, MaxAllocation: 0.30},
		},
		FallbackAllocation: 0.20,
	}
}

// Sizer computes capped Kelly position sizes. It holds only configuration:
// every call operates on the sample it is handed, so no history leaks
// between unrelated computations.
type Sizer struct {
	cfg KellyConfig
}

// NewSizer creates a position sizer from the given policy.
func NewSizer(cfg KellyConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// MaxAllocation returns the confidence-tiered allocation cap.
func (s *Sizer) MaxAllocation(confidence float64) float64 {
	best := s.cfg.FallbackAllocation
	bestMin := -1.0
	for _, tier := range s.cfg.ConfidenceTiers {
		if confidence >= tier.MinConfidence && tier.MinConfidence > bestMin {
			best = tier.MaxAllocation
			bestMin = tier.MinConfidence
		}
	}
	return best
}

// Fraction estimates the damped, clamped Kelly fraction from a sample of
// historical net trade returns. Samples smaller than MinSampleSize fall
// back to DefaultFraction rather than trusting a noisy estimate.
func (s *Sizer) Fraction(returns []float64, confidence float64) float64 {
	maxAlloc := s.MaxAllocation(confidence)
	if len(returns) < s.cfg.MinSampleSize {
		return clamp(s.cfg.DefaultFraction, 0, maxAlloc)
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, r := range returns {
		if r > 0 {
			wins++
			winSum += r
		} else {
			losses++
			lossSum += -r
		}
	}
	if wins == 0 {
		return 0
	}

	winRate := float64(wins) / float64(len(returns))
	avgWin := winSum / float64(wins)
	avgLoss := 0.0
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	if avgWin <= 0 {
		return 0
	}

	kelly := (winRate*avgWin - (1-winRate)*avgLoss) / avgWin
	return clamp(kelly*s.cfg.Damping, 0, maxAlloc)
}

// RecommendCapital returns the notional capital to commit for one entry:
// min(base allocation, balance x damped Kelly fraction). Share quantity is
// entry-price dependent and left to the caller.
func (s *Sizer) RecommendCapital(returns []float64, confidence, balance float64) float64 {
	if balance <= 0 {
		return 0
	}
	frac := s.Fraction(returns, confidence)
	return math.Min(s.cfg.BaseAllocation, balance*frac)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
