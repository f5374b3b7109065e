// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scoring

import (
	"sort"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
)

// PercentileRater converts a raw importance score into a discrete 1-5 star
// rating relative to the project's current score population.
//
// The rater must always be invoked with the full current population:
// ratings are derived values and change retroactively as the population
// evolves. Calling it with a stale subset produces ratings inconsistent
// with a full recompute.
type PercentileRater struct {
	cfg config.RatingConfig
}

// NewPercentileRater creates a rater with the given percentile cutoffs
func NewPercentileRater(cfg config.RatingConfig) *PercentileRater {
	return &PercentileRater{cfg: cfg}
}

// Rate returns a star rating in {1..5} for rawScore against population.
// Small populations fall back to absolute cold-start thresholds since
// percentiles over a handful of samples are meaningless.
func (r *PercentileRater) Rate(rawScore float64, population []float64) int {
	if len(population) < r.cfg.ColdStartSize {
		return coldStartRating(rawScore)
	}

	sorted := make([]float64, len(population))
	copy(sorted, population)
	sort.Float64s(sorted)

	// Ties at a cutoff round up (inclusive >=), so several turns can
	// share the top rating.
	switch {
	case rawScore >= cutoff(sorted, r.cfg.P5):
		return 5
	case rawScore >= cutoff(sorted, r.cfg.P4):
		return 4
	case rawScore >= cutoff(sorted, r.cfg.P3):
		return 3
	case rawScore >= cutoff(sorted, r.cfg.P2):
		return 2
	default:
		return 1
	}
}

// cutoff returns the population value at percentile p of the ascending
// sorted slice
func cutoff(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// coldStartRating applies fixed absolute thresholds for small populations
func coldStartRating(rawScore float64) int {
	switch {
	case rawScore >= 0.8:
		return 5
	case rawScore >= 0.6:
		return 4
	case rawScore >= 0.4:
		return 3
	case rawScore >= 0.2:
		return 2
	default:
		return 1
	}
}
