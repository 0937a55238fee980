package workflow

import "github.com/decisionxray/xray/internal/config"

// Criteria holds the filter thresholds and ranking weights
type Criteria struct {
	PriceMinRatio float64
	PriceMaxRatio float64
	MinRating     float64
	MinReviews    int
	ReviewWeight  float64
	RatingWeight  float64
	PriceWeight   float64
}

// DefaultCriteria returns the standard thresholds: price within 0.5x-2x of
// the reference, at least 3.8 stars and 100 reviews, ranked 50/30/20 on
// reviews, rating and price proximity.
func DefaultCriteria() Criteria {
	return Criteria{
		PriceMinRatio: 0.5,
		PriceMaxRatio: 2.0,
		MinRating:     3.8,
		MinReviews:    100,
		ReviewWeight:  0.5,
		RatingWeight:  0.3,
		PriceWeight:   0.2,
	}
}

// CriteriaFromConfig builds criteria from configuration
func CriteriaFromConfig(cfg config.WorkflowConfig) Criteria {
	return Criteria{
		PriceMinRatio: cfg.PriceMinRatio,
		PriceMaxRatio: cfg.PriceMaxRatio,
		MinRating:     cfg.MinRating,
		MinReviews:    cfg.MinReviews,
		ReviewWeight:  cfg.ReviewWeight,
		RatingWeight:  cfg.RatingWeight,
		PriceWeight:   cfg.PriceWeight,
	}
}
