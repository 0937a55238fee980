package workflow

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/decisionxray/xray/internal/domain"
)

// Step types recorded by CompetitorSelection
const (
	StepTypeKeywordGeneration = "keyword_generation"
	StepTypeCandidateSearch   = "candidate_search"
	StepTypeApplyFilters      = "apply_filters"
	StepTypeRankAndSelect     = "rank_and_select"
)

// Filter names used in evaluations
const (
	FilterPriceRange = "price_range"
	FilterMinRating  = "min_rating"
	FilterMinReviews = "min_reviews"
)

const searchLimit = 50

// ErrNoQualifiedCandidates is returned by the ranking stage when every
// candidate was filtered out
var ErrNoQualifiedCandidates = errors.New("no candidates passed the filters")

// CandidateScores is the ranking breakdown of one candidate
type CandidateScores struct {
	ReviewCountScore    float64 `json:"review_count_score"`
	RatingScore         float64 `json:"rating_score"`
	PriceProximityScore float64 `json:"price_proximity_score"`
	TotalScore          float64 `json:"total_score"`
}

// RankedCandidate is a qualified candidate with its rank and scores
type RankedCandidate struct {
	Rank int `json:"rank"`
	Product
	Scores CandidateScores `json:"scores"`
}

// CompetitorSelection finds the best competitor for a reference product
type CompetitorSelection struct {
	driver   *Driver
	source   CandidateSource
	criteria Criteria
}

// NewCompetitorSelection creates the pipeline
func NewCompetitorSelection(driver *Driver, source CandidateSource, criteria Criteria) *CompetitorSelection {
	return &CompetitorSelection{
		driver:   driver,
		source:   source,
		criteria: criteria,
	}
}

// Run executes the pipeline for ref
func (c *CompetitorSelection) Run(ctx context.Context, ref Product) (*Result, error) {
	run := &competitorRun{ref: ref, source: c.source, criteria: c.criteria}

	input := domain.CreateExecutionInput{
		Name:        "Competitor Product Selection",
		Description: "Find best competitor for: " + ref.Title,
		Metadata:    domain.Metadata{"referenceAsin": ref.ASIN},
	}
	return c.driver.Run(ctx, input, run.stages(), run.summary)
}

// competitorRun holds the state passed between the stages of one run
type competitorRun struct {
	ref      Product
	source   CandidateSource
	criteria Criteria

	keywords   []string
	candidates []Product
	qualified  []Product
	selected   *RankedCandidate
}

func (r *competitorRun) stages() []Stage {
	return []Stage{
		{Name: StepTypeKeywordGeneration, Run: r.generateKeywords},
		{Name: StepTypeCandidateSearch, Run: r.searchCandidates},
		{Name: StepTypeApplyFilters, Run: r.applyFilters},
		{Name: StepTypeRankAndSelect, Run: r.rankAndSelect},
	}
}

func (r *competitorRun) summary() domain.Metadata {
	if r.selected == nil {
		return nil
	}
	return domain.Metadata{"selectedCompetitor": r.selected.Product}
}

func (r *competitorRun) generateKeywords(_ context.Context, executionID domain.ExecutionID) (*domain.Step, error) {
	start := time.Now()
	r.keywords = GenerateKeywords(r.ref.Title)

	category := r.ref.Category
	if category == "" {
		category = "Unknown"
	}

	return domain.RecordStep(domain.RecordStepInput{
		ExecutionID: executionID,
		Name:        "Generate Keywords",
		StepType:    StepTypeKeywordGeneration,
		Input: map[string]any{
			"product_title": r.ref.Title,
			"category":      category,
		},
		Output: map[string]any{
			"keywords": r.keywords,
		},
		Reasoning:  fmt.Sprintf("Extracted key product attributes from title. Generated %d keyword variations.", len(r.keywords)),
		DurationMs: elapsedMs(start),
	}), nil
}

func (r *competitorRun) searchCandidates(ctx context.Context, executionID domain.ExecutionID) (*domain.Step, error) {
	start := time.Now()

	keyword := strings.ToLower(r.ref.Title)
	if len(r.keywords) > 0 && r.keywords[0] != "" {
		keyword = r.keywords[0]
	}

	result, err := r.source.Search(ctx, keyword, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("candidate search: %w", err)
	}
	r.candidates = result.Candidates

	return domain.RecordStep(domain.RecordStepInput{
		ExecutionID: executionID,
		Name:        "Search Candidates",
		StepType:    StepTypeCandidateSearch,
		Input: map[string]any{
			"keyword": keyword,
			"limit":   searchLimit,
		},
		Output: map[string]any{
			"total_results":      result.TotalResults,
			"candidates_fetched": len(result.Candidates),
			"candidates":         result.Candidates,
		},
		Reasoning:  fmt.Sprintf("Fetched top %d results by relevance; %d total matches found.", len(result.Candidates), result.TotalResults),
		DurationMs: elapsedMs(start),
	}), nil
}

func (r *competitorRun) applyFilters(_ context.Context, executionID domain.ExecutionID) (*domain.Step, error) {
	start := time.Now()
	priceMin := r.ref.Price * r.criteria.PriceMinRatio
	priceMax := r.ref.Price * r.criteria.PriceMaxRatio

	evaluations := make([]domain.Evaluation, 0, len(r.candidates))
	r.qualified = r.qualified[:0]
	for _, candidate := range r.candidates {
		eval := EvaluateCandidate(r.ref, candidate, r.criteria)
		if eval.Passed {
			r.qualified = append(r.qualified, candidate)
		}
		evaluations = append(evaluations, eval)
	}

	return domain.RecordStep(domain.RecordStepInput{
		ExecutionID: executionID,
		Name:        "Apply Filters",
		StepType:    StepTypeApplyFilters,
		Input: map[string]any{
			"candidates_count":  len(r.candidates),
			"reference_product": r.ref,
		},
		Output: map[string]any{
			"total_evaluated":      len(r.candidates),
			"passed":               len(r.qualified),
			"failed":               len(r.candidates) - len(r.qualified),
			"qualified_candidates": slices.Clone(r.qualified),
		},
		Reasoning: fmt.Sprintf("Applied price range (%.2f-%.2f), rating (>=%g), and review count (>=%d) filters.",
			priceMin, priceMax, r.criteria.MinRating, r.criteria.MinReviews),
		Evaluations: evaluations,
		DurationMs:  elapsedMs(start),
		Metadata: domain.Metadata{
			"filters_applied": map[string]any{
				FilterPriceRange: map[string]any{
					"min":  priceMin,
					"max":  priceMax,
					"rule": fmt.Sprintf("%gx - %gx of reference price", r.criteria.PriceMinRatio, r.criteria.PriceMaxRatio),
				},
				FilterMinRating: map[string]any{
					"value": r.criteria.MinRating,
					"rule":  fmt.Sprintf("Must be at least %g stars", r.criteria.MinRating),
				},
				FilterMinReviews: map[string]any{
					"value": r.criteria.MinReviews,
					"rule":  fmt.Sprintf("Must have at least %d reviews", r.criteria.MinReviews),
				},
			},
		},
	}), nil
}

func (r *competitorRun) rankAndSelect(_ context.Context, executionID domain.ExecutionID) (*domain.Step, error) {
	start := time.Now()
	if len(r.qualified) == 0 {
		return nil, ErrNoQualifiedCandidates
	}

	ranked := RankCandidates(r.ref, r.qualified, r.criteria)
	r.selected = &ranked[0]

	evaluations := make([]domain.Evaluation, 0, len(ranked))
	for _, c := range ranked {
		reason := fmt.Sprintf("ranked #%d of %d", c.Rank, len(ranked))
		if c.Rank == 1 {
			reason = "selected: highest total score"
		}
		evaluations = append(evaluations, domain.NewEvaluation(c.ASIN, c.Title, c.Rank == 1, domain.EvaluationOptions{
			Score:  domain.Float64(c.Scores.TotalScore),
			Reason: reason,
		}))
	}

	return domain.RecordStep(domain.RecordStepInput{
		ExecutionID: executionID,
		Name:        "Rank and Select",
		StepType:    StepTypeRankAndSelect,
		Input: map[string]any{
			"candidates_count":  len(r.qualified),
			"reference_product": r.ref,
		},
		Output: map[string]any{
			"ranked_candidates":   ranked,
			"selected_competitor": r.selected.Product,
		},
		Reasoning: fmt.Sprintf("Ranked %d candidates using weighted scoring: review count (%.0f%%), rating (%.0f%%), price proximity (%.0f%%). Selected %q with highest score.",
			len(ranked), r.criteria.ReviewWeight*100, r.criteria.RatingWeight*100, r.criteria.PriceWeight*100, r.selected.Title),
		Evaluations: evaluations,
		DurationMs:  elapsedMs(start),
		Metadata: domain.Metadata{
			"ranking_criteria": map[string]any{
				"primary":   "review_count",
				"secondary": "rating",
				"tertiary":  "price_proximity",
				"weights": map[string]float64{
					"reviews": r.criteria.ReviewWeight,
					"rating":  r.criteria.RatingWeight,
					"price":   r.criteria.PriceWeight,
				},
			},
		},
	}), nil
}

// GenerateKeywords builds search phrases from the words of a title that are
// longer than three characters
func GenerateKeywords(title string) []string {
	var words []string
	for _, w := range strings.Split(strings.ToLower(title), " ") {
		if utf8.RuneCountInString(w) > 3 {
			words = append(words, w)
		}
	}
	return []string{
		strings.Join(words[:min(3, len(words))], " "),
		strings.Join(words[:min(4, len(words))], " "),
	}
}

// EvaluateCandidate checks a candidate against every filter. The evaluation
// passes only when all of its filters pass.
func EvaluateCandidate(ref, candidate Product, criteria Criteria) domain.Evaluation {
	priceMin := ref.Price * criteria.PriceMinRatio
	priceMax := ref.Price * criteria.PriceMaxRatio

	var priceDetail string
	priceOK := candidate.Price >= priceMin && candidate.Price <= priceMax
	switch {
	case priceOK:
		priceDetail = fmt.Sprintf("$%.2f is within $%.2f-$%.2f", candidate.Price, priceMin, priceMax)
	case candidate.Price < priceMin:
		priceDetail = fmt.Sprintf("$%.2f is below minimum $%.2f", candidate.Price, priceMin)
	default:
		priceDetail = fmt.Sprintf("$%.2f is above maximum $%.2f", candidate.Price, priceMax)
	}

	ratingOK := candidate.Rating >= criteria.MinRating
	ratingDetail := fmt.Sprintf("%.1f★ < %g★ threshold", candidate.Rating, criteria.MinRating)
	if ratingOK {
		ratingDetail = fmt.Sprintf("%.1f★ >= %g★ threshold", candidate.Rating, criteria.MinRating)
	}

	reviewsOK := candidate.Reviews >= criteria.MinReviews
	reviewsDetail := fmt.Sprintf("%d < %d minimum", candidate.Reviews, criteria.MinReviews)
	if reviewsOK {
		reviewsDetail = fmt.Sprintf("%d >= %d minimum", candidate.Reviews, criteria.MinReviews)
	}

	filters := []domain.FilterResult{
		domain.NewFilterResult(FilterPriceRange, priceOK, priceDetail,
			candidate.Price, map[string]float64{"min": priceMin, "max": priceMax}),
		domain.NewFilterResult(FilterMinRating, ratingOK, ratingDetail, candidate.Rating, criteria.MinRating),
		domain.NewFilterResult(FilterMinReviews, reviewsOK, reviewsDetail, candidate.Reviews, criteria.MinReviews),
	}

	return domain.NewEvaluation(candidate.ASIN, candidate.Title, domain.AllFiltersPassed(filters), domain.EvaluationOptions{
		Filters: filters,
		Metadata: domain.Metadata{
			"price":   candidate.Price,
			"rating":  candidate.Rating,
			"reviews": candidate.Reviews,
		},
	})
}

// ScoreCandidate computes the weighted ranking score of a candidate.
// maxReviews is the highest review count among the candidates being ranked.
func ScoreCandidate(ref, candidate Product, maxReviews int, criteria Criteria) CandidateScores {
	var reviewScore float64
	if maxReviews > 0 {
		reviewScore = float64(candidate.Reviews) / float64(maxReviews)
	}
	ratingScore := candidate.Rating / 5.0

	var priceScore float64
	if ref.Price > 0 {
		priceScore = 1 - math.Abs(candidate.Price-ref.Price)/ref.Price
	}

	return CandidateScores{
		ReviewCountScore:    reviewScore,
		RatingScore:         ratingScore,
		PriceProximityScore: priceScore,
		TotalScore: reviewScore*criteria.ReviewWeight +
			ratingScore*criteria.RatingWeight +
			priceScore*criteria.PriceWeight,
	}
}

// RankCandidates scores candidates and orders them best first. Ties keep
// the input order.
func RankCandidates(ref Product, candidates []Product, criteria Criteria) []RankedCandidate {
	maxReviews := 0
	for _, c := range candidates {
		maxReviews = max(maxReviews, c.Reviews)
	}

	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, RankedCandidate{
			Product: c,
			Scores:  ScoreCandidate(ref, c, maxReviews, criteria),
		})
	}
	slices.SortStableFunc(ranked, func(a, b RankedCandidate) int {
		return cmp.Compare(b.Scores.TotalScore, a.Scores.TotalScore)
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func elapsedMs(start time.Time) *int64 {
	return domain.Int64(time.Since(start).Milliseconds())
}
