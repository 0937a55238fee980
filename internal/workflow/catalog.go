package workflow

import "context"

// Product is a catalogue item
type Product struct {
	ASIN     string  `json:"asin" validate:"required"`
	Title    string  `json:"title" validate:"required"`
	Price    float64 `json:"price" validate:"gt=0"`
	Rating   float64 `json:"rating" validate:"gte=0,lte=5"`
	Reviews  int     `json:"reviews" validate:"gte=0"`
	Category string  `json:"category,omitempty"`
}

// SearchResult is one page of candidates for a keyword
type SearchResult struct {
	TotalResults int
	Candidates   []Product
}

// CandidateSource finds candidate products for a keyword
type CandidateSource interface {
	Search(ctx context.Context, keyword string, limit int) (SearchResult, error)
}

// ReferenceProduct is the demo product competitors are searched for
var ReferenceProduct = Product{
	ASIN:     "B0XYZ123",
	Title:    "Stainless Steel Water Bottle 32oz Insulated",
	Price:    29.99,
	Rating:   4.2,
	Reviews:  1247,
	Category: "Sports & Outdoors",
}

var demoCandidates = []Product{
	{ASIN: "B0COMP01", Title: "HydroFlask 32oz Wide Mouth Water Bottle", Price: 44.99, Rating: 4.5, Reviews: 8932},
	{ASIN: "B0COMP02", Title: "Yeti Rambler 26oz Bottle", Price: 34.99, Rating: 4.4, Reviews: 5621},
	{ASIN: "B0COMP03", Title: "Generic Water Bottle 24oz", Price: 8.99, Rating: 3.2, Reviews: 45},
	{ASIN: "B0COMP04", Title: "Bottle Cleaning Brush Set", Price: 12.99, Rating: 4.6, Reviews: 3421},
	{ASIN: "B0COMP05", Title: "Stanley Adventure Quencher 30oz", Price: 35.00, Rating: 4.3, Reviews: 4102},
	{ASIN: "B0COMP06", Title: "Premium Titanium Water Bottle", Price: 89.00, Rating: 4.8, Reviews: 234},
	{ASIN: "B0COMP07", Title: "Contigo AUTOSEAL Water Bottle 32oz", Price: 19.99, Rating: 4.2, Reviews: 2156},
	{ASIN: "B0COMP08", Title: "Nalgene Wide Mouth Bottle 32oz", Price: 14.99, Rating: 4.6, Reviews: 7834},
	{ASIN: "B0COMP09", Title: "CamelBak Chute Mag 32oz", Price: 18.99, Rating: 4.4, Reviews: 3567},
	{ASIN: "B0COMP10", Title: "Klean Kanteen Insulated 32oz", Price: 39.99, Rating: 4.5, Reviews: 1892},
}

// StaticCatalog returns the same candidates for every keyword
type StaticCatalog struct {
	candidates   []Product
	totalResults int
}

// NewStaticCatalog creates a catalogue over candidates. With no candidates
// the demo catalogue is used.
func NewStaticCatalog(candidates ...Product) *StaticCatalog {
	if len(candidates) == 0 {
		return &StaticCatalog{candidates: demoCandidates, totalResults: 2847}
	}
	return &StaticCatalog{candidates: candidates, totalResults: len(candidates)}
}

// Search returns up to limit candidates
func (c *StaticCatalog) Search(ctx context.Context, _ string, limit int) (SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}
	found := c.candidates
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]Product, len(found))
	copy(out, found)
	return SearchResult{TotalResults: c.totalResults, Candidates: out}, nil
}
