package domain

// Evaluation is the verdict for one candidate item within a step
type Evaluation struct {
	ItemID    string         `json:"itemId"`
	ItemLabel string         `json:"itemLabel"`
	Passed    bool           `json:"passed"`
	Score     *float64       `json:"score,omitempty"`
	Filters   []FilterResult `json:"filters,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  Metadata       `json:"metadata,omitempty"`
}

// EvaluationOptions holds the optional parts of an evaluation
type EvaluationOptions struct {
	Score    *float64
	Filters  []FilterResult
	Reason   string
	Metadata Metadata
}

// FilterResult is the verdict of one filter rule against one candidate
type FilterResult struct {
	FilterName    string `json:"filterName"`
	Passed        bool   `json:"passed"`
	Detail        string `json:"detail"`
	ActualValue   any    `json:"actualValue,omitempty"`
	ExpectedValue any    `json:"expectedValue,omitempty"`
}

// NewEvaluation builds an evaluation. passed is taken as given and is not
// derived from the filters; see AllFiltersPassed.
func NewEvaluation(itemID, itemLabel string, passed bool, opts EvaluationOptions) Evaluation {
	return Evaluation{
		ItemID:    itemID,
		ItemLabel: itemLabel,
		Passed:    passed,
		Score:     opts.Score,
		Filters:   opts.Filters,
		Reason:    opts.Reason,
		Metadata:  opts.Metadata,
	}.clone()
}

// NewFilterResult builds a filter verdict
func NewFilterResult(filterName string, passed bool, detail string, actual, expected any) FilterResult {
	return FilterResult{
		FilterName:    filterName,
		Passed:        passed,
		Detail:        detail,
		ActualValue:   actual,
		ExpectedValue: expected,
	}
}

// AllFiltersPassed reports whether every filter passed. An empty slice passes.
func AllFiltersPassed(filters []FilterResult) bool {
	for _, f := range filters {
		if !f.Passed {
			return false
		}
	}
	return true
}

// FailedFilters returns the names of the filters that did not pass, in order
func (e Evaluation) FailedFilters() []string {
	var names []string
	for _, f := range e.Filters {
		if !f.Passed {
			names = append(names, f.FilterName)
		}
	}
	return names
}

// Float64 is a helper for optional numeric fields
func Float64(v float64) *float64 {
	return &v
}

// Int64 is a helper for optional integer fields
func Int64(v int64) *int64 {
	return &v
}
