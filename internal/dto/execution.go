package dto

import (
	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/workflow"
)

// ProductInput is a product as sent by API clients
type ProductInput struct {
	ASIN     *string  `json:"asin" validate:"required,min=1"`
	Title    *string  `json:"title" validate:"required,min=1"`
	Price    *float64 `json:"price" validate:"required,gt=0"`
	Rating   *float64 `json:"rating" validate:"required,gte=0,lte=5"`
	Reviews  *int     `json:"reviews" validate:"required,gte=0"`
	Category string   `json:"category,omitempty"`
}

// Product converts a validated input
func (p *ProductInput) Product() workflow.Product {
	return workflow.Product{
		ASIN:     *p.ASIN,
		Title:    *p.Title,
		Price:    *p.Price,
		Rating:   *p.Rating,
		Reviews:  *p.Reviews,
		Category: p.Category,
	}
}

// RunRequest is the body of POST /api/executions/run
type RunRequest struct {
	ReferenceProduct *ProductInput `json:"referenceProduct" validate:"required"`
}

// RunResponse is the result of a completed run
type RunResponse struct {
	ExecutionID domain.ExecutionID `json:"executionId"`
	Execution   *domain.Execution  `json:"execution"`
	StepsCount  int                `json:"stepsCount"`
}

// NewRunResponse builds the response for a finished run
func NewRunResponse(result *workflow.Result) RunResponse {
	return RunResponse{
		ExecutionID: result.Execution.ID,
		Execution:   result.Execution,
		StepsCount:  len(result.Steps),
	}
}

// ExportResponse acknowledges a queued export
type ExportResponse struct {
	ExecutionID domain.ExecutionID `json:"executionId"`
	Status      string             `json:"status"`
}
