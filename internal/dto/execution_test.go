package dto

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/workflow"
)

func TestProductInput_Product(t *testing.T) {
	asin, title := "B0XYZ123", "Bottle"
	price, rating, reviews := 29.99, 4.2, 1247
	in := ProductInput{ASIN: &asin, Title: &title, Price: &price, Rating: &rating, Reviews: &reviews}

	assert.Equal(t, workflow.Product{
		ASIN: "B0XYZ123", Title: "Bottle", Price: 29.99, Rating: 4.2, Reviews: 1247,
	}, in.Product())
}

func TestParseAndValidate(t *testing.T) {
	app := fiber.New()
	app.Post("/run", func(c *fiber.Ctx) error {
		var req RunRequest
		if err := ParseAndValidate(c, &req); err != nil {
			appErr := apperrors.GetAppError(err)
			return c.Status(appErr.StatusCode).JSON(fiber.Map{
				"success": false,
				"error":   appErr.Message,
				"details": appErr.Details,
			})
		}
		return c.JSON(req.ReferenceProduct.Product())
	})

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{
			name:   "valid",
			body:   `{"referenceProduct":{"asin":"A","title":"T","price":10,"rating":0,"reviews":0}}`,
			status: http.StatusOK,
		},
		{
			name:   "missing product",
			body:   `{}`,
			status: http.StatusBadRequest,
			want:   `"error":"referenceProduct is required"`,
		},
		{
			name:   "missing field",
			body:   `{"referenceProduct":{"asin":"A","title":"T","price":10,"rating":4}}`,
			status: http.StatusBadRequest,
			want:   `"details":{"referenceProduct.reviews":"is required"},"error":"referenceProduct.reviews is required"`,
		},
		{
			name:   "malformed",
			body:   `{"referenceProduct":`,
			status: http.StatusBadRequest,
			want:   `"success":false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.want != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), tt.want)
			}
		})
	}
}
