package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ASIN  *string  `json:"asin" validate:"required"`
	Price *float64 `json:"price" validate:"required,gt=0"`
	Note  string   `json:"-" validate:"max=3"`
}

type request struct {
	Item *item `json:"item" validate:"required"`
}

func ptr[T any](v T) *T { return &v }

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		input  request
		fields []string
		first  string
	}{
		{
			name:   "missing nested struct",
			input:  request{},
			fields: []string{"item"},
			first:  "item is required",
		},
		{
			name:   "missing nested field",
			input:  request{Item: &item{Price: ptr(1.0)}},
			fields: []string{"item.asin"},
			first:  "item.asin is required",
		},
		{
			name:   "out of range",
			input:  request{Item: &item{ASIN: ptr("A"), Price: ptr(0.0)}},
			fields: []string{"item.price"},
			first:  "item.price must be greater than 0",
		},
		{
			name:  "valid",
			input: request{Item: &item{ASIN: ptr("A"), Price: ptr(2.5)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			errs := err.(ValidationErrors)
			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
			assert.Equal(t, tt.first, errs.First())
		})
	}
}

func TestValidate_IgnoredJSONName(t *testing.T) {
	err := Validate(item{ASIN: ptr("A"), Price: ptr(1.0), Note: "toolong"})
	require.Error(t, err)
	assert.Equal(t, "Note", err.(ValidationErrors)[0].Field)
}

func TestValidate_NotAStruct(t *testing.T) {
	err := Validate(42)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Message: "is required"},
		{Field: "b", Message: "must be at least 1"},
	}
	assert.Equal(t, "a: is required; b: must be at least 1", errs.Error())
	assert.Empty(t, ValidationErrors{}.First())
}
