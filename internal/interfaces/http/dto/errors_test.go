package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{"ITEM_NOT_FOUND", http.StatusNotFound},
		{"INVALID_TRANSITION", http.StatusUnprocessableEntity},
		{"QUANTITY_EXCEEDS_SENT", http.StatusUnprocessableEntity},
		{"INCOMPLETE_RECONCILIATION", http.StatusUnprocessableEntity},
		{"MISSING_PAYMENT_METHOD", http.StatusUnprocessableEntity},
		{"EXTERNAL_DEPENDENCY_FAILURE", http.StatusBadGateway},
		{"CONCURRENT_MODIFICATION", http.StatusConflict},
		{"SALE_ALREADY_CREATED", http.StatusConflict},
		{"INVALID_CUSTOMER", http.StatusBadRequest},
		{"SOMETHING_NOBODY_MAPPED", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Shipment not found", "req-123")

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Shipment not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "customer_id", Message: "required"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-456", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "customer_id", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 41, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
