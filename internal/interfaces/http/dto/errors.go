package dto

import "net/http"

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeValidation is the base code for request validation errors
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeDuplicateRequest is used when an idempotency key was already consumed
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Domain rule violations map to 422, conflicts to 409 and a failing
// downstream dependency to 502 so clients can tell a retryable outage
// apart from a rejected request.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,

	ErrCodeNotFound:  http.StatusNotFound,
	"ITEM_NOT_FOUND": http.StatusNotFound,

	"ALREADY_EXISTS":          http.StatusConflict,
	"CONCURRENT_MODIFICATION": http.StatusConflict,
	"CONCURRENCY_CONFLICT":    http.StatusConflict,
	"SALE_ALREADY_CREATED":    http.StatusConflict,
	ErrCodeDuplicateRequest:   http.StatusConflict,

	// Input shape errors
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_SHIPMENT_NUMBER": http.StatusBadRequest,
	"INVALID_CUSTOMER":        http.StatusBadRequest,
	"INVALID_ADDRESS":         http.StatusBadRequest,
	"INVALID_PRODUCT":         http.StatusBadRequest,
	"INVALID_PRODUCT_NAME":    http.StatusBadRequest,
	"INVALID_PRICE":           http.StatusBadRequest,
	"INVALID_REASON":          http.StatusBadRequest,

	// Business rule violations
	"INVALID_STATE":             http.StatusUnprocessableEntity,
	"INVALID_TRANSITION":        http.StatusUnprocessableEntity,
	"INVALID_QUANTITY":          http.StatusUnprocessableEntity,
	"QUANTITY_EXCEEDS_SENT":     http.StatusUnprocessableEntity,
	"INCOMPLETE_RECONCILIATION": http.StatusUnprocessableEntity,
	"MISSING_PAYMENT_METHOD":    http.StatusUnprocessableEntity,
	"DUPLICATE_ITEM":            http.StatusUnprocessableEntity,
	"NO_ITEMS":                  http.StatusUnprocessableEntity,

	// Downstream failures
	"EXTERNAL_DEPENDENCY_FAILURE": http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
