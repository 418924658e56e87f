package salesbridge

import "errors"

var (
	// ErrBridgeUnavailable indicates the downstream service could not be reached
	ErrBridgeUnavailable = errors.New("salesbridge: service unavailable")

	// ErrBridgeRequestFailed indicates the downstream service rejected the request
	ErrBridgeRequestFailed = errors.New("salesbridge: request failed")

	// ErrBridgeInvalidResponse indicates the downstream response could not be parsed
	ErrBridgeInvalidResponse = errors.New("salesbridge: invalid response")
)
