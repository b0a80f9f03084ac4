// Package api provides the canonical response envelope shared across
// api/handlers.
package api

import "time"

// =============================================================================
// Envelope Types
// =============================================================================

// Response is the canonical envelope every handler in api/handlers wraps
// its JSON output in: Data on success, Error on failure, never both.
// @Description Canonical API response envelope
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo is the structured error carried by Response.Error.
// @Description Structured error information
type ErrorInfo struct {
	Code       string `json:"code" example:"INVALID_REQUEST"`
	Message    string `json:"message" example:"Invalid request parameters"`
	HTTPStatus int    `json:"http_status,omitempty" example:"400"`
	Retryable  bool   `json:"retryable,omitempty" example:"false"`
}
