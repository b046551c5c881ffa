// Package errors provides coded errors for the hub's backend calls.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Backend errors
	CodeBackendUnavailable  Code = "BACKEND_UNAVAILABLE"
	CodeBackendUnauthorized Code = "BACKEND_UNAUTHORIZED"
	CodeBackendNotFound     Code = "BACKEND_NOT_FOUND"
	CodeBackendBadResponse  Code = "BACKEND_BAD_RESPONSE"

	// Session errors
	CodeSessionTokenInvalid Code = "SESSION_TOKEN_INVALID"
	CodeSessionUserMissing  Code = "SESSION_USER_MISSING"
)

// CodeForHTTPStatus classifies a backend HTTP status. 2xx maps to "".
func CodeForHTTPStatus(status int) Code {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return CodeBackendUnauthorized
	case status == http.StatusNotFound:
		return CodeBackendNotFound
	case status == http.StatusTooManyRequests, status >= 500:
		return CodeBackendUnavailable
	default:
		return CodeBackendBadResponse
	}
}

// Retryable reports whether a later attempt may succeed without user action.
func (c Code) Retryable() bool {
	return c == CodeBackendUnavailable
}
