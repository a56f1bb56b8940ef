package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ErrorCode classifies a failure independently of the operation that produced it.
// Codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates the folder, session or endpoint does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates a file with the same name already exists in the folder.
	CodeConflict ErrorCode = "CONFLICT"

	// Permission errors.

	// CodeUnauthorized indicates the request lacks valid authentication credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the authenticated user lacks permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeIntegrity indicates a digest or part-count check failed.
	CodeIntegrity ErrorCode = "INTEGRITY_CHECK_FAILED"

	// Infrastructure errors.

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the rate limit has been exceeded.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeUnavailable indicates the service is temporarily unavailable.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// System errors.

	// CodeCanceled indicates the operation was canceled or aborted by the caller.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeInternal indicates the service reported an internal error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf classifies err. Service errors are classified by HTTP status,
// everything else by the sentinel or standard error it wraps.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var svc *ServiceError
	if errors.As(err, &svc) {
		return codeForStatus(svc.StatusCode)
	}

	switch {
	case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptySource):
		return CodeInvalidInput
	case errors.Is(err, ErrDigestMismatch), errors.Is(err, ErrConsistency):
		return CodeIntegrity
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeTimeout
		}
		return CodeNetwork
	}

	return CodeUnknown
}

// IsRetryable reports whether err describes a transient condition worth
// repeating the request for.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeNetwork, CodeTimeout, CodeRateLimit, CodeUnavailable, CodeInternal:
		// A timeout caused by the caller's own deadline is final.
		return !errors.Is(err, context.DeadlineExceeded)
	default:
		return false
	}
}

func codeForStatus(status int) ErrorCode {
	switch {
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusPreconditionFailed:
		return CodeIntegrity
	case status == http.StatusTooManyRequests:
		return CodeRateLimit
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return CodeTimeout
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway:
		return CodeUnavailable
	case status >= 500:
		return CodeInternal
	case status >= 400:
		return CodeInvalidInput
	default:
		return CodeUnknown
	}
}
