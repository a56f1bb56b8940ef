package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ServiceError is a non-2xx response from the upload service.
type ServiceError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// Code is the service's machine readable error code (e.g. "item_name_in_use")
	Code string

	// Message is the service's human readable message
	Message string

	// RequestID identifies the request in the service's logs
	RequestID string

	// RetryAfter is the delay requested by the service, if any
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("service returned %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

// IsDigestMismatch reports whether the service rejected a payload because its
// digest header did not match the received bytes.
func (e *ServiceError) IsDigestMismatch() bool {
	if e.StatusCode == http.StatusPreconditionFailed {
		return true
	}
	code := strings.ToLower(e.Code)
	return strings.Contains(code, "digest") || strings.Contains(code, "sha1_mismatch")
}

type serviceErrorBody struct {
	Type      string `json:"type"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// ParseServiceError builds a ServiceError from a response. Bodies that are not
// the service's JSON error envelope keep only the status and raw text.
func ParseServiceError(status int, header http.Header, body []byte) *ServiceError {
	svc := &ServiceError{StatusCode: status}

	var envelope serviceErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && (envelope.Code != "" || envelope.Message != "") {
		svc.Code = envelope.Code
		svc.Message = envelope.Message
		svc.RequestID = envelope.RequestID
	} else if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > 256 {
			text = text[:256]
		}
		svc.Message = text
	}

	if header != nil {
		if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs > 0 {
			svc.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	return svc
}
