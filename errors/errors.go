// Package errors provides error types and handling for chunked upload sessions.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a failed upload operation with context about where it failed.
// It wraps the underlying transport or service error for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "createSession", "uploadPart", "commit")
	Op string

	// SessionID is the upload session identifier (if one was created)
	SessionID string

	// Offset is the byte offset of the failed part (valid when HasOffset is true)
	Offset int64

	// HasOffset reports whether the error belongs to a single part
	HasOffset bool

	// StatusCode is the HTTP status returned by the service (0 if none)
	StatusCode int

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("chunked.")
	b.WriteString(e.Op)
	if e.SessionID != "" {
		fmt.Fprintf(&b, " session %s", e.SessionID)
	}
	if e.HasOffset {
		fmt.Fprintf(&b, " offset %d", e.Offset)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status %d", e.StatusCode)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithSession adds session context to an existing error.
func (e *Error) WithSession(sessionID string) *Error {
	e.SessionID = sessionID
	return e
}

// WithOffset marks the error as belonging to the part starting at offset.
func (e *Error) WithOffset(offset int64) *Error {
	e.Offset = offset
	e.HasOffset = true
	return e
}

// WithStatus records the HTTP status returned by the service.
func (e *Error) WithStatus(status int) *Error {
	e.StatusCode = status
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewSessionError creates a new Error with session context.
func NewSessionError(op, sessionID string, err error) *Error {
	return &Error{
		Op:        op,
		SessionID: sessionID,
		Err:       err,
	}
}

// NewPartError creates a new Error for the part at offset. The returned
// error matches ErrPartUpload as well as err.
func NewPartError(op, sessionID string, offset int64, err error) *Error {
	return &Error{
		Op:        op,
		SessionID: sessionID,
		Offset:    offset,
		HasOffset: true,
		Err:       join(ErrPartUpload, err),
	}
}

// Sentinel errors for the failure classes of an upload.
// These can be used with errors.Is() for error checking.
var (
	// ErrSessionCreation indicates the session could not be created or the
	// server's session record was malformed
	ErrSessionCreation = errors.New("chunked: session creation failed")

	// ErrPartUpload indicates a single part failed to upload
	ErrPartUpload = errors.New("chunked: part upload failed")

	// ErrConsistency indicates the planned part count disagrees with the session
	ErrConsistency = errors.New("chunked: part plan inconsistent with session")

	// ErrCommit indicates the commit call was rejected
	ErrCommit = errors.New("chunked: commit failed")

	// ErrDigestMismatch indicates a part or file digest did not match
	ErrDigestMismatch = errors.New("chunked: digest mismatch")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("chunked: invalid input")

	// ErrInvalidState indicates the operation is not allowed in the uploader's current state
	ErrInvalidState = errors.New("chunked: invalid session state")

	// ErrAborted indicates the session was aborted by the caller
	ErrAborted = errors.New("chunked: session aborted")

	// ErrEmptySource indicates a zero-byte source, which sessions do not accept
	ErrEmptySource = errors.New("chunked: empty source")
)

// IsSessionCreation checks if an error indicates a failed session creation.
func IsSessionCreation(err error) bool {
	return errors.Is(err, ErrSessionCreation)
}

// IsPartUpload checks if an error indicates a failed part upload.
func IsPartUpload(err error) bool {
	return errors.Is(err, ErrPartUpload)
}

// IsConsistency checks if an error indicates a part plan inconsistency.
func IsConsistency(err error) bool {
	return errors.Is(err, ErrConsistency)
}

// IsCommit checks if an error indicates a failed commit.
func IsCommit(err error) bool {
	return errors.Is(err, ErrCommit)
}

// PartOffset returns the offset of the part an error belongs to.
func PartOffset(err error) (int64, bool) {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return 0, false
		}
		if e.HasOffset {
			return e.Offset, true
		}
		err = e.Err
	}
	return 0, false
}

// join keeps class first so the message reads "<class>: <cause>" while both
// remain reachable through errors.Is and errors.As.
func join(class, cause error) error {
	if cause == nil {
		return class
	}
	if errors.Is(cause, class) {
		return cause
	}
	return &classified{class: class, cause: cause}
}

type classified struct {
	class error
	cause error
}

func (c *classified) Error() string {
	return fmt.Sprintf("%v: %v", c.class, c.cause)
}

func (c *classified) Unwrap() []error {
	return []error{c.class, c.cause}
}

// Classify wraps cause so that it also matches class. It is used to attach a
// taxonomy sentinel to a transport or service error.
func Classify(class, cause error) error {
	return join(class, cause)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
