// Package chunktypes provides shared type definitions for the chunked upload module.
package chunktypes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/oauth2"
)

// DefaultUploadURL is the base URL of the upload API.
const DefaultUploadURL = "https://upload.box.com/api/2.0"

// DefaultConcurrency is the number of parts uploaded in parallel when not configured.
const DefaultConcurrency = 4

// State is the lifecycle state of an upload session as seen by the client.
type State string

// Session lifecycle states
const (
	// StateCreated is the initial state after the server accepted the session
	StateCreated State = "created"

	// StateUploading means parts are being transferred
	StateUploading State = "uploading"

	// StateCommitting means the commit call has been issued
	StateCommitting State = "committing"

	// StateCommitted is the terminal success state
	StateCommitted State = "committed"

	// StateFailed is the terminal state after a part or commit failure
	StateFailed State = "failed"

	// StateAborted is the terminal state after an explicit abort
	StateAborted State = "aborted"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateFailed || s == StateAborted
}

// SessionEndpoints are the per-session URLs returned by the service.
type SessionEndpoints struct {
	Abort      string `json:"abort"`
	Commit     string `json:"commit"`
	UploadPart string `json:"upload_part"`
	ListParts  string `json:"list_parts"`
	Status     string `json:"status"`
	LogEvent   string `json:"log_event"`
}

// UploadSession is the server-side record tracking one file's chunked upload.
type UploadSession struct {
	// ID is the session identifier
	ID string

	// TotalParts is the number of parts the service expects
	TotalParts int

	// PartSize is the size of every part except possibly the last
	PartSize int64

	// ExpiresAt is when the service discards the session
	ExpiresAt time.Time

	// Endpoints are the session's operation URLs
	Endpoints SessionEndpoints

	// NumPartsProcessed is the service's count of received parts
	NumPartsProcessed int
}

// Range is a half-open byte range [Offset, End) of the source.
type Range struct {
	Offset int64
	End    int64
}

// Size returns the number of bytes in the range.
func (r Range) Size() int64 {
	return r.End - r.Offset
}

// PartDescriptor is one part ready for transfer.
type PartDescriptor struct {
	Range

	// Data is a read-only view of the part's bytes
	Data []byte

	// Digest is the base64 SHA-1 of Data
	Digest string
}

// PartRecord is the service's acknowledgment of an uploaded part.
type PartRecord struct {
	PartID string `json:"part_id"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
	SHA1   string `json:"sha1,omitempty"`
}

// PartList is one page of the parts the service has stored for a session.
type PartList struct {
	Entries    []PartRecord `json:"entries"`
	TotalCount int          `json:"total_count"`
	Offset     int          `json:"offset"`
	Limit      int          `json:"limit"`
}

// CommitAttributes are optional file attributes sent with the commit.
type CommitAttributes struct {
	ContentModifiedAt string `json:"content_modified_at,omitempty"`
}

// CommitManifest is what the commit call consumes: the whole-file digest
// and the parts ordered by offset.
type CommitManifest struct {
	// Digest is the base64 SHA-1 of the whole file
	Digest string

	// Parts are sorted ascending by Offset
	Parts []PartRecord

	// Attributes are optional file attributes
	Attributes *CommitAttributes
}

// FileEntry describes a file created by a successful commit.
type FileEntry struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	SHA1 string `json:"sha1"`
}

// CommitResult contains the files returned by the commit call.
type CommitResult struct {
	Entries []FileEntry
}

// UploadResult contains the result of a complete upload.
type UploadResult struct {
	// Session is the session the file was uploaded through
	Session UploadSession

	// File is the committed file (zero if the service returned no entry)
	File FileEntry

	// Parts are the committed parts in offset order
	Parts []PartRecord

	// Digest is the base64 SHA-1 of the whole file
	Digest string

	// Size is the number of bytes uploaded
	Size int64

	// ContentType is the detected MIME type of the source
	ContentType string

	// Duration is how long the upload took
	Duration time.Duration
}

// ProgressFunc observes part completions. It is called once per completed part,
// never concurrently, with the part's record, the session part size and the
// session part count.
type ProgressFunc func(part PartRecord, partSize int64, totalParts int)

// Retryer decides whether and when a failed part upload is repeated.
type Retryer interface {
	// MaxAttempts returns the maximum number of attempts, including the first.
	MaxAttempts() int

	// RetryDelay returns the delay before the given attempt (1-based) is repeated.
	RetryDelay(attempt int, err error) (time.Duration, error)

	// IsErrorRetryable determines if the given error should be retried.
	IsErrorRetryable(error) bool
}

// Request is one call against the upload service.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the service's reply. Body holds the raw (usually JSON) payload.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport is an authenticated connection to the upload service.
// Implementations must be safe for concurrent use.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Configuration types for functional options

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	UploadURL   string
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource
	Transport   Transport
	Timeout     time.Duration
	Logger      *slog.Logger
	Concurrency int
	Retryer     Retryer
	Filesystem  billy.Filesystem
}

// UploadConfig holds configuration for a single upload.
type UploadConfig struct {
	FileName          string
	Progress          ProgressFunc
	Concurrency       int
	ContentModifiedAt time.Time
	AbortOnFailure    bool
}

// Option is a functional option for configuring the client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring a single upload.
	UploadOption func(*UploadConfig)
)
