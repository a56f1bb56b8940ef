package chunked

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/oauth2"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/retry"
)

// WithUploadURL sets the base URL of the upload API.
// Default is chunktypes.DefaultUploadURL.
func WithUploadURL(url string) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.UploadURL = url
	}
}

// WithHTTPClient sets the HTTP client requests are sent with.
// When a token is configured as well, the client supplies the underlying transport.
func WithHTTPClient(client *http.Client) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.HTTPClient = client
	}
}

// WithToken authenticates every request with a static bearer token.
func WithToken(token string) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	}
}

// WithTokenSource authenticates every request with tokens from ts.
// Use this for refreshable OAuth2 credentials.
func WithTokenSource(ts oauth2.TokenSource) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.TokenSource = ts
	}
}

// WithTransport replaces the HTTP transport entirely.
// HTTP client, token and timeout options are ignored when a transport is set.
func WithTransport(t chunktypes.Transport) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.Transport = t
	}
}

// WithTimeout sets the timeout for individual requests.
// Default is no timeout (0). Values should be positive durations.
func WithTimeout(timeout time.Duration) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithLogger sets the logger for structured output.
// A nil logger disables logging.
func WithLogger(logger *slog.Logger) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithConcurrency sets the default number of parts uploaded in parallel.
// Default is 4.
func WithConcurrency(concurrency int) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.Concurrency = concurrency
	}
}

// WithRetryer sets the policy for repeating failed part uploads.
// Default is a single attempt per part.
func WithRetryer(r chunktypes.Retryer) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.Retryer = r
	}
}

// WithRetry retries transient part failures with exponential jitter backoff.
// Non-positive values select the defaults (3 attempts, 20s maximum backoff).
func WithRetry(maxAttempts int, maxBackoff time.Duration) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.Retryer = retry.NewBackoff(maxAttempts, maxBackoff)
	}
}

// WithFilesystem sets the filesystem UploadFile reads from.
// Default is the OS filesystem.
func WithFilesystem(fs billy.Filesystem) chunktypes.Option {
	return func(c *chunktypes.ClientConfig) {
		c.Filesystem = fs
	}
}

// Upload options

// WithFileName sets the name of the created file.
// Default is the base name of the source.
func WithFileName(name string) chunktypes.UploadOption {
	return func(c *chunktypes.UploadConfig) {
		c.FileName = name
	}
}

// WithProgress sets a callback invoked once per completed part.
// Calls never overlap.
func WithProgress(fn chunktypes.ProgressFunc) chunktypes.UploadOption {
	return func(c *chunktypes.UploadConfig) {
		c.Progress = fn
	}
}

// WithUploadConcurrency overrides the client's concurrency for one upload.
func WithUploadConcurrency(concurrency int) chunktypes.UploadOption {
	return func(c *chunktypes.UploadConfig) {
		c.Concurrency = concurrency
	}
}

// WithContentModifiedAt sets the content modification time recorded on the file.
func WithContentModifiedAt(t time.Time) chunktypes.UploadOption {
	return func(c *chunktypes.UploadConfig) {
		c.ContentModifiedAt = t
	}
}

// WithAbortOnFailure aborts the session when Upload fails.
// By default a failed session is left for the caller to inspect, commit or abort.
func WithAbortOnFailure(abort bool) chunktypes.UploadOption {
	return func(c *chunktypes.UploadConfig) {
		c.AbortOnFailure = abort
	}
}
