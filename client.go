package chunked

import (
	"log/slog"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/validation"
)

// Client uploads files to the service through chunked upload sessions.
// It is safe for concurrent use; each upload gets its own session.
type Client struct {
	// transport is the authenticated connection to the service
	transport chunktypes.Transport

	// uploadURL is the base URL sessions are created under
	uploadURL string

	// logger receives structured log output
	logger *slog.Logger

	// concurrency is the default number of parts in flight per upload
	concurrency int

	// retryer decides whether failed part uploads are repeated
	retryer chunktypes.Retryer

	// fs is the filesystem UploadFile reads from
	fs billy.Filesystem
}

// New creates a new client with the provided options.
//
// Example:
//
//	client, err := chunked.New(
//	    chunked.WithToken(token),
//	    chunked.WithConcurrency(8),
//	)
func New(opts ...chunktypes.Option) (*Client, error) {
	cfg := &chunktypes.ClientConfig{
		UploadURL:   chunktypes.DefaultUploadURL,
		Concurrency: chunktypes.DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := validation.ValidateConcurrency(cfg.Concurrency); err != nil {
		return nil, err
	}
	if cfg.UploadURL == "" {
		return nil, errors.NewError("client initialization", errors.ErrInvalidInput).
			WithMessage("upload URL cannot be empty")
	}

	tr := cfg.Transport
	if tr == nil {
		tr = transport.New(transport.NewClient(cfg.HTTPClient, cfg.TokenSource, cfg.Timeout))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	retryer := cfg.Retryer
	if retryer == nil {
		retryer = retry.NoRetry{}
	}

	filesystem := cfg.Filesystem
	if filesystem == nil {
		filesystem = osfs.New("/")
	}

	return &Client{
		transport:   tr,
		uploadURL:   strings.TrimRight(cfg.UploadURL, "/"),
		logger:      logger,
		concurrency: cfg.Concurrency,
		retryer:     retryer,
		fs:          filesystem,
	}, nil
}

// Folder returns a reference to the destination folder with the given id.
// The id is validated when an upload starts.
func (c *Client) Folder(id string) *Folder {
	return &Folder{client: c, id: id}
}
