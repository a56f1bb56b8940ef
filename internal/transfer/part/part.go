package part

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/digest"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/transport"
)

// ContentType marks part bodies as opaque bytes.
const ContentType = "application/octet-stream"

// Uploader uploads parts to one session's upload_part endpoint.
type Uploader struct {
	transport chunktypes.Transport
	endpoint  string
	sessionID string
	fileSize  int64
	retryer   chunktypes.Retryer
	logger    *slog.Logger
}

// Config holds the collaborators of an Uploader.
type Config struct {
	Transport chunktypes.Transport
	Session   *chunktypes.UploadSession
	FileSize  int64
	Retryer   chunktypes.Retryer
	Logger    *slog.Logger
}

// NewUploader creates an uploader for cfg.Session.
func NewUploader(cfg Config) *Uploader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	retryer := cfg.Retryer
	if retryer == nil {
		retryer = retry.NoRetry{}
	}
	return &Uploader{
		transport: cfg.Transport,
		endpoint:  cfg.Session.Endpoints.UploadPart,
		sessionID: cfg.Session.ID,
		fileSize:  cfg.FileSize,
		retryer:   retryer,
		logger:    logger,
	}
}

type uploadPartResponse struct {
	Part chunktypes.PartRecord `json:"part"`
}

// Upload sends desc and returns the service's record of it. Every failure
// is an errors.ErrPartUpload carrying the part offset; digest failures also
// match errors.ErrDigestMismatch.
func (u *Uploader) Upload(ctx context.Context, desc chunktypes.PartDescriptor) (chunktypes.PartRecord, error) {
	var record chunktypes.PartRecord

	err := retry.Do(ctx, u.retryer, u.logger.With("offset", desc.Offset), func(ctx context.Context) error {
		var err error
		record, err = u.upload(ctx, desc)
		return err
	})
	if err != nil {
		return chunktypes.PartRecord{}, u.partError(desc, err)
	}

	if err := digest.Verify(desc.Digest, record.SHA1); err != nil {
		return chunktypes.PartRecord{}, u.partError(desc, err)
	}

	u.logger.Debug("part uploaded",
		"session_id", u.sessionID,
		"offset", record.Offset,
		"size", record.Size,
		"part_id", record.PartID)

	return record, nil
}

func (u *Uploader) upload(ctx context.Context, desc chunktypes.PartDescriptor) (chunktypes.PartRecord, error) {
	header := http.Header{}
	header.Set("Content-Range", ContentRange(desc.Range, u.fileSize))
	header.Set("Content-Type", ContentType)
	header.Set(digest.HeaderName, digest.Header(desc.Digest))

	resp, err := u.transport.Do(ctx, &chunktypes.Request{
		Method: http.MethodPut,
		URL:    u.endpoint,
		Header: header,
		Body:   desc.Data,
	})
	if err != nil {
		return chunktypes.PartRecord{}, err
	}
	if err := transport.CheckStatus(resp); err != nil {
		return chunktypes.PartRecord{}, err
	}

	var out uploadPartResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return chunktypes.PartRecord{}, fmt.Errorf("failed to decode part response: %w", err)
	}
	if out.Part.PartID == "" {
		return chunktypes.PartRecord{}, fmt.Errorf("part response has no part_id")
	}
	if out.Part.Offset != desc.Offset || out.Part.Size != desc.Size() {
		return chunktypes.PartRecord{}, fmt.Errorf(
			"service acknowledged range %d+%d, sent %d+%d",
			out.Part.Offset, out.Part.Size, desc.Offset, desc.Size())
	}

	return out.Part, nil
}

func (u *Uploader) partError(desc chunktypes.PartDescriptor, err error) error {
	var svc *errors.ServiceError
	if errors.As(err, &svc) && svc.IsDigestMismatch() {
		err = errors.Classify(errors.ErrDigestMismatch, err)
	}

	e := errors.NewPartError("uploadPart", u.sessionID, desc.Offset, err)
	if svc != nil {
		e = e.WithStatus(svc.StatusCode)
	}
	return e
}

// ContentRange renders the content-range header for r within a file of fileSize bytes.
func ContentRange(r chunktypes.Range, fileSize int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Offset, r.End-1, fileSize)
}
