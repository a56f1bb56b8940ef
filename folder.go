package chunked

import (
	"context"
	"net/http"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/source"
)

// Folder is a destination folder bound to a client.
type Folder struct {
	client *Client
	id     string
}

// ID returns the folder identifier.
func (f *Folder) ID() string {
	return f.id
}

// NewUploader creates an upload session for src in the folder.
// The session's part size and part count are dictated by the service.
// Empty sources are rejected before the service is contacted.
func (f *Folder) NewUploader(ctx context.Context, src source.Source, opts ...chunktypes.UploadOption) (*Uploader, error) {
	cfg := &chunktypes.UploadConfig{
		Concurrency: f.client.concurrency,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.FileName == "" {
		cfg.FileName = src.Name()
	}

	if err := validation.ValidateFolderID(f.id); err != nil {
		return nil, err
	}
	if err := validation.ValidateFileName(cfg.FileName); err != nil {
		return nil, err
	}
	if err := validation.ValidateConcurrency(cfg.Concurrency); err != nil {
		return nil, err
	}

	size := src.Size()
	if size <= 0 {
		return nil, errors.NewError("createSession", errors.ErrEmptySource).
			WithMessage(cfg.FileName)
	}

	resp, err := transport.JSON(ctx, f.client.transport, http.MethodPost,
		f.client.uploadURL+"/files/upload_sessions", nil,
		createSessionRequest{FolderID: f.id, FileSize: size, FileName: cfg.FileName},
		nil)
	if err != nil {
		return nil, sessionError(err)
	}

	session, err := parseSession(resp.Body)
	if err != nil {
		return nil, sessionError(err)
	}

	f.client.logger.Info("upload session created",
		"session_id", session.ID,
		"folder_id", f.id,
		"file_name", cfg.FileName,
		"size", size,
		"part_size", session.PartSize,
		"total_parts", session.TotalParts)

	return newUploader(f.client, session, src, cfg), nil
}

// Upload uploads src into the folder: it creates a session, uploads every
// part and commits. With WithAbortOnFailure the session is aborted when any
// step fails.
func (f *Folder) Upload(ctx context.Context, src source.Source, opts ...chunktypes.UploadOption) (*chunktypes.UploadResult, error) {
	start := time.Now()

	u, err := f.NewUploader(ctx, src, opts...)
	if err != nil {
		return nil, err
	}

	contentType, err := source.DetectContentType(src)
	if err != nil {
		f.client.logger.Warn("content type detection failed", "session_id", u.session.ID, "error", err)
	}

	manifest, err := u.UploadParts(ctx)
	if err != nil {
		return nil, u.abortOnFailure(ctx, err)
	}

	commit, err := u.Commit(ctx, manifest)
	if err != nil {
		return nil, u.abortOnFailure(ctx, err)
	}

	return newUploadResult(u.Session(), manifest, commit, src.Size(), contentType, time.Since(start)), nil
}

// UploadFile uploads the file at path, read from the client's filesystem.
func (f *Folder) UploadFile(ctx context.Context, path string, opts ...chunktypes.UploadOption) (*chunktypes.UploadResult, error) {
	src, err := source.Open(f.client.fs, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	return f.Upload(ctx, src, opts...)
}
