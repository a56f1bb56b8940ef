package chunked

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/digest"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/planner"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/transfer/coordinator"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/transfer/part"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/source"
)

const (
	// maxCommitAttempts bounds how often a commit answered with 202 is repeated.
	maxCommitAttempts = 5
)

// commitRetryDelay is the wait after a 202 commit response without Retry-After.
var commitRetryDelay = time.Second

// Uploader drives one upload session through its lifecycle:
//
//	created -> uploading -> committing -> committed
//	                 \             \
//	                  -> failed     -> failed -> committing
//
// A session failed by a rejected commit may commit again. Abort moves any
// non-terminal or failed session to aborted. Once a commit has started the
// session never returns to uploading.
type Uploader struct {
	transport chunktypes.Transport
	logger    *slog.Logger
	retryer   chunktypes.Retryer
	session   chunktypes.UploadSession
	src       source.Source
	cfg       chunktypes.UploadConfig

	mu           sync.Mutex
	state        chunktypes.State
	manifest     *chunktypes.CommitManifest
	cancel       context.CancelFunc
	commitFailed bool
}

func newUploader(c *Client, session *chunktypes.UploadSession, src source.Source, cfg *chunktypes.UploadConfig) *Uploader {
	return &Uploader{
		transport: c.transport,
		logger:    c.logger.With("session_id", session.ID),
		retryer:   c.retryer,
		session:   *session,
		src:       src,
		cfg:       *cfg,
		state:     chunktypes.StateCreated,
	}
}

// Session returns the session record as last seen from the service.
func (u *Uploader) Session() chunktypes.UploadSession {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.session
}

// State returns the current lifecycle state.
func (u *Uploader) State() chunktypes.State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// transition moves from one of the allowed states to next.
func (u *Uploader) transition(op string, next chunktypes.State, allowed ...chunktypes.State) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, s := range allowed {
		if u.state == s {
			u.state = next
			return nil
		}
	}
	return errors.NewSessionError(op, u.session.ID, errors.ErrInvalidState).
		WithMessage(fmt.Sprintf("session is %s", u.state))
}

// fail records a terminal failure unless the session was aborted meanwhile.
func (u *Uploader) fail() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != chunktypes.StateAborted {
		u.state = chunktypes.StateFailed
	}
}

// failCommit records a rejected commit, which leaves the session committable.
func (u *Uploader) failCommit() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != chunktypes.StateAborted {
		u.state = chunktypes.StateFailed
		u.commitFailed = true
	}
}

// UploadParts uploads every part of the source and returns the manifest to
// commit. The whole-file digest is computed alongside the part uploads.
// Any failed part fails the whole call: remaining parts are canceled and
// the session moves to failed. The error identifies the failed part's offset.
func (u *Uploader) UploadParts(ctx context.Context) (*chunktypes.CommitManifest, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	u.mu.Lock()
	if u.state != chunktypes.StateCreated {
		state := u.state
		u.mu.Unlock()
		return nil, errors.NewSessionError("uploadParts", u.session.ID, errors.ErrInvalidState).
			WithMessage(fmt.Sprintf("session is %s", state))
	}
	u.state = chunktypes.StateUploading
	u.cancel = cancel
	u.mu.Unlock()

	size := u.src.Size()
	ranges, err := planner.PlanSession(&u.session, size)
	if err != nil {
		u.fail()
		u.logger.Error("part plan rejected", "error", err)
		u.abortQuietly(ctx)
		return nil, err
	}

	type digestResult struct {
		digest string
		err    error
	}
	fileDigest := make(chan digestResult, 1)
	go func() {
		d, err := digest.File(ctx, u.src, size)
		fileDigest <- digestResult{digest: d, err: err}
	}()

	uploader := part.NewUploader(part.Config{
		Transport: u.transport,
		Session:   &u.session,
		FileSize:  size,
		Retryer:   u.retryer,
		Logger:    u.logger,
	})
	coord := coordinator.New(coordinator.Config{
		Concurrency: u.cfg.Concurrency,
		PartSize:    u.session.PartSize,
		Progress:    u.cfg.Progress,
		Logger:      u.logger,
	})

	u.logger.Debug("uploading parts", "total_parts", len(ranges), "concurrency", u.cfg.Concurrency)

	buffers := pool.NewBufferPool(int(u.session.PartSize))
	parts, err := coord.Run(ctx, ranges, coordinator.ReadParts(u.src, buffers, u.session.ID, uploader.Upload))
	if err != nil {
		cancel()
		<-fileDigest
		u.fail()
		u.logger.Error("part upload failed", "error", err)
		return nil, u.abortedError(err)
	}

	res := <-fileDigest
	if res.err != nil {
		u.fail()
		return nil, u.abortedError(errors.NewSessionError("digestFile", u.session.ID, res.err))
	}

	manifest := newManifest(res.digest, parts, u.cfg.ContentModifiedAt)

	u.mu.Lock()
	u.manifest = manifest
	u.cancel = nil
	u.mu.Unlock()

	u.logger.Info("parts uploaded", "parts", len(parts), "size", size)
	return manifest, nil
}

// abortedError marks err as caused by Abort when the session was aborted.
func (u *Uploader) abortedError(err error) error {
	if u.State() == chunktypes.StateAborted {
		return errors.Classify(errors.ErrAborted, err)
	}
	return err
}

type commitRequest struct {
	Parts      []chunktypes.PartRecord      `json:"parts"`
	Attributes *chunktypes.CommitAttributes `json:"attributes,omitempty"`
}

type commitResponse struct {
	Entries []chunktypes.FileEntry `json:"entries"`
}

// Commit finalizes the session with manifest. A nil manifest commits the
// one produced by UploadParts. Commit is only allowed after UploadParts
// succeeded; a rejected commit moves the session to failed, from where
// Commit may be called again.
func (u *Uploader) Commit(ctx context.Context, manifest *chunktypes.CommitManifest) (*chunktypes.CommitResult, error) {
	u.mu.Lock()
	state := u.state
	switch {
	case state == chunktypes.StateUploading && u.manifest == nil:
		u.mu.Unlock()
		return nil, errors.NewSessionError("commit", u.session.ID, errors.ErrInvalidState).
			WithMessage("parts are still uploading")
	case state == chunktypes.StateUploading, state == chunktypes.StateFailed && u.commitFailed:
		u.state = chunktypes.StateCommitting
	default:
		u.mu.Unlock()
		return nil, errors.NewSessionError("commit", u.session.ID, errors.ErrInvalidState).
			WithMessage(fmt.Sprintf("session is %s", state))
	}
	if manifest == nil {
		manifest = u.manifest
	}
	u.mu.Unlock()

	if state == chunktypes.StateFailed {
		u.logger.Info("retrying commit")
	}

	header := http.Header{}
	header.Set(digest.HeaderName, digest.Header(manifest.Digest))
	body, err := json.Marshal(commitRequest{Parts: manifest.Parts, Attributes: manifest.Attributes})
	if err != nil {
		u.failCommit()
		return nil, errors.NewSessionError("commit", u.session.ID, errors.Classify(errors.ErrCommit, err))
	}
	header.Set("Content-Type", "application/json")

	resp, err := u.commit(ctx, header, body)
	if err != nil {
		u.failCommit()
		u.logger.Error("commit failed", "error", err)
		return nil, err
	}

	var out commitResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		u.failCommit()
		return nil, errors.NewSessionError("commit", u.session.ID,
			errors.Classify(errors.ErrCommit, fmt.Errorf("failed to decode commit response: %w", err)))
	}

	if err := u.transition("commit", chunktypes.StateCommitted, chunktypes.StateCommitting); err != nil {
		return nil, err
	}

	u.logger.Info("upload session committed", "files", len(out.Entries))
	return &chunktypes.CommitResult{Entries: out.Entries}, nil
}

// commit sends the commit request, repeating it while the service answers
// 202 because it is still processing parts.
func (u *Uploader) commit(ctx context.Context, header http.Header, body []byte) (*chunktypes.Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := u.transport.Do(ctx, &chunktypes.Request{
			Method: http.MethodPost,
			URL:    u.session.Endpoints.Commit,
			Header: header,
			Body:   body,
		})
		if err != nil {
			return nil, errors.NewSessionError("commit", u.session.ID, errors.Classify(errors.ErrCommit, err))
		}

		if resp.StatusCode != http.StatusAccepted {
			if err := transport.CheckStatus(resp); err != nil {
				return nil, commitError(u.session.ID, err)
			}
			return resp, nil
		}

		if attempt >= maxCommitAttempts {
			return nil, errors.NewSessionError("commit", u.session.ID, errors.ErrCommit).
				WithStatus(resp.StatusCode).
				WithMessage(fmt.Sprintf("parts still processing after %d attempts", attempt))
		}

		delay := commitRetryDelay
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			delay = time.Duration(secs) * time.Second
		}
		u.logger.Debug("commit accepted but pending, retrying", "attempt", attempt, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.NewSessionError("commit", u.session.ID, errors.Classify(errors.ErrCommit, ctx.Err()))
		case <-timer.C:
		}
	}
}

func commitError(sessionID string, err error) error {
	var svc *errors.ServiceError
	if errors.As(err, &svc) && svc.IsDigestMismatch() {
		err = errors.Classify(errors.ErrDigestMismatch, err)
	}
	e := errors.NewSessionError("commit", sessionID, errors.Classify(errors.ErrCommit, err))
	if svc != nil {
		e = e.WithStatus(svc.StatusCode)
	}
	return e
}

// Abort cancels part uploads still in flight and deletes the session on
// the service. Committed or already aborted sessions cannot be aborted.
func (u *Uploader) Abort(ctx context.Context) error {
	if err := u.transition("abort", chunktypes.StateAborted,
		chunktypes.StateCreated, chunktypes.StateUploading, chunktypes.StateFailed); err != nil {
		return err
	}

	u.mu.Lock()
	cancel := u.cancel
	u.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	_, err := transport.JSON(ctx, u.transport, http.MethodDelete, u.session.Endpoints.Abort, nil, nil, nil)
	if err != nil {
		u.logger.Error("abort failed", "error", err)
		return errors.NewSessionError("abort", u.session.ID, err)
	}

	u.logger.Info("upload session aborted")
	return nil
}

// abortQuietly aborts after a fatal local failure; errors are only logged.
// The session is aborted once the service accepted the request.
func (u *Uploader) abortQuietly(ctx context.Context) {
	if _, err := transport.JSON(context.WithoutCancel(ctx), u.transport, http.MethodDelete,
		u.session.Endpoints.Abort, nil, nil, nil); err != nil {
		u.logger.Warn("abort after failure failed", "error", err)
		return
	}

	u.mu.Lock()
	u.state = chunktypes.StateAborted
	u.cancel = nil
	u.mu.Unlock()
	u.logger.Info("upload session aborted")
}

// abortOnFailure aborts the session when the upload was configured to, and
// returns err.
func (u *Uploader) abortOnFailure(ctx context.Context, err error) error {
	if !u.cfg.AbortOnFailure || u.State() == chunktypes.StateAborted {
		return err
	}
	if aerr := u.Abort(context.WithoutCancel(ctx)); aerr != nil {
		u.logger.Warn("abort after failure failed", "error", aerr)
	}
	return err
}

// Status refreshes the session record from the service.
func (u *Uploader) Status(ctx context.Context) (*chunktypes.UploadSession, error) {
	if u.session.Endpoints.Status == "" {
		return nil, errors.NewSessionError("status", u.session.ID, errors.ErrInvalidInput).
			WithMessage("session has no status endpoint")
	}

	resp, err := transport.JSON(ctx, u.transport, http.MethodGet, u.session.Endpoints.Status, nil, nil, nil)
	if err != nil {
		return nil, errors.NewSessionError("status", u.session.ID, err)
	}

	session, err := parseSession(resp.Body)
	if err != nil {
		return nil, errors.NewSessionError("status", u.session.ID, err)
	}

	u.mu.Lock()
	u.session.NumPartsProcessed = session.NumPartsProcessed
	u.mu.Unlock()

	return session, nil
}

// ListParts returns the parts the service has stored for the session.
func (u *Uploader) ListParts(ctx context.Context) (*chunktypes.PartList, error) {
	if u.session.Endpoints.ListParts == "" {
		return nil, errors.NewSessionError("listParts", u.session.ID, errors.ErrInvalidInput).
			WithMessage("session has no list_parts endpoint")
	}

	var list chunktypes.PartList
	if _, err := transport.JSON(ctx, u.transport, http.MethodGet, u.session.Endpoints.ListParts, nil, nil, &list); err != nil {
		return nil, errors.NewSessionError("listParts", u.session.ID, err)
	}
	return &list, nil
}

// LogEvent returns the raw response of the session's log_event endpoint.
func (u *Uploader) LogEvent(ctx context.Context) (json.RawMessage, error) {
	if u.session.Endpoints.LogEvent == "" {
		return nil, errors.NewSessionError("logEvent", u.session.ID, errors.ErrInvalidInput).
			WithMessage("session has no log_event endpoint")
	}

	resp, err := transport.JSON(ctx, u.transport, http.MethodGet, u.session.Endpoints.LogEvent, nil, nil, nil)
	if err != nil {
		return nil, errors.NewSessionError("logEvent", u.session.ID, err)
	}
	return json.RawMessage(resp.Body), nil
}
