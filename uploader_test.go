package chunked

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/digest"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/source"
)

func newTestUploader(t *testing.T, fake *testutil.FakeServer, size int, opts ...chunktypes.UploadOption) (*Uploader, []byte) {
	t.Helper()
	data := testutil.NewTestDataGenerator(int64(size)).Bytes(size)
	u, err := newTestClient(t, fake).Folder("0").NewUploader(context.Background(), source.Bytes("file.bin", data), opts...)
	require.NoError(t, err)
	return u, data
}

func TestUploader_Lifecycle(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	u, data := newTestUploader(t, fake, 3*testPartSize+7)
	ctx := context.Background()

	assert.Equal(t, chunktypes.StateCreated, u.State())

	manifest, err := u.UploadParts(ctx)
	require.NoError(t, err)
	assert.Equal(t, chunktypes.StateUploading, u.State())
	assert.Equal(t, digest.Sum(data), manifest.Digest)
	assert.Nil(t, manifest.Attributes)
	require.Len(t, manifest.Parts, 4)
	for i, p := range manifest.Parts {
		assert.Equal(t, int64(i*testPartSize), p.Offset)
		assert.NotEmpty(t, p.PartID)
	}

	result, err := u.Commit(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, chunktypes.StateCommitted, u.State())
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "file", result.Entries[0].Type)
	assert.Equal(t, int64(len(data)), result.Entries[0].Size)
}

func TestUploader_InvalidTransitions(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	u, _ := newTestUploader(t, fake, 2*testPartSize)
	ctx := context.Background()

	_, err := u.Commit(ctx, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
	assert.Equal(t, chunktypes.StateCreated, u.State())

	_, err = u.UploadParts(ctx)
	require.NoError(t, err)

	_, err = u.UploadParts(ctx)
	assert.ErrorIs(t, err, errors.ErrInvalidState)

	_, err = u.Commit(ctx, nil)
	require.NoError(t, err)

	_, err = u.UploadParts(ctx)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
	_, err = u.Commit(ctx, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
	assert.ErrorIs(t, u.Abort(ctx), errors.ErrInvalidState)
	assert.Equal(t, chunktypes.StateCommitted, u.State())
}

func TestUploader_ConsistencyError(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	fake.SetTotalParts(3)
	u, _ := newTestUploader(t, fake, 4*testPartSize)

	_, err := u.UploadParts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsConsistency(err))
	assert.Equal(t, chunktypes.StateAborted, u.State())

	assert.Empty(t, fake.UploadedOffsets(u.Session().ID))
	assert.Equal(t, 1, fake.Aborts())
	assert.Equal(t, 0, fake.Commits())

	// The session is already gone on the service
	err = u.Abort(context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidState)
	assert.Equal(t, 1, fake.Aborts())
}

func TestUploader_PartFailure(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	fake.FailPart(2*testPartSize, http.StatusInternalServerError)
	u, _ := newTestUploader(t, fake, 8*testPartSize, WithUploadConcurrency(4))
	ctx := context.Background()

	_, err := u.UploadParts(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsPartUpload(err))
	assert.Equal(t, chunktypes.StateFailed, u.State())

	offset, ok := errors.PartOffset(err)
	require.True(t, ok)
	assert.Equal(t, int64(2*testPartSize), offset)

	// Failed sessions cannot be committed but can still be aborted
	_, err = u.Commit(ctx, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
	assert.Equal(t, 0, fake.Commits())

	require.NoError(t, u.Abort(ctx))
	assert.Equal(t, chunktypes.StateAborted, u.State())
	assert.Equal(t, 1, fake.Aborts())
}

func TestUploader_AbortInFlight(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	fake.DelayParts(func(int64) time.Duration { return 10 * time.Second })
	u, _ := newTestUploader(t, fake, 8*testPartSize, WithUploadConcurrency(2))

	done := make(chan error, 1)
	go func() {
		_, err := u.UploadParts(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return fake.InFlight() > 0 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, u.Abort(context.Background()))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrAborted)
		assert.Equal(t, errors.CodeCanceled, errors.CodeOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("UploadParts did not return after Abort")
	}

	assert.Equal(t, chunktypes.StateAborted, u.State())
	assert.Equal(t, 1, fake.Aborts())
	assert.Equal(t, 0, fake.Commits())
	assert.ErrorIs(t, u.Abort(context.Background()), errors.ErrInvalidState)
}

func TestUploader_CommitFailure(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	fake.FailCommit(http.StatusConflict)
	u, _ := newTestUploader(t, fake, testPartSize)
	ctx := context.Background()

	manifest, err := u.UploadParts(ctx)
	require.NoError(t, err)

	_, err = u.Commit(ctx, manifest)
	require.Error(t, err)
	assert.True(t, errors.IsCommit(err))
	assert.Equal(t, errors.CodeConflict, errors.CodeOf(err))
	assert.Equal(t, chunktypes.StateFailed, u.State())

	require.NoError(t, u.Abort(ctx))
}

func TestUploader_CommitRetryAfterFailure(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	fake.FailCommit(http.StatusServiceUnavailable)
	u, _ := newTestUploader(t, fake, 3*testPartSize)
	ctx := context.Background()

	_, err := u.UploadParts(ctx)
	require.NoError(t, err)

	_, err = u.Commit(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCommit(err))
	assert.Equal(t, chunktypes.StateFailed, u.State())

	fake.FailCommit(0)
	result, err := u.Commit(ctx, nil)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, chunktypes.StateCommitted, u.State())
	assert.Equal(t, 2, fake.Commits())
	assert.Zero(t, fake.Aborts())

	_, err = u.Commit(ctx, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestUploader_CommitDigestMismatch(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	u, _ := newTestUploader(t, fake, 2*testPartSize)
	ctx := context.Background()

	manifest, err := u.UploadParts(ctx)
	require.NoError(t, err)

	tampered := *manifest
	tampered.Digest = digest.Sum([]byte("something else"))

	_, err = u.Commit(ctx, &tampered)
	require.Error(t, err)
	assert.True(t, errors.IsCommit(err))
	assert.ErrorIs(t, err, errors.ErrDigestMismatch)
}

func TestUploader_CommitPending(t *testing.T) {
	commitRetryDelay = time.Millisecond
	t.Cleanup(func() { commitRetryDelay = time.Second })

	fake := testutil.NewFakeServer(t, testPartSize)
	fake.CommitPending(2)
	u, _ := newTestUploader(t, fake, testPartSize+1)
	ctx := context.Background()

	_, err := u.UploadParts(ctx)
	require.NoError(t, err)

	result, err := u.Commit(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, result.Entries, 1)
	assert.Equal(t, 3, fake.Commits())
}

func TestUploader_CommitPendingExhausted(t *testing.T) {
	commitRetryDelay = time.Millisecond
	t.Cleanup(func() { commitRetryDelay = time.Second })

	fake := testutil.NewFakeServer(t, testPartSize)
	fake.CommitPending(maxCommitAttempts)
	u, _ := newTestUploader(t, fake, testPartSize)
	ctx := context.Background()

	_, err := u.UploadParts(ctx)
	require.NoError(t, err)

	_, err = u.Commit(ctx, nil)
	assert.True(t, errors.IsCommit(err))
	assert.Equal(t, maxCommitAttempts, fake.Commits())
}

func TestUploader_PassThroughs(t *testing.T) {
	fake := testutil.NewFakeServer(t, testPartSize)
	u, _ := newTestUploader(t, fake, 3*testPartSize)
	ctx := context.Background()

	_, err := u.UploadParts(ctx)
	require.NoError(t, err)

	status, err := u.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.NumPartsProcessed)
	assert.Equal(t, 3, u.Session().NumPartsProcessed)

	parts, err := u.ListParts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, parts.TotalCount)
	require.Len(t, parts.Entries, 3)
	assert.Equal(t, int64(2*testPartSize), parts.Entries[2].Offset)

	event, err := u.LogEvent(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(event), u.Session().ID)
}

func TestUploader_WithRetry(t *testing.T) {
	calls := 0
	mock := &testutil.MockTransport{}
	mock.DoFunc = func(_ context.Context, req *chunktypes.Request) (*chunktypes.Response, error) {
		switch req.Method {
		case http.MethodPost:
			return testutil.JSONResponse(http.StatusCreated, `{"id":"S","total_parts":1,"part_size":16,
				"session_endpoints":{"upload_part":"https://u/S","commit":"https://u/S/commit","abort":"https://u/S"}}`), nil
		case http.MethodPut:
			calls++
			if calls == 1 {
				return testutil.JSONResponse(http.StatusServiceUnavailable, `{}`), nil
			}
			return testutil.JSONResponse(http.StatusOK, `{"part":{"part_id":"P1","offset":0,"size":4}}`), nil
		}
		return testutil.JSONResponse(http.StatusNotFound, `{}`), nil
	}

	c, err := New(WithTransport(mock), WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	u, err := c.Folder("0").NewUploader(context.Background(), source.Bytes("r.bin", []byte("data")))
	require.NoError(t, err)

	manifest, err := u.UploadParts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "P1", manifest.Parts[0].PartID)
}
