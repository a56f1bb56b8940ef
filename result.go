package chunked

import (
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
)

// newUploadResult summarizes a committed upload.
func newUploadResult(
	session chunktypes.UploadSession,
	manifest *chunktypes.CommitManifest,
	commit *chunktypes.CommitResult,
	size int64,
	contentType string,
	duration time.Duration,
) *chunktypes.UploadResult {
	result := &chunktypes.UploadResult{
		Session:     session,
		Parts:       manifest.Parts,
		Digest:      manifest.Digest,
		Size:        size,
		ContentType: contentType,
		Duration:    duration,
	}
	if len(commit.Entries) > 0 {
		result.File = commit.Entries[0]
	}
	return result
}

// newManifest builds the commit manifest from offset-ordered parts.
func newManifest(digest string, parts []chunktypes.PartRecord, modifiedAt time.Time) *chunktypes.CommitManifest {
	manifest := &chunktypes.CommitManifest{
		Digest: digest,
		Parts:  parts,
	}
	if !modifiedAt.IsZero() {
		manifest.Attributes = &chunktypes.CommitAttributes{
			ContentModifiedAt: modifiedAt.UTC().Format(time.RFC3339),
		}
	}
	return manifest
}
