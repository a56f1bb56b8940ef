// Package chunked uploads large files through chunked upload sessions.
//
// A session is created for one file in a destination folder. The service
// dictates the part size; the file is split into parts of that size, the
// parts are uploaded concurrently and out of order, each carrying its own
// SHA-1 digest, and the session is committed with the ordered part list and
// the digest of the whole file.
//
// Key features:
//   - Bounded part concurrency (4 by default)
//   - Per-part and whole-file integrity checks
//   - Progress notifications per completed part
//   - Optional retry policy for transient part failures
//   - Explicit abort that cancels parts still in flight
//   - Local files, S3 objects and MinIO objects as sources
//
// Example usage:
//
//	client, err := chunked.New(chunked.WithToken(os.Getenv("BOX_TOKEN")))
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Folder("0").UploadFile(ctx, "/data/backup.tar",
//	    chunked.WithProgress(func(part chunktypes.PartRecord, partSize int64, totalParts int) {
//	        log.Printf("part at %d done", part.Offset)
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//
// The lower level Uploader exposes each step of a session for callers that
// need to commit or abort on their own terms.
package chunked
