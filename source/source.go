// Package source provides the read-only, randomly addressable byte sources
// an upload reads its parts from.
//
// Parts are read concurrently with ReadAt, so every Source must support
// parallel ReadAt calls. Local files are opened through a go-billy
// filesystem; S3 and MinIO objects are read with ranged GET requests and
// implement ContextReaderAt so that canceling an upload cancels its reads.
// Object sources also implement Streamer, which hashing uses to read the
// whole object with a single request.
package source

import (
	"bytes"
	"context"
	"io"
	"time"
)

// Source is the content of one file to upload.
type Source interface {
	io.ReaderAt
	io.Closer

	// Name is the base name used when no file name is configured
	Name() string

	// Size is the number of bytes in the source
	Size() int64

	// ModTime is the last modification time, zero if unknown
	ModTime() time.Time
}

// ContextReaderAt is implemented by sources whose reads can be canceled.
type ContextReaderAt interface {
	ReadAtContext(ctx context.Context, p []byte, off int64) (int, error)
}

// Streamer is implemented by sources that can deliver their whole content
// as one sequential stream.
type Streamer interface {
	Stream(ctx context.Context) (io.ReadCloser, error)
}

// ReaderAt returns r bound to ctx: reads go through ReadAtContext when r
// implements ContextReaderAt, and to r.ReadAt otherwise.
func ReaderAt(ctx context.Context, r io.ReaderAt) io.ReaderAt {
	if cr, ok := r.(ContextReaderAt); ok {
		return &boundReaderAt{ctx: ctx, r: cr}
	}
	return r
}

type boundReaderAt struct {
	ctx context.Context
	r   ContextReaderAt
}

func (b *boundReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return b.r.ReadAtContext(b.ctx, p, off)
}

// bytesSource serves an in-memory byte slice.
type bytesSource struct {
	*bytes.Reader
	name    string
	modTime time.Time
}

// Bytes returns a Source over data.
func Bytes(name string, data []byte) Source {
	return &bytesSource{
		Reader: bytes.NewReader(data),
		name:   name,
	}
}

func (s *bytesSource) Name() string       { return s.name }
func (s *bytesSource) ModTime() time.Time { return s.modTime }
func (s *bytesSource) Close() error       { return nil }
