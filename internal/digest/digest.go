package digest

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // SHA-1 is fixed by the wire protocol
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/source"
)

// HeaderName is the header carrying a digest.
const HeaderName = "Digest"

// Sum returns the base64 SHA-1 of data.
func Sum(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Header renders d as a digest header value.
func Header(d string) string {
	return "sha=" + d
}

// File hashes size bytes of r and returns the base64 digest. Sources that
// can stream their content are read in one request; others are read
// sequentially through ReadAt. A source shorter than size is an error.
func File(ctx context.Context, r io.ReaderAt, size int64) (string, error) {
	var body io.Reader
	if s, ok := r.(source.Streamer); ok {
		rc, err := s.Stream(ctx)
		if err != nil {
			return "", errors.NewError("digestFile", err)
		}
		defer func() { _ = rc.Close() }()
		body = io.LimitReader(rc, size)
	} else {
		body = io.NewSectionReader(source.ReaderAt(ctx, r), 0, size)
	}

	h := sha1.New() //nolint:gosec
	n, err := stream(ctx, h, body)
	if err != nil {
		return "", err
	}
	if n != size {
		return "", errors.NewError("digestFile", io.ErrUnexpectedEOF).
			WithMessage(fmt.Sprintf("read %d of %d bytes", n, size))
	}
	return encode(h), nil
}

// Reader hashes everything read from r until EOF.
func Reader(ctx context.Context, r io.Reader) (string, error) {
	h := sha1.New() //nolint:gosec
	if _, err := stream(ctx, h, r); err != nil {
		return "", err
	}
	return encode(h), nil
}

func stream(ctx context.Context, h hash.Hash, r io.Reader) (int64, error) {
	buf := pool.GetStreamBuffer()
	defer pool.PutStreamBuffer(buf)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, errors.NewError("digestFile", err)
		}
	}
}

func encode(h hash.Hash) string {
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Verify compares a local base64 digest with the sha1 the service reported.
// The service value may be hex or base64 encoded. An empty service value is
// accepted.
func Verify(local, reported string) error {
	if reported == "" || reported == local {
		return nil
	}

	want, err := base64.StdEncoding.DecodeString(local)
	if err != nil {
		return errors.NewError("verifyDigest", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("local digest %q is not base64", local))
	}

	got, err := decode(reported)
	if err != nil || !bytes.Equal(want, got) {
		return errors.NewError("verifyDigest", errors.ErrDigestMismatch).
			WithMessage(fmt.Sprintf("sent %s, service reported %s", local, reported))
	}
	return nil
}

func decode(s string) ([]byte, error) {
	if len(s) == hex.EncodedLen(sha1.Size) {
		if b, err := hex.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return base64.StdEncoding.DecodeString(s)
}
