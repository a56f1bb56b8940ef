package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

// MinioAPI is the subset of minio.Core an object source needs.
type MinioAPI interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, http.Header, error)
}

// MinioObject is a Source reading a MinIO object with ranged GET requests.
type MinioObject struct {
	client  MinioAPI
	bucket  string
	key     string
	etag    string
	size    int64
	modTime time.Time
}

// Minio opens bucket/key with a stat request under ctx. Reads are pinned to
// the ETag seen here.
func Minio(ctx context.Context, client MinioAPI, bucket, key string) (*MinioObject, error) {
	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, errors.NewError("openMinioSource", err).WithMessage(fmt.Sprintf("minio://%s/%s", bucket, key))
	}

	return &MinioObject{
		client:  client,
		bucket:  bucket,
		key:     key,
		etag:    info.ETag,
		size:    info.Size,
		modTime: info.LastModified,
	}, nil
}

// ReadAt fetches len(p) bytes at off with a single ranged GET.
func (o *MinioObject) ReadAt(p []byte, off int64) (int, error) {
	return o.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext is ReadAt with a context for the GET request.
func (o *MinioObject) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= o.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end >= o.size {
		end = o.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, errors.NewError("readMinioSource", errors.ErrInvalidInput).WithMessage(err.Error())
	}
	if o.etag != "" {
		if err := opts.SetMatchETag(o.etag); err != nil {
			return 0, errors.NewError("readMinioSource", errors.ErrInvalidInput).WithMessage(err.Error())
		}
	}

	body, _, _, err := o.client.GetObject(ctx, o.bucket, o.key, opts)
	if err != nil {
		return 0, errors.NewError("readMinioSource", err).WithMessage(fmt.Sprintf("minio://%s/%s", o.bucket, o.key))
	}
	defer func() { _ = body.Close() }()

	n, err := io.ReadFull(body, p[:end-off+1])
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Stream fetches the whole object with one GET.
func (o *MinioObject) Stream(ctx context.Context) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if o.etag != "" {
		if err := opts.SetMatchETag(o.etag); err != nil {
			return nil, errors.NewError("streamMinioSource", errors.ErrInvalidInput).WithMessage(err.Error())
		}
	}

	body, _, _, err := o.client.GetObject(ctx, o.bucket, o.key, opts)
	if err != nil {
		return nil, errors.NewError("streamMinioSource", err).WithMessage(fmt.Sprintf("minio://%s/%s", o.bucket, o.key))
	}
	return body, nil
}

// Name returns the base name of the key.
func (o *MinioObject) Name() string {
	return path.Base(o.key)
}

// Size returns the object size.
func (o *MinioObject) Size() int64 {
	return o.size
}

// ModTime returns the object's last modification time.
func (o *MinioObject) ModTime() time.Time {
	return o.modTime
}

// Close is a no-op; every read closes its own response body.
func (o *MinioObject) Close() error {
	return nil
}
