package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

// S3API is the subset of the S3 client an object source needs.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Object is a Source reading an S3 object with ranged GET requests.
type S3Object struct {
	client  S3API
	bucket  string
	key     string
	etag    *string
	size    int64
	modTime time.Time
}

// S3 opens bucket/key with a HEAD request under ctx. Reads are pinned to the
// object version seen here: an object replaced mid-upload fails the read
// rather than mixing contents.
func S3(ctx context.Context, client S3API, bucket, key string) (*S3Object, error) {
	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewError("openS3Source", err).WithMessage(fmt.Sprintf("s3://%s/%s", bucket, key))
	}

	return &S3Object{
		client:  client,
		bucket:  bucket,
		key:     key,
		etag:    out.ETag,
		size:    aws.ToInt64(out.ContentLength),
		modTime: aws.ToTime(out.LastModified),
	}, nil
}

// ReadAt fetches len(p) bytes at off with a single ranged GET.
func (o *S3Object) ReadAt(p []byte, off int64) (int, error) {
	return o.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext is ReadAt with a context for the GET request.
func (o *S3Object) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
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

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:  aws.String(o.bucket),
		Key:     aws.String(o.key),
		Range:   aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
		IfMatch: o.etag,
	})
	if err != nil {
		return 0, errors.NewError("readS3Source", err).WithMessage(fmt.Sprintf("s3://%s/%s", o.bucket, o.key))
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, p[:end-off+1])
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Stream fetches the whole object with one GET.
func (o *S3Object) Stream(ctx context.Context) (io.ReadCloser, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:  aws.String(o.bucket),
		Key:     aws.String(o.key),
		IfMatch: o.etag,
	})
	if err != nil {
		return nil, errors.NewError("streamS3Source", err).WithMessage(fmt.Sprintf("s3://%s/%s", o.bucket, o.key))
	}
	return out.Body, nil
}

// Name returns the base name of the key.
func (o *S3Object) Name() string {
	return path.Base(o.key)
}

// Size returns the object size.
func (o *S3Object) Size() int64 {
	return o.size
}

// ModTime returns the object's last modification time.
func (o *S3Object) ModTime() time.Time {
	return o.modTime
}

// Close is a no-op; every read closes its own response body.
func (o *S3Object) Close() error {
	return nil
}
