package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/testutil"
)

func TestBytes(t *testing.T) {
	src := Bytes("hello.txt", []byte("hello world"))

	assert.Equal(t, "hello.txt", src.Name())
	assert.Equal(t, int64(11), src.Size())
	assert.True(t, src.ModTime().IsZero())

	buf := make([]byte, 5)
	n, err := src.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))
	assert.NoError(t, src.Close())
}

func TestOpen(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "dir/report.bin", []byte("0123456789"), 0o644))

	f, err := Open(fs, "dir/report.bin")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, "report.bin", f.Name())
	assert.Equal(t, int64(10), f.Size())

	buf := make([]byte, 4)
	n, err := f.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(buf[:n]))
}

func TestOpen_Errors(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("dir", 0o755))

	_, err := Open(fs, "missing.bin")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(fs, "dir")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.dat")
	require.NoError(t, os.WriteFile(path, []byte("local data"), 0o600))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, "local.dat", f.Name())
	assert.Equal(t, int64(10), f.Size())
	assert.False(t, f.ModTime().IsZero())

	buf := make([]byte, 4)
	_, err = f.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "data", string(buf))
}

func parseRange(t *testing.T, header string) (int64, int64) {
	t.Helper()
	var beg, end int64
	_, err := fmt.Sscanf(header, "bytes=%d-%d", &beg, &end)
	require.NoError(t, err)
	return beg, end
}

func TestS3(t *testing.T) {
	data := testutil.NewTestDataGenerator(5).Bytes(100)
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			assert.Equal(t, "bucket", aws.ToString(in.Bucket))
			assert.Equal(t, "path/to/object.bin", aws.ToString(in.Key))
			return &s3.HeadObjectOutput{
				ContentLength: aws.Int64(int64(len(data))),
				LastModified:  aws.Time(modified),
				ETag:          aws.String(`"abc"`),
			}, nil
		},
		GetObjectFunc: func(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			assert.Equal(t, `"abc"`, aws.ToString(in.IfMatch))
			beg, end := parseRange(t, aws.ToString(in.Range))
			return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data[beg : end+1]))}, nil
		},
	}

	obj, err := S3(context.Background(), mock, "bucket", "path/to/object.bin")
	require.NoError(t, err)

	assert.Equal(t, "object.bin", obj.Name())
	assert.Equal(t, int64(100), obj.Size())
	assert.Equal(t, modified, obj.ModTime())

	buf := make([]byte, 30)
	n, err := obj.ReadAt(buf, 30)
	require.NoError(t, err)
	assert.Equal(t, data[30:60], buf[:n])

	// Last part runs past the end of the object
	n, err = obj.ReadAt(buf, 90)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 10, n)
	assert.Equal(t, data[90:], buf[:n])

	_, err = obj.ReadAt(buf, 100)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, obj.Close())
}

func TestS3_HeadError(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, fmt.Errorf("not found")
		},
	}

	_, err := S3(context.Background(), mock, "bucket", "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/key")
}

func TestMinio(t *testing.T) {
	data := testutil.NewTestDataGenerator(6).Bytes(64)

	mock := &testutil.MockMinioClient{
		StatObjectFunc: func(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
			assert.Equal(t, "bucket", bucket)
			return minio.ObjectInfo{Key: key, Size: int64(len(data)), ETag: "etag-1"}, nil
		},
		GetObjectFunc: func(
			_ context.Context, _, _ string, opts minio.GetObjectOptions,
		) (io.ReadCloser, minio.ObjectInfo, http.Header, error) {
			header := opts.Header()
			assert.Equal(t, `"etag-1"`, header.Get("If-Match"))
			beg, end := parseRange(t, header.Get("Range"))
			return io.NopCloser(bytes.NewReader(data[beg : end+1])), minio.ObjectInfo{}, http.Header{}, nil
		},
	}

	obj, err := Minio(context.Background(), mock, "bucket", "archive/data.tar")
	require.NoError(t, err)
	assert.Equal(t, "data.tar", obj.Name())
	assert.Equal(t, int64(64), obj.Size())

	buf := make([]byte, 16)
	n, err := obj.ReadAt(buf, 16)
	require.NoError(t, err)
	assert.Equal(t, data[16:32], buf[:n])

	buf = make([]byte, 32)
	n, err = obj.ReadAt(buf, 48)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, data[48:], buf[:n])
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 32)), "image/png"},
		{"pdf", []byte("%PDF-1.7\n" + strings.Repeat("x", 4096)), "application/pdf"},
		{"text", []byte("plain words"), "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectContentType(Bytes("f", tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
