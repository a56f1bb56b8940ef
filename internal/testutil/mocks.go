package testutil

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
)

// MockTransport is a mock implementation of chunktypes.Transport for testing.
// Every request is recorded; DoFunc customizes the response.
type MockTransport struct {
	DoFunc func(context.Context, *chunktypes.Request) (*chunktypes.Response, error)

	mu       sync.Mutex
	requests []*chunktypes.Request
}

// Do records req and delegates to DoFunc. Without DoFunc it answers 200 with an empty JSON object.
func (m *MockTransport) Do(ctx context.Context, req *chunktypes.Request) (*chunktypes.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.DoFunc != nil {
		return m.DoFunc(ctx, req)
	}
	return &chunktypes.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(`{}`)}, nil
}

// Requests returns the recorded requests in arrival order.
func (m *MockTransport) Requests() []*chunktypes.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*chunktypes.Request(nil), m.requests...)
}

// JSONResponse builds a response with the given status and raw JSON body.
func JSONResponse(status int, body string) *chunktypes.Response {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &chunktypes.Response{StatusCode: status, Header: header, Body: []byte(body)}
}

// MockS3Client is a mock of the S3 operations object sources use.
type MockS3Client struct {
	HeadObjectFunc func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObjectFunc  func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// HeadObject mocks the S3 HeadObject operation.
func (m *MockS3Client) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	optFns ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return &s3.HeadObjectOutput{}, nil
}

// GetObject mocks the S3 GetObject operation.
func (m *MockS3Client) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return &s3.GetObjectOutput{}, nil
}

// MockMinioClient is a mock of the MinIO core operations object sources use.
type MockMinioClient struct {
	StatObjectFunc func(context.Context, string, string, minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObjectFunc  func(context.Context, string, string, minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, http.Header, error)
}

// StatObject mocks the MinIO StatObject operation.
func (m *MockMinioClient) StatObject(
	ctx context.Context,
	bucket, key string,
	opts minio.StatObjectOptions,
) (minio.ObjectInfo, error) {
	if m.StatObjectFunc != nil {
		return m.StatObjectFunc(ctx, bucket, key, opts)
	}
	return minio.ObjectInfo{}, nil
}

// GetObject mocks the MinIO core GetObject operation.
func (m *MockMinioClient) GetObject(
	ctx context.Context,
	bucket, key string,
	opts minio.GetObjectOptions,
) (io.ReadCloser, minio.ObjectInfo, http.Header, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, bucket, key, opts)
	}
	return io.NopCloser(strings.NewReader("")), minio.ObjectInfo{}, http.Header{}, nil
}
