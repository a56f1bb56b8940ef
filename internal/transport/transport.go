package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

// maxErrorBody bounds how much of a failed response is buffered.
const maxErrorBody = 64 * 1024

// HTTP is a chunktypes.Transport backed by an *http.Client.
type HTTP struct {
	client *http.Client
}

// New creates a transport. A nil client selects http.DefaultClient.
func New(client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{client: client}
}

// NewClient returns an HTTP client that authenticates every request with
// tokens from ts. The base client supplies the underlying round tripper;
// timeout, when positive, bounds every request.
func NewClient(base *http.Client, ts oauth2.TokenSource, timeout time.Duration) *http.Client {
	client := base
	if ts != nil {
		ctx := context.Background()
		if base != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		}
		client = oauth2.NewClient(ctx, ts)
	}
	if client == nil {
		client = &http.Client{}
	}
	if timeout > 0 {
		c := *client
		c.Timeout = timeout
		client = &c
	}
	return client
}

// Do implements chunktypes.Transport.
func (t *HTTP) Do(ctx context.Context, req *chunktypes.Request) (*chunktypes.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.NewError("newRequest", errors.ErrInvalidInput).WithMessage(err.Error())
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil {
		httpReq.ContentLength = int64(len(req.Body))
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	reader := io.Reader(httpResp.Body)
	if httpResp.StatusCode >= 300 {
		reader = io.LimitReader(reader, maxErrorBody)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &chunktypes.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// CheckStatus converts a non-2xx response into a *errors.ServiceError.
func CheckStatus(resp *chunktypes.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return errors.ParseServiceError(resp.StatusCode, resp.Header, resp.Body)
}

// JSON sends in (when non-nil) as a JSON body and decodes a 2xx response
// into out (when non-nil). Non-2xx responses yield a *errors.ServiceError.
func JSON(
	ctx context.Context,
	t chunktypes.Transport,
	method, url string,
	header http.Header,
	in, out any,
) (*chunktypes.Response, error) {
	req := &chunktypes.Request{Method: method, URL: url, Header: header.Clone()}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		req.Body = body
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := CheckStatus(resp); err != nil {
		return resp, err
	}

	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp, nil
}
