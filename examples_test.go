package chunked

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/source"
)

// exampleService is a minimal in-memory upload service for examples.
type exampleService struct {
	mu       sync.Mutex
	failAt   int64
	received map[int64]int
}

func newExampleService() *exampleService {
	return &exampleService{failAt: -1, received: make(map[int64]int)}
}

func (s *exampleService) Do(_ context.Context, req *chunktypes.Request) (*chunktypes.Response, error) {
	reply := func(status int, v any) (*chunktypes.Response, error) {
		body, _ := json.Marshal(v)
		return &chunktypes.Response{StatusCode: status, Header: http.Header{}, Body: body}, nil
	}

	switch {
	case req.Method == http.MethodPost && strings.HasSuffix(req.URL, "/files/upload_sessions"):
		var in struct {
			FileSize int64 `json:"file_size"`
		}
		_ = json.Unmarshal(req.Body, &in)
		return reply(http.StatusCreated, map[string]any{
			"id":          "SESSION1",
			"part_size":   4,
			"total_parts": (in.FileSize + 3) / 4,
			"session_endpoints": map[string]string{
				"upload_part": "mem://SESSION1",
				"commit":      "mem://SESSION1/commit",
				"abort":       "mem://SESSION1",
			},
		})
	case req.Method == http.MethodPut:
		var beg, end, total int64
		_, _ = fmt.Sscanf(req.Header.Get("Content-Range"), "bytes %d-%d/%d", &beg, &end, &total)
		if beg == s.failAt {
			return reply(http.StatusInternalServerError, map[string]string{"code": "internal_server_error"})
		}
		s.mu.Lock()
		s.received[beg]++
		s.mu.Unlock()
		return reply(http.StatusOK, map[string]any{
			"part": map[string]any{"part_id": fmt.Sprintf("P%d", beg), "offset": beg, "size": end - beg + 1},
		})
	case req.Method == http.MethodPost:
		return reply(http.StatusCreated, map[string]any{
			"entries": []map[string]any{{"type": "file", "id": "9001", "name": "notes.txt"}},
		})
	case req.Method == http.MethodDelete:
		return &chunktypes.Response{StatusCode: http.StatusNoContent}, nil
	}
	return reply(http.StatusNotFound, nil)
}

// Example_basic uploads a small file in four byte parts.
func Example_basic() {
	client, err := New(WithTransport(newExampleService()))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	src := source.Bytes("notes.txt", []byte("hello, chunked!"))
	result, err := client.Folder("0").Upload(context.Background(), src,
		WithUploadConcurrency(1),
		WithProgress(func(part chunktypes.PartRecord, partSize int64, totalParts int) {
			fmt.Printf("part %s done (%d parts of %d bytes)\n", part.PartID, totalParts, partSize)
		}),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("uploaded", result.File.Name, "as", result.File.ID)
	// Output:
	// part P0 done (4 parts of 4 bytes)
	// part P4 done (4 parts of 4 bytes)
	// part P8 done (4 parts of 4 bytes)
	// part P12 done (4 parts of 4 bytes)
	// uploaded notes.txt as 9001
}

// Example_stepByStep drives a session by hand, aborting instead of committing.
func Example_stepByStep() {
	client, _ := New(WithTransport(newExampleService()))
	ctx := context.Background()

	uploader, err := client.Folder("0").NewUploader(ctx, source.Bytes("notes.txt", []byte("12345678")))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	manifest, err := uploader.UploadParts(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, p := range manifest.Parts {
		fmt.Println(p.PartID, p.Offset, p.Size)
	}

	if err := uploader.Abort(ctx); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(uploader.State())
	// Output:
	// P0 0 4
	// P4 4 4
	// aborted
}

// Example_errorHandling shows how a failed part is reported.
func Example_errorHandling() {
	service := newExampleService()
	service.failAt = 8

	client, _ := New(WithTransport(service))
	_, err := client.Folder("0").Upload(context.Background(), source.Bytes("notes.txt", []byte("hello, chunked!")))

	if errors.IsPartUpload(err) {
		offset, _ := errors.PartOffset(err)
		fmt.Println("part upload failed at offset", offset)
		fmt.Println("code:", errors.CodeOf(err))
	}
	// Output:
	// part upload failed at offset 8
	// code: INTERNAL_ERROR
}
