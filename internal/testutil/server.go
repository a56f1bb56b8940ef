package testutil

import (
	"crypto/sha1" //nolint:gosec // the session protocol uses SHA-1
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// FakeServer is an in-process upload service implementing the session
// endpoints. Parts are checked against their content-range and digest
// headers, and the commit digest is checked against the assembled file.
type FakeServer struct {
	server   *httptest.Server
	partSize int64

	mu            sync.Mutex
	sessions      map[string]*fakeSession
	partFailures  map[int64]int
	delay         func(offset int64) time.Duration
	commitStatus  int
	pending       int
	totalParts    int
	createBody    string
	hexPartSHA1   bool
	inFlight      int
	maxInFlight   int
	commits       int
	aborts        int
	authorization string
}

type fakeSession struct {
	id        string
	folderID  string
	name      string
	size      int64
	total     int
	parts     map[int64]fakePart
	aborted   bool
	committed bool
	data      []byte
	modified  string
}

type fakePart struct {
	PartID string `json:"part_id"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
	SHA1   string `json:"sha1"`
	data   []byte
}

// NewFakeServer starts a fake upload service dictating partSize for every
// session. It is closed when the test finishes.
func NewFakeServer(t *testing.T, partSize int64) *FakeServer {
	t.Helper()

	f := &FakeServer{
		partSize:     partSize,
		sessions:     make(map[string]*fakeSession),
		partFailures: make(map[int64]int),
		hexPartSHA1:  true,
	}

	r := chi.NewRouter()
	r.Use(f.recordAuth)
	r.Post("/files/upload_sessions", f.createSession)
	r.Route("/files/upload_sessions/{id}", func(r chi.Router) {
		r.Put("/", f.uploadPart)
		r.Get("/", f.status)
		r.Delete("/", f.abort)
		r.Get("/parts", f.listParts)
		r.Post("/commit", f.commit)
		r.Get("/log", f.logEvent)
	})

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the upload base URL of the server.
func (f *FakeServer) URL() string {
	return f.server.URL
}

// Client returns an HTTP client for the server.
func (f *FakeServer) Client() *http.Client {
	return f.server.Client()
}

// FailPart makes every upload of the part at offset fail with status.
func (f *FakeServer) FailPart(offset int64, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partFailures[offset] = status
}

// DelayParts delays each part upload by the duration fn returns for its offset.
func (f *FakeServer) DelayParts(fn func(offset int64) time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = fn
}

// FailCommit makes commit calls fail with status.
func (f *FakeServer) FailCommit(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitStatus = status
}

// CommitPending makes the next n commit calls answer 202 Accepted.
func (f *FakeServer) CommitPending(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = n
}

// InFlight returns the number of part uploads currently being served.
func (f *FakeServer) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// SetTotalParts makes new sessions report n parts regardless of file size.
func (f *FakeServer) SetTotalParts(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalParts = n
}

// SetCreateResponse replaces the body of the session creation response.
func (f *FakeServer) SetCreateResponse(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createBody = body
}

// ReportBase64SHA1 makes part acknowledgments carry base64 instead of hex digests.
func (f *FakeServer) ReportBase64SHA1() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hexPartSHA1 = false
}

// MaxInFlight returns the largest number of concurrent part uploads seen.
func (f *FakeServer) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// Commits returns the number of commit calls received.
func (f *FakeServer) Commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

// Aborts returns the number of abort calls received.
func (f *FakeServer) Aborts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aborts
}

// Authorization returns the last Authorization header received.
func (f *FakeServer) Authorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authorization
}

// CommittedFile returns the bytes and name of a committed session.
func (f *FakeServer) CommittedFile(sessionID string) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || !s.committed {
		return nil, "", false
	}
	return s.data, s.name, true
}

// ContentModifiedAt returns the content_modified_at attribute a session was committed with.
func (f *FakeServer) ContentModifiedAt(sessionID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		return s.modified
	}
	return ""
}

// UploadedOffsets returns the offsets of the stored parts of a session, ascending.
func (f *FakeServer) UploadedOffsets(sessionID string) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil
	}
	offsets := make([]int64, 0, len(s.parts))
	for off := range s.parts {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}

func (f *FakeServer) recordAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authorization = r.Header.Get("Authorization")
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeServer) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID string `json:"folder_id"`
		FileSize int64  `json:"file_size"`
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.FolderID == "" || req.FileName == "" || req.FileSize <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "folder_id, file_name and a positive file_size are required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createBody != "" {
		writeJSON(w, http.StatusCreated, json.RawMessage(f.createBody))
		return
	}

	total := int((req.FileSize + f.partSize - 1) / f.partSize)
	if f.totalParts > 0 {
		total = f.totalParts
	}

	s := &fakeSession{
		id:       strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
		folderID: req.FolderID,
		name:     req.FileName,
		size:     req.FileSize,
		total:    total,
		parts:    make(map[int64]fakePart),
	}
	f.sessions[s.id] = s

	writeJSON(w, http.StatusCreated, f.sessionJSON(s))
}

func (f *FakeServer) sessionJSON(s *fakeSession) map[string]any {
	base := f.server.URL + "/files/upload_sessions/" + s.id
	return map[string]any{
		"id":                  s.id,
		"type":                "upload_session",
		"part_size":           f.partSize,
		"total_parts":         s.total,
		"num_parts_processed": len(s.parts),
		"session_expires_at":  time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"session_endpoints": map[string]string{
			"upload_part": base,
			"commit":      base + "/commit",
			"abort":       base,
			"list_parts":  base + "/parts",
			"status":      base,
			"log_event":   base + "/log",
		},
	}
}

// session looks up the session named in the route; it writes the error response itself.
func (f *FakeServer) session(w http.ResponseWriter, r *http.Request) (*fakeSession, bool) {
	s, ok := f.sessions[chi.URLParam(r, "id")]
	if !ok || s.aborted {
		writeError(w, http.StatusNotFound, "not_found", "upload session not found")
		return nil, false
	}
	return s, true
}

func (f *FakeServer) uploadPart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	f.mu.Lock()
	s, ok := f.session(w, r)
	if !ok {
		f.mu.Unlock()
		return
	}
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	partSize := f.partSize
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	var beg, end, total int64
	if _, err := fmt.Sscanf(r.Header.Get("Content-Range"), "bytes %d-%d/%d", &beg, &end, &total); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed content-range")
		return
	}

	if delay != nil {
		select {
		case <-time.After(delay(beg)):
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	status, fail := f.partFailures[beg]
	hexSHA := f.hexPartSHA1
	f.mu.Unlock()
	if fail {
		writeError(w, status, "internal_server_error", "injected failure")
		return
	}

	switch {
	case r.Header.Get("Content-Type") != "application/octet-stream":
		writeError(w, http.StatusBadRequest, "bad_request", "content-type must be application/octet-stream")
		return
	case total != s.size || end < beg || end >= total || int64(len(body)) != end-beg+1:
		writeError(w, http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable", "content-range does not match body")
		return
	case beg%partSize != 0 || (int64(len(body)) != partSize && end != total-1):
		writeError(w, http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable", "part is not aligned to the part size")
		return
	}

	sum := sha1.Sum(body) //nolint:gosec
	if r.Header.Get("Digest") != "sha="+base64.StdEncoding.EncodeToString(sum[:]) {
		writeError(w, http.StatusPreconditionFailed, "sha1_mismatch", "digest does not match part content")
		return
	}

	reported := base64.StdEncoding.EncodeToString(sum[:])
	if hexSHA {
		reported = hex.EncodeToString(sum[:])
	}
	part := fakePart{
		PartID: strings.ToUpper(uuid.NewString()[:8]),
		Offset: beg,
		Size:   int64(len(body)),
		SHA1:   reported,
		data:   body,
	}

	f.mu.Lock()
	s.parts[beg] = part
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"part": part})
}

func (f *FakeServer) status(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f.sessionJSON(s))
}

func (f *FakeServer) abort(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.aborts++
	s, ok := f.session(w, r)
	if !ok {
		return
	}
	s.aborted = true
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeServer) listParts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.session(w, r)
	if !ok {
		return
	}

	parts := make([]fakePart, 0, len(s.parts))
	for _, p := range s.parts {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Offset < parts[j].Offset })

	writeJSON(w, http.StatusOK, map[string]any{
		"entries":     parts,
		"total_count": len(parts),
		"offset":      0,
		"limit":       1000,
	})
}

func (f *FakeServer) logEvent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":         "event",
		"event_type":   "UPLOAD_SESSION_PARTS",
		"session_id":   s.id,
		"parts_stored": len(s.parts),
	})
}

func (f *FakeServer) commit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parts      []fakePart `json:"parts"`
		Attributes *struct {
			ContentModifiedAt string `json:"content_modified_at"`
		} `json:"attributes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.commits++
	s, ok := f.session(w, r)
	if !ok {
		return
	}
	if f.commitStatus != 0 {
		writeError(w, f.commitStatus, "commit_failed", "injected failure")
		return
	}
	if f.pending > 0 {
		f.pending--
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if len(req.Parts) != s.total || len(s.parts) != s.total {
		writeError(w, http.StatusBadRequest, "bad_request", "manifest does not list every part")
		return
	}

	data := make([]byte, 0, s.size)
	var next int64
	for _, p := range req.Parts {
		stored, ok := s.parts[p.Offset]
		if !ok || p.Offset != next || stored.PartID != p.PartID || stored.Size != p.Size {
			writeError(w, http.StatusBadRequest, "bad_request", "manifest parts out of order or unknown")
			return
		}
		data = append(data, stored.data...)
		next += p.Size
	}

	sum := sha1.Sum(data) //nolint:gosec
	if r.Header.Get("Digest") != "sha="+base64.StdEncoding.EncodeToString(sum[:]) {
		writeError(w, http.StatusPreconditionFailed, "sha1_mismatch", "digest does not match file content")
		return
	}

	s.committed = true
	s.data = data
	if req.Attributes != nil {
		s.modified = req.Attributes.ContentModifiedAt
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"total_count": 1,
		"entries": []map[string]any{{
			"type": "file",
			"id":   fmt.Sprintf("%d", 1000+len(f.sessions)),
			"name": s.name,
			"size": s.size,
			"sha1": hex.EncodeToString(sum[:]),
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"type":       "error",
		"status":     status,
		"code":       code,
		"message":    message,
		"request_id": uuid.NewString(),
	})
}
