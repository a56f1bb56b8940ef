package chunked

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

type createSessionRequest struct {
	FolderID string `json:"folder_id"`
	FileSize int64  `json:"file_size"`
	FileName string `json:"file_name"`
}

// sessionRecord is the service's session representation. Pointer fields
// tell absent values from zero values.
type sessionRecord struct {
	ID                *string                      `json:"id"`
	Type              string                       `json:"type"`
	TotalParts        *int                         `json:"total_parts"`
	PartSize          *int64                       `json:"part_size"`
	SessionExpiresAt  string                       `json:"session_expires_at"`
	SessionEndpoints  *chunktypes.SessionEndpoints `json:"session_endpoints"`
	NumPartsProcessed int                          `json:"num_parts_processed"`
}

// parseSession decodes and validates a session record. Every field the
// upload depends on must be present.
func parseSession(body []byte) (*chunktypes.UploadSession, error) {
	var rec sessionRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("malformed session record: %w", err)
	}

	var missing []string
	if rec.ID == nil || *rec.ID == "" {
		missing = append(missing, "id")
	}
	if rec.TotalParts == nil {
		missing = append(missing, "total_parts")
	}
	if rec.PartSize == nil {
		missing = append(missing, "part_size")
	}
	if rec.SessionEndpoints == nil {
		missing = append(missing, "session_endpoints")
	} else {
		if rec.SessionEndpoints.UploadPart == "" {
			missing = append(missing, "session_endpoints.upload_part")
		}
		if rec.SessionEndpoints.Commit == "" {
			missing = append(missing, "session_endpoints.commit")
		}
		if rec.SessionEndpoints.Abort == "" {
			missing = append(missing, "session_endpoints.abort")
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("session record lacks %s", strings.Join(missing, ", "))
	}

	if *rec.PartSize <= 0 {
		return nil, fmt.Errorf("session part_size %d must be positive", *rec.PartSize)
	}
	if *rec.TotalParts < 0 {
		return nil, fmt.Errorf("session total_parts %d is negative", *rec.TotalParts)
	}

	session := &chunktypes.UploadSession{
		ID:                *rec.ID,
		TotalParts:        *rec.TotalParts,
		PartSize:          *rec.PartSize,
		Endpoints:         *rec.SessionEndpoints,
		NumPartsProcessed: rec.NumPartsProcessed,
	}

	if rec.SessionExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, rec.SessionExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("session_expires_at: %w", err)
		}
		session.ExpiresAt = expiresAt
	}

	return session, nil
}

// sessionError tags a session creation failure.
func sessionError(err error) error {
	e := errors.NewError("createSession", errors.Classify(errors.ErrSessionCreation, err))
	var svc *errors.ServiceError
	if errors.As(err, &svc) {
		e = e.WithStatus(svc.StatusCode)
	}
	return e
}
