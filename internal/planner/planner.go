package planner

import (
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

// Plan splits [0, fileSize) into consecutive ranges of partSize bytes. The
// last range is clipped to end exactly at fileSize. A zero-byte file yields a
// single zero-length range.
func Plan(fileSize, partSize int64) ([]chunktypes.Range, error) {
	if fileSize < 0 {
		return nil, errors.NewError("plan", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("file size %d is negative", fileSize))
	}
	if partSize <= 0 {
		return nil, errors.NewError("plan", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("part size %d must be positive", partSize))
	}

	if fileSize == 0 {
		return []chunktypes.Range{{Offset: 0, End: 0}}, nil
	}

	ranges := make([]chunktypes.Range, 0, Count(fileSize, partSize))
	for offset := int64(0); offset < fileSize; offset += partSize {
		end := offset + partSize
		if end > fileSize {
			end = fileSize
		}
		ranges = append(ranges, chunktypes.Range{Offset: offset, End: end})
	}

	return ranges, nil
}

// Count returns the number of ranges Plan produces for the given sizes.
func Count(fileSize, partSize int64) int {
	if fileSize == 0 {
		return 1
	}
	return int((fileSize + partSize - 1) / partSize) // Ceiling division
}

// Verify checks that ranges match the part count the session declared.
func Verify(ranges []chunktypes.Range, totalParts int) error {
	if len(ranges) != totalParts {
		return errors.NewError("verifyPlan", errors.ErrConsistency).
			WithMessage(fmt.Sprintf("planned %d parts, session expects %d", len(ranges), totalParts))
	}
	return nil
}

// PlanSession plans ranges for session and verifies them in one step.
func PlanSession(session *chunktypes.UploadSession, fileSize int64) ([]chunktypes.Range, error) {
	ranges, err := Plan(fileSize, session.PartSize)
	if err != nil {
		return nil, err
	}
	if len(ranges) != session.TotalParts {
		return nil, errors.NewSessionError("verifyPlan", session.ID, errors.ErrConsistency).
			WithMessage(fmt.Sprintf("planned %d parts, session expects %d", len(ranges), session.TotalParts))
	}
	return ranges, nil
}
