package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

const (
	// MaxFileNameLength is the longest file name the service accepts.
	MaxFileNameLength = 255

	// MaxConcurrency bounds the number of parts in flight for one upload.
	MaxConcurrency = 64
)

// ValidateFolderID validates a folder identifier. Identifiers are opaque to
// the client; only blank ones are rejected.
func ValidateFolderID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewError("validateFolderID", errors.ErrInvalidInput).
			WithMessage("folder id cannot be empty")
	}

	return nil
}

// ValidateFileName validates a file name against the service's naming rules.
func ValidateFileName(name string) error {
	if name == "" {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage("file name cannot be empty")
	}

	if utf8.RuneCountInString(name) > MaxFileNameLength {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("file name cannot exceed %d characters", MaxFileNameLength))
	}

	if name == "." || name == ".." {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage("file name cannot be . or ..")
	}

	if strings.ContainsAny(name, `/\`) {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage("file name cannot contain path separators")
	}

	if strings.TrimSpace(name) != name {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage("file name cannot have leading or trailing spaces")
	}

	if !utf8.ValidString(name) {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage("file name must be valid UTF-8")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.NewError("validateFileName", errors.ErrInvalidInput).
				WithMessage("file name cannot contain control characters")
		}
	}

	return nil
}

// ValidateConcurrency validates the number of parts uploaded in parallel.
func ValidateConcurrency(n int) error {
	if n < 1 || n > MaxConcurrency {
		return errors.NewError("validateConcurrency", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("concurrency %d must be between 1 and %d", n, MaxConcurrency))
	}
	return nil
}
