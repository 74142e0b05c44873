package ingest

import (
	"errors"
	"fmt"

	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
)

var (
	ErrDecode     = fingerprint.ErrDecode
	ErrDuplicate  = errors.New("ingest: duplicate media")
	ErrValidation = errors.New("ingest: invalid request")
	ErrForbidden  = errors.New("ingest: collection not accessible")
	// ErrUpstream marks failures of the embedding service before anything was stored.
	ErrUpstream = errors.New("ingest: upstream failed")
)

// DuplicateError carries the id of the media that already owns the fingerprint.
type DuplicateError struct {
	MediaID     string
	Fingerprint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate media: fingerprint %s already stored as %s", e.Fingerprint, e.MediaID)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Outcome names the result of an ingestion run for metrics.
func Outcome(res *Result, err error) string {
	switch {
	case err == nil && res != nil && len(res.Degraded) > 0:
		return "degraded"
	case err == nil:
		return "stored"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrDecode):
		return "invalid_image"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUpstream):
		return "upstream_failed"
	default:
		return "error"
	}
}
