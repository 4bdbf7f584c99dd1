package taskwatch

import "errors"

// Kind is the category of a long-running server task. It selects which
// status endpoint is polled.
type Kind string

const (
	// KindProcess is file processing (format conversion, parsing).
	KindProcess Kind = "process"
	// KindMask is GDPR data masking.
	KindMask Kind = "mask"
	// KindArchive is archive generation.
	KindArchive Kind = "archive"
)

// ErrInvalidKind is returned when polling is requested for an unknown task
// kind. This is a configuration error: no query is issued.
var ErrInvalidKind = errors.New("unknown task kind")

func (k Kind) valid() bool {
	switch k {
	case KindProcess, KindMask, KindArchive:
		return true
	}
	return false
}
