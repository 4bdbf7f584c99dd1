package transfer

import "fmt"

// WholeFile marks a TransferError that happened on a single whole-file
// request instead of an individual chunk.
const WholeFile = -1

// ValidationError is returned when a file fails the local pre-upload checks.
// No network call is made when this error is returned.
type ValidationError struct {
	FileName string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Reason)
}

// TransferError is returned when an upload request fails. The upload is
// aborted at that point: chunks before ChunkIndex have been sent, nothing
// after it is attempted, and no rollback is requested from the server.
type TransferError struct {
	FileName   string
	ChunkIndex int
	Err        error
}

func (e *TransferError) Error() string {
	if e.ChunkIndex == WholeFile {
		return fmt.Sprintf("upload %s: %s", e.FileName, e.Err)
	}
	return fmt.Sprintf("upload %s chunk %d: %s", e.FileName, e.ChunkIndex, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
