package commentsync

import (
	"errors"
	"fmt"
)

// ErrSaveDataLossRisk means the original comment was deleted and the new one
// failed to attach. It is distinct from a plain failure where nothing changed.
var ErrSaveDataLossRisk = errors.New("comment removed but not replaced")

// ErrDeleteInterrupted means the delete was killed before it reported back,
// so the kernel may or may not still hold its original comment.
var ErrDeleteInterrupted = errors.New("comment delete interrupted")

// DataLossError reports the state of the kernel after a failed append.
type DataLossError struct {
	Path  string
	Cause error // the append failure
	// Restored is true when the original comment was reattached.
	Restored   bool
	RestoreErr error
	// ArtifactID identifies the retained original in the journal, 0 if none.
	ArtifactID int64
}

func (e *DataLossError) Error() string {
	if e.Restored {
		return fmt.Sprintf("append comment to %s: %v (original comment reattached)", e.Path, e.Cause)
	}
	msg := fmt.Sprintf("append comment to %s: %v: original comment removed", e.Path, e.Cause)
	if e.RestoreErr != nil {
		msg += fmt.Sprintf(", reattach failed: %v", e.RestoreErr)
	}
	if e.ArtifactID != 0 {
		msg += fmt.Sprintf(" (recovery artifact %d)", e.ArtifactID)
	}
	return msg
}

func (e *DataLossError) Unwrap() []error {
	return []error{ErrSaveDataLossRisk, e.Cause}
}

// DeleteInterruptedError reports a delete that timed out or was cancelled.
// The original stays in the journal as ArtifactID.
type DeleteInterruptedError struct {
	Path       string
	Cause      error
	ArtifactID int64
}

func (e *DeleteInterruptedError) Error() string {
	msg := fmt.Sprintf("delete comment of %s: %v: the comment may have been removed", e.Path, e.Cause)
	if e.ArtifactID != 0 {
		msg += fmt.Sprintf(" (recovery artifact %d)", e.ArtifactID)
	}
	return msg
}

func (e *DeleteInterruptedError) Unwrap() []error {
	return []error{ErrDeleteInterrupted, e.Cause}
}
