package session

import (
	"errors"
	"fmt"

	"spicecomment/internal/commentsync"
	"spicecomment/internal/toolrun"
	"spicecomment/internal/tui/state"
)

var (
	// ErrRequestCorrelation is a response whose id has no pending request.
	ErrRequestCorrelation = errors.New("no pending request for response")
	// ErrSurfaceDisposed fails requests outstanding when the surface goes away.
	ErrSurfaceDisposed = errors.New("display surface disposed")
	// ErrBusy rejects an operation while another one runs on the document.
	ErrBusy = errors.New("another operation is in progress")
	// ErrNotEditable rejects edits and saves of a document whose comment
	// could not be read or whose file is read-only.
	ErrNotEditable = errors.New("document is not editable")

	ErrActionUnavailable = state.ErrActionUnavailable
)

// Describe turns err into the status text shown to the user. op names what
// was attempted, e.g. "Save".
func Describe(op string, err error) string {
	if err == nil {
		return ""
	}

	var dl *commentsync.DataLossError
	if errors.As(err, &dl) {
		if dl.Restored {
			return fmt.Sprintf("%s failed: the new comment could not be attached and the original was reattached, the file is unchanged (%v)", op, dl.Cause)
		}
		msg := fmt.Sprintf("%s failed: the comment was removed but not replaced (%v).", op, dl.Cause)
		if dl.ArtifactID != 0 {
			msg += fmt.Sprintf(" The original is kept as recovery artifact %d: run `spicecomment recover %s --id %d`.", dl.ArtifactID, dl.Path, dl.ArtifactID)
		}
		return msg
	}

	var di *commentsync.DeleteInterruptedError
	if errors.As(err, &di) {
		msg := fmt.Sprintf("%s interrupted: the comment may have been removed (%v).", op, di.Cause)
		if di.ArtifactID != 0 {
			msg += fmt.Sprintf(" The original is kept as recovery artifact %d: run `spicecomment recover %s --id %d` if the kernel has no comment.", di.ArtifactID, di.Path, di.ArtifactID)
		}
		return msg
	}

	switch {
	case errors.Is(err, toolrun.ErrToolNotConfigured):
		return fmt.Sprintf("%s unavailable: SPICE utilities not configured (%v)", op, err)
	case errors.Is(err, toolrun.ErrToolTimedOut):
		return fmt.Sprintf("%s failed, nothing changed: tool timed out (%v)", op, err)
	case errors.Is(err, toolrun.ErrToolExecutionFailed):
		return fmt.Sprintf("%s failed, nothing changed: %v", op, err)
	case errors.Is(err, ErrBusy):
		return fmt.Sprintf("%s rejected: another operation is still running", op)
	case errors.Is(err, ErrNotEditable):
		return fmt.Sprintf("%s rejected: this comment cannot be edited", op)
	case errors.Is(err, ErrActionUnavailable):
		return fmt.Sprintf("%s is not available here", op)
	case errors.Is(err, ErrSurfaceDisposed):
		return fmt.Sprintf("%s abandoned: the editor was closed", op)
	default:
		return fmt.Sprintf("%s failed: %v", op, err)
	}
}
