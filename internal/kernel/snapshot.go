package kernel

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// Snapshot is everything a session needs to seed or refresh a document.
type Snapshot struct {
	Comment    string
	Brief      string
	CommentErr error
	BriefErr   error
	Exists     bool
	// Editable is false when the comment could not be retrieved or the file
	// cannot be opened for writing.
	Editable bool
}

// Load extracts comment and brief for path. A path that does not exist gives
// an empty, non-editable snapshot and runs no tool.
func (e *Extractor) Load(ctx context.Context, path string) Snapshot {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}
	}

	s := Snapshot{Exists: true}
	s.Comment, s.CommentErr = e.ExtractComment(ctx, path)
	s.Brief, s.BriefErr = e.ExtractBrief(ctx, path)
	s.Editable = s.CommentErr == nil && Writable(path)
	return s
}

// Writable reports whether path can be opened for writing. The file is not
// modified.
func Writable(path string) bool {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
