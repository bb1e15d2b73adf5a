package kernel

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Companions names the sibling directories and filename patterns used to
// find the leapseconds and spacecraft clock kernels for ckbrief.
type Companions struct {
	LSKDir      string
	LSKPattern  string
	SCLKDir     string
	SCLKPattern string
}

// findCompanion returns the most recently modified file matching pattern in
// dir, where dir is resolved against the parent of the target's directory.
// It returns "" when the directory is missing or nothing matches.
func findCompanion(target, dir, pattern string) (string, error) {
	if dir == "" || pattern == "" {
		return "", nil
	}
	base := filepath.Join(filepath.Dir(filepath.Dir(target)), dir)
	fi, err := os.Stat(base)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !fi.IsDir()) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", err
	}

	var (
		best     string
		bestTime int64
	)
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(base, filepath.FromSlash(m)))
		if err != nil {
			continue
		}
		mt := info.ModTime().UnixNano()
		// ties go to the lexically greater name so the pick is stable
		if best == "" || mt > bestTime || (mt == bestTime && m > best) {
			best, bestTime = m, mt
		}
	}
	if best == "" {
		return "", nil
	}
	return filepath.Join(base, filepath.FromSlash(best)), nil
}
