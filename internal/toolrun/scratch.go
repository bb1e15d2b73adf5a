package toolrun

import (
	"fmt"
	"os"
)

// WithScratchDir creates a uniquely named temporary directory, passes it to
// fn and removes it with all contents on every exit path, panics included.
func WithScratchDir(fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp("", "spicecomment-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil && err == nil {
			err = fmt.Errorf("remove scratch dir: %w", rmErr)
		}
	}()
	return fn(dir)
}
