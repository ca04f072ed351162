package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// tempFilePrefix marks in-progress atomic writes so a crashed run's
// leftovers are recognizable.
const tempFilePrefix = ".confluence-tmp-"

// copyFileAtomic streams r into filename by writing a temp file in the
// target directory and renaming it into place, so a reader never
// observes a half-written file. The source is copied incrementally and
// is never buffered in full.
func copyFileAtomic(filename string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	tmp, err := os.CreateTemp(dir, tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}

// writeFileAtomic writes data to filename with the same atomicity
// guarantee as copyFileAtomic.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return copyFileAtomic(filename, bytes.NewReader(data), perm)
}
