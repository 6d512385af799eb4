// Package atomicio provides the write-temp-then-rename pattern used
// throughout Jin's persisted state (staging index, jinmap, workspace
// metadata, write-ahead log, composed files) so a process interrupted
// mid-write always leaves either the old or the new content, never a
// half-written blend.
package atomicio

import (
	"os"
	"path/filepath"
)

// WriteFile atomically replaces path with data. The result always has mode
// perm, whether or not path existed before (the temp file is chmod'ed to
// perm and then renamed over path).
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
