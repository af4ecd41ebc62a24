package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// StagedFile is a fully written temporary file waiting to replace its
// target. Exactly one of Commit and Discard must be called.
type StagedFile struct {
	path    string
	tmpPath string
}

// StageFile writes the output of fn to a temporary file in path's directory
// without touching path. On any failure the temporary file is removed.
func StageFile(path string, fn func(w *bufio.Writer) error) (*StagedFile, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		cleanup()
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return &StagedFile{path: path, tmpPath: tmpPath}, nil
}

// Commit renames the staged file over its target.
func (s *StagedFile) Commit() error {
	if err := os.Rename(s.tmpPath, s.path); err != nil {
		os.Remove(s.tmpPath)
		return fmt.Errorf("renaming %s: %w", s.path, err)
	}
	return nil
}

// Discard removes the staged file, leaving the target untouched.
func (s *StagedFile) Discard() {
	os.Remove(s.tmpPath)
}

// WriteFileAtomic writes the output of fn to path via a temporary file in the
// same directory, renamed over path only when fn and the flush succeed. On
// any failure the temporary file is removed and path is left untouched.
func WriteFileAtomic(path string, fn func(w *bufio.Writer) error) error {
	staged, err := StageFile(path, fn)
	if err != nil {
		return err
	}
	return staged.Commit()
}
