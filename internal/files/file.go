// Package files writes generator output. Every file is written to a
// temporary sibling and renamed into place on Close, so readers never see a
// partially written artifact.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Writer struct {
	dst     string   // Name of destination file
	tmp     *os.File // Temporary file to which data is written.
	tmpName string   // Name of temporary file.
	err     error
}

// NewWriter creates the parent directories of file if needed. Errors are
// reported by the first Write or Close.
func NewWriter(file string) *Writer {
	w := &Writer{dst: file}
	dir, base := filepath.Dir(file), filepath.Base(file)
	if w.err = os.MkdirAll(dir, 0o755); w.err != nil {
		return w
	}
	w.tmp, w.err = os.CreateTemp(dir, base+".tmp*")
	if w.err == nil {
		w.tmpName = w.tmp.Name()
	}

	return w
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}

	if w.tmp == nil {
		return 0, fmt.Errorf("file %s already closed", w.dst)
	}

	n, err = w.tmp.Write(p)
	if err != nil {
		w.err = err
	}

	return n, err
}

// Close publishes the file. On failure the temporary file is removed and
// the destination is left untouched.
func (w *Writer) Close() error {
	if w.err != nil {
		w.Cleanup()
		return w.err
	}
	if w.tmp == nil {
		return fmt.Errorf("file %s already closed", w.dst)
	}
	err := w.tmp.Close()
	w.tmp = nil
	if err != nil {
		_ = os.Remove(w.tmpName)
		return err
	}

	if err := os.Chmod(w.tmpName, 0o644); err != nil {
		_ = os.Remove(w.tmpName)
		return err
	}
	if err := os.Rename(w.tmpName, w.dst); err != nil {
		_ = os.Remove(w.tmpName)
		return err
	}

	return nil
}

// Cleanup discards the temporary file. It is a no-op after Close.
func (w *Writer) Cleanup() {
	if w.tmp == nil {
		return
	}
	_ = w.tmp.Close()
	w.tmp = nil
	_ = os.Remove(w.tmpName)
}

// WriteFile atomically replaces file with whatever fill writes.
func WriteFile(file string, fill func(io.Writer) error) error {
	w := NewWriter(file)
	if err := fill(w); err != nil {
		w.Cleanup()
		return fmt.Errorf("write %s: %w", file, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}
