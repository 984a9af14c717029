// Package logging provides the size-capped log file the server writes to
// alongside stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileWriter appends to a log file and, once the file passes the size cap,
// renames it to a timestamped backup and starts fresh. Old backups beyond
// keep are pruned.
type FileWriter struct {
	mu   sync.Mutex
	path string
	cap  int64
	keep int
	file *os.File
	size int64
}

func NewFileWriter(path string, capBytes int64, keep int) (*FileWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}
	if capBytes <= 0 {
		return nil, fmt.Errorf("size cap must be positive")
	}
	if keep < 0 {
		keep = 0
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	w := &FileWriter{path: path, cap: capBytes, keep: keep}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	// A single oversized line is still written whole into a fresh file.
	if w.size > 0 && w.size+int64(len(p)) > w.cap {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *FileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	if stat, err := f.Stat(); err == nil {
		w.size = stat.Size()
	}
	return nil
}

func (w *FileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	if w.keep == 0 {
		if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	} else {
		backup := fmt.Sprintf("%s.%s", w.path, time.Now().UTC().Format("20060102T150405.000"))
		if err := os.Rename(w.path, backup); err != nil && !os.IsNotExist(err) {
			return err
		}
		w.prune()
	}

	return w.open()
}

// prune drops the oldest backups beyond keep. The timestamp suffix sorts
// lexicographically, so plain string order is age order.
func (w *FileWriter) prune() {
	backups, err := filepath.Glob(w.path + ".*")
	if err != nil || len(backups) <= w.keep {
		return
	}
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-w.keep] {
		_ = os.Remove(old)
	}
}
