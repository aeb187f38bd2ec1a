package effectlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// rotatingFile appends to path. Once it has grown to limit bytes, the next
// write first shifts path to path.1 (path.1 to path.2 and so on), dropping
// anything past keep generations.
type rotatingFile struct {
	path  string
	limit int64
	keep  int

	mu   sync.Mutex
	f    *os.File
	size int64
}

func openRotating(path string, limit int64, keep int) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	r := &rotatingFile{path: path, limit: limit, keep: keep}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open effect log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat effect log: %w", err)
	}
	r.f = f
	r.size = info.Size()
	return nil
}

func (r *rotatingFile) generation(n int) string {
	return fmt.Sprintf("%s.%d", r.path, n)
}

// shift moves every generation up by one and starts an empty file.
func (r *rotatingFile) shift() error {
	r.f.Close()
	r.f = nil

	if r.keep <= 0 {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return r.open()
	}

	os.Remove(r.generation(r.keep))
	for n := r.keep - 1; n >= 1; n-- {
		os.Rename(r.generation(n), r.generation(n+1))
	}
	if err := os.Rename(r.path, r.generation(1)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return r.open()
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return 0, os.ErrClosed
	}
	if r.limit > 0 && r.size >= r.limit {
		if err := r.shift(); err != nil {
			fmt.Fprintf(os.Stderr, "effect log rotation failed: %v\n", err)
			if r.f == nil {
				return 0, err
			}
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
