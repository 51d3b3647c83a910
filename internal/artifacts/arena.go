// Package artifacts provides a per-run arena for temporary artifacts: the
// uploaded tabular files and any scratch documents a pipeline run produces.
// The arena is owned exclusively by one run and is released on every exit
// path, regardless of which stage failed.
package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Arena is a scoped temporary directory holding one run's artifacts.
type Arena struct {
	dir string

	mu       sync.Mutex
	released bool
}

// NewArena creates the arena directory under root. The run ID is embedded in
// the directory name so stray directories can be traced back to a run.
func NewArena(root, runID string) (*Arena, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create arena root %s: %w", root, err)
	}
	dir, err := os.MkdirTemp(root, "run-"+runID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create arena directory: %w", err)
	}
	return &Arena{dir: dir}, nil
}

// Dir returns the arena directory path.
func (a *Arena) Dir() string {
	return a.dir
}

// AddFile streams r into a file named name inside the arena and returns its
// full path.
func (a *Arena) AddFile(name string, r io.Reader) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return "", fmt.Errorf("arena already released")
	}

	path := filepath.Join(a.dir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact %s: %w", name, err)
	}
	return path, nil
}

// WriteFile stores data as a file named name inside the arena and returns its
// full path.
func (a *Arena) WriteFile(name string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return "", fmt.Errorf("arena already released")
	}

	path := filepath.Join(a.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	return path, nil
}

// Release deletes the arena directory and everything in it. Release is
// idempotent; calling it twice is safe.
func (a *Arena) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("failed to release arena %s: %w", a.dir, err)
	}
	return nil
}
