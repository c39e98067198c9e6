//go:build !linux

package watch

import (
	"os"
	"sync"
	"time"
)

// statSource compares modification times on every poll.
type statSource struct {
	mu    sync.Mutex
	mtime map[string]time.Time
}

func newSource() (source, error) {
	return &statSource{mtime: make(map[string]time.Time)}, nil
}

func (s *statSource) add(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.mtime[path] = fi.ModTime()
	s.mu.Unlock()
	return nil
}

func (s *statSource) poll() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed []string
	for path, last := range s.mtime {
		fi, err := os.Stat(path)
		if err != nil {
			// The file may be mid-replace; try again next poll.
			continue
		}
		if !fi.ModTime().Equal(last) {
			s.mtime[path] = fi.ModTime()
			changed = append(changed, path)
		}
	}
	return changed, nil
}

func (s *statSource) close() error {
	return nil
}
