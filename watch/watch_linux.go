//go:build linux

package watch

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// inotifySource reads inotify events from a non-blocking descriptor.
type inotifySource struct {
	fd int

	mu    sync.Mutex
	paths map[int32]string // watch descriptor -> path
}

func newSource() (source, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("watch: inotify_init1: %w", err)
	}
	return &inotifySource{fd: fd, paths: make(map[int32]string)}, nil
}

func (s *inotifySource) add(path string) error {
	wd, err := unix.InotifyAddWatch(s.fd, path, unix.IN_MODIFY|unix.IN_CLOSE_WRITE)
	if err != nil {
		return fmt.Errorf("watch: %s: %w", path, err)
	}
	s.mu.Lock()
	s.paths[int32(wd)] = path
	s.mu.Unlock()
	return nil
}

func (s *inotifySource) poll() ([]string, error) {
	buf := make([]byte, (unix.SizeofInotifyEvent+unix.NAME_MAX+1)*16)
	var changed []string
	for {
		n, err := unix.Read(s.fd, buf)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return changed, nil
		}
		if err != nil {
			return changed, fmt.Errorf("watch: reading inotify events: %w", err)
		}
		if n <= 0 {
			return changed, nil
		}
		for off := 0; off+unix.SizeofInotifyEvent <= n; {
			ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
			s.mu.Lock()
			path := s.paths[ev.Wd]
			s.mu.Unlock()
			if path != "" {
				changed = append(changed, path)
			}
			off += unix.SizeofInotifyEvent + int(ev.Len)
		}
	}
}

func (s *inotifySource) close() error {
	return unix.Close(s.fd)
}
