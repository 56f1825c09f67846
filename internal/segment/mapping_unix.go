//go:build unix

package segment

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ryogrid/ftsengine/internal/status"
)

// mapping wraps an mmap'd view of a segment.File's header + body region,
// remapped whenever the file grows.
type mapping struct {
	data []byte
}

func (m *mapping) open(f *os.File, headerSize int64) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("segment: stat: %w", status.ErrSyscall)
	}
	return m.remap(f, headerSize, info.Size()-headerSize)
}

func (m *mapping) remap(f *os.File, headerSize, bodySize int64) error {
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return fmt.Errorf("segment: munmap: %w", status.ErrSyscall)
		}
		m.data = nil
	}
	total := headerSize + bodySize
	if total == 0 {
		total = headerSize
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(total), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("segment: mmap: %w", status.ErrSyscall)
	}
	m.data = data
	return nil
}

func (m *mapping) header(headerSize int64) []byte {
	return m.data[:headerSize]
}

func (m *mapping) body(headerSize, bodySize int64) []byte {
	return m.data[headerSize : headerSize+bodySize]
}

func (m *mapping) sync() error {
	if m.data == nil {
		return nil
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

func (m *mapping) close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if err != nil {
		return fmt.Errorf("segment: munmap: %w", status.ErrSyscall)
	}
	return nil
}
