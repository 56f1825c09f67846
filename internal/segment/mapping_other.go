//go:build !unix

package segment

import (
	"fmt"
	"os"

	"github.com/ryogrid/ftsengine/internal/status"
)

// mapping on non-unix platforms falls back to a read-into-memory,
// write-back-on-sync buffer: there is no portable mmap in the standard
// library, and the teacher's own platform split (e.g.
// internal/storage/dolt/server_windows.go) stubs the unix-only behavior
// rather than reimplementing it with cgo or a third-party mmap package.
type mapping struct {
	f    *os.File
	data []byte
}

func (m *mapping) open(f *os.File, headerSize int64) error {
	m.f = f
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("segment: stat: %w", status.ErrSyscall)
	}
	return m.remap(f, headerSize, info.Size()-headerSize)
}

func (m *mapping) remap(f *os.File, headerSize, bodySize int64) error {
	total := headerSize + bodySize
	buf := make([]byte, total)
	if _, err := f.ReadAt(buf, 0); err != nil && total > 0 {
		return fmt.Errorf("segment: read: %w", status.ErrSyscall)
	}
	m.data = buf
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
	_, err := m.f.WriteAt(m.data, 0)
	return err
}

func (m *mapping) close() error {
	return m.sync()
}
