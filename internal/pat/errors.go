package pat

import (
	"fmt"
	"os"

	"github.com/ryogrid/ftsengine/internal/status"
)

func removeFile(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("pat: remove %s: %w", path, status.ErrNotFound)
		}
		return fmt.Errorf("pat: remove %s: %w", path, status.ErrSyscall)
	}
	return nil
}

func errInvalidKey(n int) error {
	return fmt.Errorf("pat: key too long (%d bytes): %w", n, status.ErrInvalidArg)
}

func errNotFound(key []byte) error {
	return fmt.Errorf("pat: key not found (%d bytes): %w", len(key), status.ErrNotFound)
}

func errEndOfData() error {
	return fmt.Errorf("pat: no matching entries: %w", status.ErrEndOfData)
}
