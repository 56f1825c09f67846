package cache

import (
	"fmt"
	"os"

	"github.com/ryogrid/ftsengine/internal/pat"
	"github.com/ryogrid/ftsengine/internal/status"
)

// Remove deletes a cache table's files, including its lexicon trie. The
// table must not be open.
func Remove(path string) error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	note(pat.Remove(path + ".lex"))
	note(removeFile(path + ".dir"))
	note(removeFile(path + ".val"))
	return firstErr
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: remove %s: %w", path, status.ErrSyscall)
	}
	return nil
}
