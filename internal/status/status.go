// Package status defines the abstract error kinds shared by every storage
// and protocol layer in the engine (spec.md §7) and the sentinel errors that
// carry them, grounded on the teacher's plain sentinel-error style in
// internal/rpc/errors.go.
package status

import "errors"

// Code is one of the abstract error kinds of spec.md §7. Operations
// document which codes they can return; callers compare with errors.Is
// against the sentinels below, not against Code directly.
type Code int

const (
	Success Code = iota
	EndOfData
	InvalidArg
	NoMemory
	Syscall
	FileCorrupt
	NotFound
	AlreadyExists
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case EndOfData:
		return "end_of_data"
	case InvalidArg:
		return "invalid_arg"
	case NoMemory:
		return "no_memory"
	case Syscall:
		return "syscall"
	case FileCorrupt:
		return "file_corrupt"
	case NotFound:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per non-success Code. Operation implementations
// return these directly or wrap them with fmt.Errorf("...: %w", ...).
var (
	ErrEndOfData     = errors.New("end of data")
	ErrInvalidArg    = errors.New("invalid argument")
	ErrNoMemory      = errors.New("allocation failed")
	ErrSyscall       = errors.New("system call failed")
	ErrFileCorrupt   = errors.New("file corrupt")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// CodeOf maps err (possibly wrapped) to its abstract Code, defaulting to
// Syscall for unrecognized non-nil errors and Success for nil.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrEndOfData):
		return EndOfData
	case errors.Is(err, ErrInvalidArg):
		return InvalidArg
	case errors.Is(err, ErrNoMemory):
		return NoMemory
	case errors.Is(err, ErrFileCorrupt):
		return FileCorrupt
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrAlreadyExists):
		return AlreadyExists
	default:
		return Syscall
	}
}
