package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every Storage implementation. Callers branch on
// these with errors.Is; the concrete backends wrap provider errors into them.
var (
	ErrNotFound     = errors.New("object not found")
	ErrKeyExists    = errors.New("object already exists at this key")
	ErrInvalidKey   = errors.New("invalid storage key")
	ErrTooLarge     = errors.New("object exceeds maximum size")
	ErrAccessDenied = errors.New("access denied")
)

// StorageError carries the failed operation and key alongside the cause, so
// log lines identify which object an upload or cleanup failed on.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err wraps ErrNotFound. Resource deletion uses
// it to treat already-gone objects as success.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
