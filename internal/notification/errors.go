package notification

import (
	"errors"
	"fmt"
)

// PersistenceReadError indicates a snapshot that exists but could not be
// read back. Callers recover by treating the history as empty.
type PersistenceReadError struct {
	Key string
	Err error
}

func (e *PersistenceReadError) Error() string {
	return fmt.Sprintf("reading notification snapshot %s: %v", e.Key, e.Err)
}

func (e *PersistenceReadError) Unwrap() error {
	return e.Err
}

// IsPersistenceReadError reports whether err (or any error in its chain)
// is a PersistenceReadError.
func IsPersistenceReadError(err error) bool {
	var readErr *PersistenceReadError
	return errors.As(err, &readErr)
}

// PersistenceWriteError indicates a snapshot write that failed. The
// in-memory center stays authoritative and the next mutation retries.
type PersistenceWriteError struct {
	Key string
	Err error
}

func (e *PersistenceWriteError) Error() string {
	return fmt.Sprintf("writing notification snapshot %s: %v", e.Key, e.Err)
}

func (e *PersistenceWriteError) Unwrap() error {
	return e.Err
}

// IsPersistenceWriteError reports whether err (or any error in its chain)
// is a PersistenceWriteError.
func IsPersistenceWriteError(err error) bool {
	var writeErr *PersistenceWriteError
	return errors.As(err, &writeErr)
}
