// internal/infra/database/errors.go
package database

import (
	"errors"
	"fmt"
)

// Custom errors specific to the cycle store.
var ErrCycleNotFound = errors.New("cleaning cycle not found")
var ErrAlertNotFound = errors.New("scheduled alert not found")

// PersistenceError wraps any store I/O failure. It is the durability boundary
// of the whole system: callers must surface it, never swallow it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// persistErr wraps err in a PersistenceError unless it is nil or one of the
// not-found sentinels, which pass through for callers to compare against.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCycleNotFound) || errors.Is(err, ErrAlertNotFound) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
