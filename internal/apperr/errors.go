// Package apperr defines the error kinds shared across Tortoise components.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid account name")

	// ErrIndexOutOfRange means a cash-flow index no longer matches the edited
	// account, which points at a UI/state desynchronization.
	ErrIndexOutOfRange = errors.New("cash flow index out of range")

	// ErrRemoteCall marks a failed call to the simulation engine or to persistence.
	ErrRemoteCall = errors.New("remote call failed")
)

// IndexError reports a cash-flow mutation against an absent entry.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d out of range [0,%d)", e.Op, e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// RemoteError wraps the failure of a remote operation.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() []error { return []error{ErrRemoteCall, e.Err} }

// Remote wraps err as a RemoteError for op. A nil err stays nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
