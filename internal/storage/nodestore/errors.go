package nodestore

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrBackendClosed = errors.New("backend closed")
	ErrDataCorrupt   = errors.New("data corrupt")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoCheckpoint  = errors.New("no checkpoint stored")
	ErrCodecMismatch = errors.New("checkpoint written with a different entry codec")
	ErrAlreadyOpen   = errors.New("backend already open")
)

// NodeStoreError records the backend operation that failed.
type NodeStoreError struct {
	Operation string
	Backend   string
	Cause     error
}

func (e *NodeStoreError) Error() string {
	return fmt.Sprintf("nodestore %s %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *NodeStoreError) Unwrap() error {
	return e.Cause
}

func wrapError(err error, operation, backend string) error {
	if err == nil {
		return nil
	}
	return &NodeStoreError{Operation: operation, Backend: backend, Cause: err}
}

// IsNotFound reports whether err means a key is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
