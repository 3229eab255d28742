package repository

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("todo not found")

// StoreError wraps a failure of the underlying store. Unwrap returns the
// driver error untouched.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrorObserver is told about every store failure before it is returned.
type ErrorObserver interface {
	ObserveStoreError(op string)
}

type noopObserver struct{}

func (noopObserver) ObserveStoreError(string) {}
