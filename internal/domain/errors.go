package domain

import (
	"errors"
	"fmt"
)

var ErrSubscriberNotFound = errors.New("subscriber not found")

// StorageError means the durable store rejected an operation. The in-memory
// view was not changed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MalformedUpdateError is returned for inbound updates that lack a sender,
// chat or message. Such updates are logged and dropped.
type MalformedUpdateError struct {
	UpdateID int64
	Reason   string
}

func (e *MalformedUpdateError) Error() string {
	return fmt.Sprintf("malformed update %d: %s", e.UpdateID, e.Reason)
}

// TransientNetworkError covers an unreachable gateway or a non-ok reply from it.
// Callers retry on their normal cadence.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func IsMalformed(err error) bool {
	var me *MalformedUpdateError
	return errors.As(err, &me)
}
