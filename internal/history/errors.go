package history

import (
	"errors"
	"fmt"
)

// Common errors for history operations.
var (
	ErrStackEmpty       = errors.New("stack is empty")
	ErrInvalidMaxItems  = errors.New("max items must be greater than zero")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
	ErrTransactionOpen  = errors.New("transaction is open")
	ErrReplayInProgress = errors.New("replay in progress")
)

// ReplayError describes a record that failed while being undone or redone.
type ReplayError struct {
	Direction string // "undo" or "redo"
	Record    string // Name of the popped record
	Err       error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Direction, e.Record, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking record.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("record panicked: %v", e.Value)
}
