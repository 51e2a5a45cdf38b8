package script

import (
	"errors"
	"fmt"
)

// Errors for script execution.
var (
	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("script engine is closed")

	// ErrTimeout is returned when a script runs past its deadline.
	ErrTimeout = errors.New("script execution timeout")

	// ErrCallLimit is returned when a script exceeds its host call budget.
	ErrCallLimit = errors.New("script call limit exceeded")
)

// Error reports a failed script run.
type Error struct {
	// Chunk is the script name, usually its file path.
	Chunk string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Chunk, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
