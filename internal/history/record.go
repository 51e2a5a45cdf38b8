package history

import (
	"time"

	"github.com/google/uuid"
)

// Record represents one reversible unit of work.
//
// The set of implementations is closed: *OperationRecord[T] and
// *TransactionRecord.
type Record interface {
	// Name returns a human-readable description of the record.
	Name() string

	// Execute applies the record.
	Execute() error

	// Info returns read-only metadata for history displays.
	Info() RecordInfo

	record()
}

// RecordInfo provides read-only info about a record.
// Used for displaying undo/redo history to users.
type RecordInfo struct {
	ID          uuid.UUID
	Description string
	Timestamp   time.Time // When the record was created
	Children    int       // Number of child records; zero for operations
	Transaction bool
}

// OperationRecord calls a function with a value captured at push time.
// It is immutable after construction.
type OperationRecord[T any] struct {
	id          uuid.UUID
	op          func(T) error
	data        T
	description string
	timestamp   time.Time
}

// NewOperationRecord creates a new operation record.
func NewOperationRecord[T any](op func(T) error, data T, description string) *OperationRecord[T] {
	return &OperationRecord[T]{
		id:          uuid.New(),
		op:          op,
		data:        data,
		description: description,
		timestamp:   time.Now(),
	}
}

// Name returns the record's description.
func (r *OperationRecord[T]) Name() string {
	return r.description
}

// Execute calls the operation with the captured value.
func (r *OperationRecord[T]) Execute() error {
	if r.op == nil {
		return nil
	}
	return r.op(r.data)
}

// Data returns the captured value.
func (r *OperationRecord[T]) Data() T {
	return r.data
}

// Info returns metadata for the record.
func (r *OperationRecord[T]) Info() RecordInfo {
	return RecordInfo{
		ID:          r.id,
		Description: r.description,
		Timestamp:   r.timestamp,
	}
}

func (r *OperationRecord[T]) record() {}
