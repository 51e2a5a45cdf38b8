package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionRecord groups records into one undo unit.
// Children are kept newest first.
type TransactionRecord struct {
	id        uuid.UUID
	name      string
	children  Stack[Record]
	timestamp time.Time
}

// NewTransactionRecord creates an empty transaction record.
func NewTransactionRecord(name string) *TransactionRecord {
	return &TransactionRecord{
		id:        uuid.New(),
		name:      name,
		timestamp: time.Now(),
	}
}

// Name returns the transaction's name.
func (t *TransactionRecord) Name() string {
	return t.name
}

// Add inserts a child at the front.
func (t *TransactionRecord) Add(r Record) {
	t.children.Push(r)
}

// Execute replays the children front to back, so the most recently added
// child runs first. Execution stops at the first failing child; children
// that already ran are not reverted.
func (t *TransactionRecord) Execute() error {
	for i, child := range t.children.Items() {
		if err := child.Execute(); err != nil {
			return fmt.Errorf("transaction %q step %d (%s): %w", t.name, i, child.Name(), err)
		}
	}
	return nil
}

// Len returns the number of children.
func (t *TransactionRecord) Len() int {
	return t.children.Len()
}

// IsEmpty returns true if the transaction has no children.
func (t *TransactionRecord) IsEmpty() bool {
	return t.children.Len() == 0
}

// Children returns the children, newest first.
func (t *TransactionRecord) Children() []Record {
	return t.children.Items()
}

// Info returns metadata for the transaction.
func (t *TransactionRecord) Info() RecordInfo {
	return RecordInfo{
		ID:          t.id,
		Description: t.name,
		Timestamp:   t.timestamp,
		Children:    t.children.Len(),
		Transaction: true,
	}
}

func (t *TransactionRecord) record() {}
