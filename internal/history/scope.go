package history

// Transaction groups pushes into one undo unit for as long as it is open.
// Usage:
//
//	func alignItems(m *history.Manager) {
//	    defer history.Begin(m, "Align items").Close()
//	    // ... multiple edits ...
//	}
type Transaction struct {
	manager *Manager
	name    string

	// Containers on the undo and redo stacks. A nil container is created
	// on first use.
	containers [2]*TransactionRecord

	closed bool
}

// Begin creates a transaction and opens it on m. If m already has an open
// transaction the new one stays inactive and its pushes join the open one.
// Call Close, usually with defer, to end it.
func Begin(m *Manager, name string) *Transaction {
	t := &Transaction{manager: m, name: name}
	m.StartTransaction(t)
	return t
}

// Name returns the transaction's name.
func (t *Transaction) Name() string {
	return t.name
}

// Active returns true if t is the manager's open transaction.
func (t *Transaction) Active() bool {
	return t.manager != nil && t.manager.open == t
}

// Close ends the transaction.
// Safe to call multiple times; only the first call has effect.
func (t *Transaction) Close() {
	if t.closed {
		return
	}
	t.closed = true
	if t.manager != nil {
		t.manager.EndTransaction(t)
	}
}

// container returns the container for s, pushing a new one onto that
// stack if there is none yet.
func (t *Transaction) container(s side) *TransactionRecord {
	if c := t.containers[s]; c != nil {
		return c
	}
	c := NewTransactionRecord(t.name)
	t.containers[s] = c
	t.manager.stacks[s].Push(c)
	return c
}
