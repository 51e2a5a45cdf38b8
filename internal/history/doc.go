// Package history provides undo/redo for the map editor.
//
// The history system records reversible operations as closures over
// captured values. Key concepts:
//
// # Records
//
// A Record is one reversible unit of work with a name and an Execute
// method. There are two kinds:
//   - OperationRecord: a function plus the value to call it with
//   - TransactionRecord: an ordered group of records replayed as one unit
//
// # Pushing
//
// Application code performs a mutation and then records how to reverse it:
//
//	old := item.Position
//	item.Position = pos
//	history.Push(m, func(p level.Vec2) error {
//	    return editor.MoveItem(id, p)
//	}, old, "Move item")
//
// The reversing function is expected to push again with the opposite
// value. While Undo is running, pushes are routed to the redo stack, and
// while Redo is running they are routed to the undo stack, so every replay
// builds its own mirror entry without the manager knowing anything about
// the mutation.
//
// # Transactions
//
// Several pushes can be grouped into one undo unit:
//
//	tx := history.Begin(m, "Align items")
//	defer tx.Close()
//	// ... multiple edits ...
//
// Only one transaction can be open at a time; beginning another while one
// is open is a no-op and its pushes join the open one.
//
// # Capacity
//
// Each stack keeps at most MaxItems records. The oldest records are
// evicted first.
//
// # Concurrency
//
// A Manager has no internal locking. It is driven from a single sequence
// of user events; hosts with several goroutines must guard the whole
// surface with one lock (see editor.Session).
package history
