package history

import (
	"github.com/dshills/mapforge/internal/logging"
	"github.com/dshills/mapforge/internal/notify"
)

// DefaultMaxItems is the default per-stack capacity.
const DefaultMaxItems = 10

// side selects one of the two stacks.
type side int

const (
	undoSide side = iota
	redoSide
)

func (s side) String() string {
	if s == redoSide {
		return "redo"
	}
	return "undo"
}

// Manager owns the undo and redo stacks of one document.
type Manager struct {
	stacks [2]Stack[Record]

	maxItems int

	// At most one transaction is open at a time.
	open *Transaction

	undoing bool
	redoing bool

	status [2]notify.Notifier[bool]

	log *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxItems sets the per-stack capacity.
func WithMaxItems(n int) Option {
	return func(m *Manager) {
		m.maxItems = n
	}
}

// WithLogger sets the logger used for replay failures and no-ops.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates a new history manager.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		maxItems: DefaultMaxItems,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxItems <= 0 {
		return nil, ErrInvalidMaxItems
	}
	m.log = m.log.WithComponent("history")
	return m, nil
}

// Push records a reversible operation. op is called with data when the
// record is replayed and is expected to push its own reverse.
//
// Pushes made while undoing land on the redo stack; all others land on the
// undo stack. A push that is not part of a replay clears the redo stack.
// While a transaction is open the record joins the transaction instead.
func Push[T any](m *Manager, op func(T) error, data T, description string) {
	m.PushRecord(NewOperationRecord(op, data, description))
}

// PushRecord records an already built record following the same routing
// rules as Push.
func (m *Manager) PushRecord(rec Record) {
	target := m.target()

	if !m.undoing && !m.redoing {
		m.stacks[redoSide].Clear()
		if m.open != nil {
			m.open.containers[redoSide] = nil
		}
		m.notify(redoSide)
	}

	if m.open == nil {
		m.pushOnto(target, rec)
	} else {
		m.open.container(target).Add(rec)
		m.trim(target)
	}

	m.notify(target)
}

// target returns the stack that receives new pushes.
func (m *Manager) target() side {
	if m.undoing {
		return redoSide
	}
	return undoSide
}

// pushOnto pushes rec onto a stack and enforces the capacity.
func (m *Manager) pushOnto(s side, rec Record) {
	m.stacks[s].Push(rec)
	m.trim(s)
}

// trim evicts the oldest records of a stack beyond the capacity.
func (m *Manager) trim(s side) {
	if evicted := m.stacks[s].Trim(m.maxItems); evicted > 0 {
		m.log.Debug("evicted %d %s record(s) beyond capacity %d", evicted, s, m.maxItems)
	}
}

// Undo pops the top undo record and executes it. Pushes made during the
// execution land on the redo stack. It returns false when nothing was
// undone.
//
// A failing record is logged and otherwise ignored: the record has
// already been popped and is not restored.
func (m *Manager) Undo() bool {
	return m.replay(undoSide)
}

// Redo pops the top redo record and executes it. Pushes made during the
// execution land on the undo stack. It returns false when nothing was
// redone.
func (m *Manager) Redo() bool {
	return m.replay(redoSide)
}

func (m *Manager) replay(from side) bool {
	if m.undoing || m.redoing {
		m.log.Warn("%s ignored: %v", from, ErrReplayInProgress)
		return false
	}
	if m.open != nil {
		m.log.Warn("%s ignored: %v", from, ErrTransactionOpen)
		return false
	}

	rec, err := m.stacks[from].Pop()
	if err != nil {
		if from == undoSide {
			m.log.Debug("undo ignored: %v", ErrNothingToUndo)
		} else {
			m.log.Debug("redo ignored: %v", ErrNothingToRedo)
		}
		return false
	}

	m.setReplaying(from, true)

	// Reopen a popped transaction so the mirror pushes made while it
	// replays are grouped again on the other stack.
	var tx *Transaction
	if tr, ok := rec.(*TransactionRecord); ok {
		tx = &Transaction{manager: m, name: tr.Name()}
		m.open = tx
	}

	defer func() {
		m.setReplaying(from, false)
		if tx != nil {
			m.EndTransaction(tx)
		}
		m.notify(from)
	}()

	if err := execute(rec); err != nil {
		m.log.Error("%v", &ReplayError{Direction: from.String(), Record: rec.Name(), Err: err})
	}
	return true
}

// execute runs rec, turning a panic into an error.
func execute(rec Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return rec.Execute()
}

func (m *Manager) setReplaying(s side, v bool) {
	if s == undoSide {
		m.undoing = v
	} else {
		m.redoing = v
	}
}

// StartTransaction opens t. It returns false and does nothing when a
// transaction is already open.
//
// An empty container is pushed onto both stacks so that whichever side
// receives records while t is open already has a home. The containers are
// not trimmed until they receive a record, so an empty transaction never
// evicts history.
func (m *Manager) StartTransaction(t *Transaction) bool {
	if t == nil || m.open != nil {
		return false
	}

	t.manager = m
	m.open = t
	for _, s := range []side{undoSide, redoSide} {
		c := NewTransactionRecord(t.name)
		t.containers[s] = c
		m.stacks[s].Push(c)
		m.notify(s)
	}
	return true
}

// EndTransaction closes t if it is the open transaction. Containers left
// empty on top of either stack are removed from that stack.
func (m *Manager) EndTransaction(t *Transaction) {
	if t == nil || m.open != t {
		return
	}
	m.open = nil

	for _, s := range []side{undoSide, redoSide} {
		c := t.containers[s]
		if c == nil || !c.IsEmpty() {
			continue
		}
		if top, ok := m.stacks[s].Peek(); ok && top == Record(c) {
			_, _ = m.stacks[s].Pop()
			m.notify(s)
		}
	}
}

// WithTransaction runs fn inside a transaction named name. The
// transaction is closed on every exit path, including a panic in fn.
func (m *Manager) WithTransaction(name string, fn func() error) error {
	tx := Begin(m, name)
	defer tx.Close()
	return fn()
}

// Clear removes all undo and redo records.
func (m *Manager) Clear() {
	m.stacks[undoSide].Clear()
	m.stacks[redoSide].Clear()
	if m.open != nil {
		m.open.containers = [2]*TransactionRecord{}
	}
	m.notify(undoSide)
	m.notify(redoSide)
}

// MaxItems returns the per-stack capacity.
func (m *Manager) MaxItems() int {
	return m.maxItems
}

// SetMaxItems changes the per-stack capacity. Stacks larger than n are
// trimmed on their next push.
func (m *Manager) SetMaxItems(n int) error {
	if n <= 0 {
		return ErrInvalidMaxItems
	}
	m.maxItems = n
	return nil
}

// UndoCount returns the number of undo records.
func (m *Manager) UndoCount() int {
	return m.stacks[undoSide].Len()
}

// RedoCount returns the number of redo records.
func (m *Manager) RedoCount() int {
	return m.stacks[redoSide].Len()
}

// HasUndo returns true if undo is available.
func (m *Manager) HasUndo() bool {
	return m.UndoCount() > 0
}

// HasRedo returns true if redo is available.
func (m *Manager) HasRedo() bool {
	return m.RedoCount() > 0
}

// IsUndoing returns true while an undo is executing.
func (m *Manager) IsUndoing() bool {
	return m.undoing
}

// IsRedoing returns true while a redo is executing.
func (m *Manager) IsRedoing() bool {
	return m.redoing
}

// InTransaction returns true if a transaction is open.
func (m *Manager) InTransaction() bool {
	return m.open != nil
}

// UndoStackInformation returns the undo descriptions, top first.
func (m *Manager) UndoStackInformation() []string {
	return descriptions(&m.stacks[undoSide])
}

// RedoStackInformation returns the redo descriptions, top first.
func (m *Manager) RedoStackInformation() []string {
	return descriptions(&m.stacks[redoSide])
}

// UndoInfo returns info about available undo records, top first.
func (m *Manager) UndoInfo() []RecordInfo {
	return infos(&m.stacks[undoSide])
}

// RedoInfo returns info about available redo records, top first.
func (m *Manager) RedoInfo() []RecordInfo {
	return infos(&m.stacks[redoSide])
}

// PeekUndo returns info about the next undo record without removing it.
func (m *Manager) PeekUndo() (RecordInfo, bool) {
	rec, ok := m.stacks[undoSide].Peek()
	if !ok {
		return RecordInfo{}, false
	}
	return rec.Info(), true
}

// PeekRedo returns info about the next redo record without removing it.
func (m *Manager) PeekRedo() (RecordInfo, bool) {
	rec, ok := m.stacks[redoSide].Peek()
	if !ok {
		return RecordInfo{}, false
	}
	return rec.Info(), true
}

// OnUndoStackStatusChanged registers fn to be called after every undo
// stack mutation with whether the stack holds any records.
func (m *Manager) OnUndoStackStatusChanged(fn func(hasItems bool)) *notify.Subscription {
	return m.status[undoSide].Subscribe(fn)
}

// OnRedoStackStatusChanged registers fn to be called after every redo
// stack mutation with whether the stack holds any records.
func (m *Manager) OnRedoStackStatusChanged(fn func(hasItems bool)) *notify.Subscription {
	return m.status[redoSide].Subscribe(fn)
}

func (m *Manager) notify(s side) {
	m.status[s].Notify(m.stacks[s].Len() > 0)
}

func descriptions(s *Stack[Record]) []string {
	items := s.Items()
	result := make([]string, len(items))
	for i, rec := range items {
		result[i] = rec.Name()
	}
	return result
}

func infos(s *Stack[Record]) []RecordInfo {
	items := s.Items()
	result := make([]RecordInfo, len(items))
	for i, rec := range items {
		result[i] = rec.Info()
	}
	return result
}
