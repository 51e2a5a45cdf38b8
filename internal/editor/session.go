package editor

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/mapforge/internal/config"
	"github.com/dshills/mapforge/internal/history"
	"github.com/dshills/mapforge/internal/level"
	"github.com/dshills/mapforge/internal/logging"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Session is an open document: one level, one editor and one history,
// guarded by a mutex.
type Session struct {
	ID       uuid.UUID
	Name     string
	OpenedAt time.Time

	mu     sync.Mutex
	editor *Editor
	log    *logging.Logger
}

// NewSession creates a session with an empty level named name.
func NewSession(name string, cfg config.Config, log *logging.Logger) (*Session, error) {
	return NewSessionWithLevel(level.New(name), cfg, log)
}

// NewSessionWithLevel creates a session editing lvl. The session starts
// with an empty history.
func NewSessionWithLevel(lvl *level.Level, cfg config.Config, log *logging.Logger) (*Session, error) {
	if log == nil {
		log = logging.Nop()
	}
	id := uuid.New()
	log = log.WithField("session", id.String())

	h, err := history.New(
		history.WithMaxItems(cfg.History.MaxItems),
		history.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:       id,
		Name:     lvl.Name,
		OpenedAt: time.Now(),
		editor:   New(lvl, h, log),
		log:      log,
	}, nil
}

// Do runs fn with exclusive access to the editor.
func (s *Session) Do(fn func(*Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

// Undo reverts the most recent edit.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Undo()
}

// Redo reapplies the most recently undone edit.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Redo()
}

// SetMaxUndo changes the history capacity.
func (s *Session) SetMaxUndo(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.History().SetMaxItems(n)
}

// ApplyConfig applies the settings of cfg that can change while the
// session is open.
func (s *Session) ApplyConfig(cfg config.Config) error {
	if err := s.SetMaxUndo(cfg.History.MaxItems); err != nil {
		return err
	}
	s.log.Debug("history capacity set to %d", cfg.History.MaxItems)
	return nil
}

// Export encodes the level as JSON.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return level.Marshal(s.editor.Level())
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID        uuid.UUID
	Name      string
	MaxItems  int
	Undo      []string
	Redo      []string
	Items     []level.Item
	Undoing   bool
	Redoing   bool
	InTxn     bool
	ItemCount int
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.editor.History()
	lvl := s.editor.Level()
	return Snapshot{
		ID:        s.ID,
		Name:      s.Name,
		MaxItems:  h.MaxItems(),
		Undo:      h.UndoStackInformation(),
		Redo:      h.RedoStackInformation(),
		Items:     lvl.Items(),
		Undoing:   h.IsUndoing(),
		Redoing:   h.IsRedoing(),
		InTxn:     h.InTransaction(),
		ItemCount: lvl.Len(),
	}
}

// Manager tracks open sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	order    []uuid.UUID
	cfg      config.Config
	log      *logging.Logger
}

// NewManager creates a session manager. New sessions use cfg.
func NewManager(cfg config.Config, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		cfg:      cfg,
		log:      log,
	}
}

// Open creates and registers a new session.
func (m *Manager) Open(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := NewSession(name, m.cfg, m.log)
	if err != nil {
		return nil, err
	}
	m.add(s)
	return s, nil
}

// Import opens a session on a level decoded from JSON.
func (m *Manager) Import(data []byte) (*Session, error) {
	lvl, err := level.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := NewSessionWithLevel(lvl, m.cfg, m.log)
	if err != nil {
		return nil, err
	}
	m.add(s)
	return s, nil
}

// add registers s. The caller holds m.mu.
func (m *Manager) add(s *Session) {
	m.sessions[s.ID] = s
	m.order = append(m.order, s.ID)
	m.log.Info("opened session %s (%s) with %d item(s)", s.Name, s.ID, s.editor.Level().Len())
}

// Get returns a session by ID.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close removes a session.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.log.Info("closed session %s (%s)", s.Name, s.ID)
	return nil
}

// List returns open sessions in the order they were opened.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		sessions = append(sessions, m.sessions[id])
	}
	return sessions
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ApplyConfig makes cfg the configuration for new sessions and applies it
// to every open session. All sessions are updated even if one fails; the
// first error is returned.
func (m *Manager) ApplyConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	var first error
	for _, s := range m.List() {
		if err := s.ApplyConfig(cfg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
