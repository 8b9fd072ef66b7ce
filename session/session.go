// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/voxelworld/network"
)

// State is the connection lifecycle. Closed is terminal; a closed session is
// discarded, never reused.
type State int

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

// Session pairs one live connection with its player identity. The session ID
// is the player ID for the connection's whole lifetime.
type Session struct {
	ID        string
	Conn      network.Conn
	CreatedAt time.Time

	mu    sync.Mutex
	state State
}

func NewSession(id string, conn network.Conn) *Session {
	return &Session{
		ID:        id,
		Conn:      conn,
		CreatedAt: time.Now(),
		state:     StateConnecting,
	}
}

// Activate moves Connecting -> Active, after the init snapshot has been sent.
func (s *Session) Activate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return false
	}
	s.state = StateActive
	return true
}

// CloseOnce latches the terminal state and reports whether this caller did
// the transition. Transport close, read error and server shutdown may all
// race to close the same session; exactly one of them wins and runs the
// leave cleanup.
func (s *Session) CloseOnce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	return true
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Send(data []byte) error {
	return s.Conn.Send(data)
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks the live sessions; it is the broadcast hub's recipient set.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// All returns a copy of the live session set, safe to iterate while sessions
// come and go.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
