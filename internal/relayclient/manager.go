package relayclient

import "sync"

// Manager owns at most one live client per process, keyed by the acting
// user. Asking for a different user tears the old transport down first,
// mirroring the relay's one-session-per-user registry, so an account
// switch never leaves two event streams running. The manager is a plain
// dependency callers pass around, not a package global.
type Manager struct {
	opts Options

	mu          sync.Mutex
	current     *Client
	currentUser string
}

func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// ForUser returns the client for userID, connecting a fresh one if none
// exists or the acting user changed.
func (m *Manager) ForUser(userID string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.currentUser == userID {
		return m.current
	}
	if m.current != nil {
		m.current.Disconnect()
	}
	c := NewClient(m.opts)
	m.current = c
	m.currentUser = userID
	c.Connect()
	return c
}

// Disconnect tears down the current client, if any.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Disconnect()
		m.current = nil
		m.currentUser = ""
	}
}
