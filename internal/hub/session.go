package hub

import (
	"sync"
	"time"
)

// Conn is the write half of a transport connection. The production
// implementation wraps a websocket connection; tests use an in-memory
// fake.
type Conn interface {
	WriteMessage(data []byte) error
	Close() error
}

// Session is one live connection as the hub sees it. Identity and room
// memberships are populated lazily by join events and are owned by the
// hub run loop; nothing outside the loop touches them.
type Session struct {
	SocketID  string
	Connected time.Time

	conn Conn
	send chan []byte

	closeOnce sync.Once

	// Owned by the hub run loop.
	userID string
	rooms  map[string]struct{}
}

func NewSession(socketID string, conn Conn, sendBuffer int) *Session {
	return &Session{
		SocketID:  socketID,
		Connected: time.Now().UTC(),
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		rooms:     make(map[string]struct{}),
	}
}

// Outbound is drained by the transport's write pump. It is closed when
// the hub finishes tearing the session down.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// WritePump drains the send queue to the transport until the queue is
// closed or a write fails. The transport layer runs it in its own
// goroutine; keepalive pings stay with the transport implementation.
func (s *Session) WritePump() {
	for frame := range s.send {
		if err := s.conn.WriteMessage(frame); err != nil {
			return
		}
	}
	_ = s.conn.Close()
}

// enqueue hands a frame to the write pump without blocking. A saturated
// queue means a slow or dead consumer; the frame is dropped and fan-out
// to the remaining targets continues.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the send queue exactly once, terminating the write
// pump, and closes the underlying transport.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.send)
		_ = s.conn.Close()
	})
}
