// Package hub implements the relay's connection registry and fan-out
// engine: which sessions are in which conversation rooms, which session
// is the current one for each user, and who receives each event.
package hub

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/relay-service/internal/protocol"
)

// Sink receives a copy of every chat message frame, e.g. for the
// persistence and notification consumers downstream.
type Sink interface {
	Publish(ctx context.Context, payload []byte) error
}

// ConnStore mirrors connection lifecycle to the rest of the platform.
// The hub only ever writes to it; routing never depends on it.
type ConnStore interface {
	AddConnection(ctx context.Context, userID, socketID, convID string) error
	RemoveConnection(ctx context.Context, userID, socketID string) error
}

type opKind int

const (
	opEvent opKind = iota
	opClose
	opQuery
)

type op struct {
	kind opKind
	sess *Session
	ev   protocol.Event
	fn   func()
	done chan struct{}
}

// Hub owns the room membership index and the client registry. All
// mutation and fan-out happen on the single Run goroutine, so inbound
// frames are processed to completion in arrival order and per-room
// delivery is FIFO without locks.
type Hub struct {
	// conversationId -> member sessions. Empty sets may linger after
	// the last leave; they are rebuilt on the next join.
	rooms map[string]map[*Session]struct{}

	// userId -> current session. Newest join wins; the displaced
	// session keeps its room memberships and is not closed.
	clients map[string]*Session

	ops      chan op
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// Sink, when set, gets a copy of every message fan-out.
	Sink Sink
	// ConnStore, when set, is told about connection lifecycle.
	ConnStore ConnStore

	log *zap.SugaredLogger
	now func() time.Time
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Session]struct{}),
		clients: make(map[string]*Session),
		ops:     make(chan op, 512),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     log,
		now:     time.Now,
	}
}

// Run processes events until Stop. It must be called in its own
// goroutine before any Dispatch.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case o := <-h.ops:
			switch o.kind {
			case opEvent:
				h.handleEvent(o.sess, o.ev)
			case opClose:
				h.handleClose(o.sess)
			case opQuery:
				o.fn()
				close(o.done)
			}
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Stop shuts down the run loop and every tracked session. Safe to call
// more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Dispatch hands a decoded frame from s to the run loop.
func (h *Hub) Dispatch(s *Session, ev protocol.Event) {
	select {
	case h.ops <- op{kind: opEvent, sess: s, ev: ev}:
	case <-h.stop:
	}
}

// Disconnect tells the run loop that s's transport closed. The hub
// removes s from every room, updates the registry, and broadcasts the
// offline presence if s was its user's current session.
func (h *Hub) Disconnect(s *Session) {
	select {
	case h.ops <- op{kind: opClose, sess: s}:
	case <-h.stop:
		s.shutdown()
	}
}

// sync runs fn on the run loop and waits for it, giving callers a
// consistent read of hub state. Returns false if the hub has stopped.
func (h *Hub) sync(fn func()) bool {
	o := op{kind: opQuery, fn: fn, done: make(chan struct{})}
	select {
	case h.ops <- o:
	case <-h.stop:
		return false
	}
	select {
	case <-o.done:
		return true
	case <-h.stop:
		return false
	}
}

// CurrentSession returns the registry's current session for userID, or
// nil. At most one session per user is current at any instant.
func (h *Hub) CurrentSession(userID string) *Session {
	var out *Session
	h.sync(func() { out = h.clients[userID] })
	return out
}

// RoomSize reports the number of sessions joined to a conversation.
func (h *Hub) RoomSize(convID string) int {
	var n int
	h.sync(func() { n = len(h.rooms[convID]) })
	return n
}

// Stats reports registry sizes for the health endpoint.
func (h *Hub) Stats() (users, rooms int) {
	h.sync(func() {
		users = len(h.clients)
		rooms = len(h.rooms)
	})
	return users, rooms
}

func (h *Hub) handleEvent(s *Session, ev protocol.Event) {
	switch ev.Type {
	case protocol.EventJoin:
		h.handleJoin(s, ev)
	case protocol.EventLeave:
		h.handleLeave(s, ev)
	case protocol.EventMessage:
		h.handleMessage(ev)
	case protocol.EventTyping:
		h.broadcast(ev.ConversationID, protocol.EncodeTyping(ev), ev.UserID)
	case protocol.EventReaction:
		h.broadcast(ev.ConversationID, protocol.EncodeReaction(ev, h.now()), "")
	case protocol.EventPresence:
		h.broadcast(ev.ConversationID, protocol.EncodePresence(ev.ConversationID, ev.UserID, ev.Status), ev.UserID)
	}
}

func (h *Hub) handleJoin(s *Session, ev protocol.Event) {
	if s.userID == "" {
		s.userID = ev.UserID
	} else if s.userID != ev.UserID {
		// The relay trusts its caller; a different id on a later join
		// is a caller bug we absorb by overwriting.
		h.log.Warnw("session identity reassigned",
			"socket", s.SocketID, "old", s.userID, "new", ev.UserID)
		s.userID = ev.UserID
	}

	room, ok := h.rooms[ev.ConversationID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[ev.ConversationID] = room
	}
	room[s] = struct{}{}
	s.rooms[ev.ConversationID] = struct{}{}

	h.clients[ev.UserID] = s

	// Seed the joiner with one online frame per distinct user already
	// in the room. This is a one-time catch-up, not a presence audit:
	// an away member is still reported online here.
	seen := make(map[string]struct{})
	for member := range room {
		if member == s || member.userID == ev.UserID {
			continue
		}
		if _, dup := seen[member.userID]; dup {
			continue
		}
		seen[member.userID] = struct{}{}
		s.enqueue(protocol.EncodePresence(ev.ConversationID, member.userID, protocol.StatusOnline))
	}

	h.log.Infow("joined conversation",
		"user", ev.UserID, "conversation", ev.ConversationID, "socket", s.SocketID)

	if h.ConnStore != nil {
		go func() {
			if err := h.ConnStore.AddConnection(context.Background(), ev.UserID, s.SocketID, ev.ConversationID); err != nil {
				h.log.Warnw("conn store add failed", "user", ev.UserID, "err", err)
			}
		}()
	}
}

// handleLeave only deregisters room membership. An explicit leave with
// the socket still open does not mean the user went offline, so no
// presence event fires here.
func (h *Hub) handleLeave(s *Session, ev protocol.Event) {
	if room, ok := h.rooms[ev.ConversationID]; ok {
		delete(room, s)
	}
	delete(s.rooms, ev.ConversationID)
	h.log.Infow("left conversation",
		"user", ev.UserID, "conversation", ev.ConversationID, "socket", s.SocketID)
}

func (h *Hub) handleMessage(ev protocol.Event) {
	frame := protocol.EncodeMessage(ev, h.now())
	h.broadcast(ev.ConversationID, frame, "")
	if h.Sink != nil {
		go func() {
			if err := h.Sink.Publish(context.Background(), frame); err != nil {
				h.log.Warnw("message sink publish failed", "conversation", ev.ConversationID, "err", err)
			}
		}()
	}
}

func (h *Hub) handleClose(s *Session) {
	for convID := range s.rooms {
		if room, ok := h.rooms[convID]; ok {
			delete(room, s)
		}
	}

	if s.userID != "" && h.clients[s.userID] == s {
		delete(h.clients, s.userID)
		for convID := range s.rooms {
			h.broadcast(convID, protocol.EncodePresence(convID, s.userID, protocol.StatusOffline), s.userID)
		}
	}

	if s.userID != "" {
		h.log.Infow("session closed", "user", s.userID, "socket", s.SocketID)
		if h.ConnStore != nil {
			userID, socketID := s.userID, s.SocketID
			go func() {
				if err := h.ConnStore.RemoveConnection(context.Background(), userID, socketID); err != nil {
					h.log.Warnw("conn store remove failed", "user", userID, "err", err)
				}
			}()
		}
	}

	s.shutdown()
}

// broadcast fans frame out to every member of the room. A non-empty
// excludeUser skips every session claiming that identity; this is the
// self-exclusion rule for ephemeral events. Dead or saturated targets
// are skipped without aborting the rest of the fan-out.
func (h *Hub) broadcast(convID string, frame []byte, excludeUser string) {
	room, ok := h.rooms[convID]
	if !ok {
		return
	}
	for member := range room {
		if excludeUser != "" && member.userID == excludeUser {
			continue
		}
		if !member.enqueue(frame) {
			h.log.Debugw("dropped frame for slow consumer",
				"socket", member.SocketID, "conversation", convID)
		}
	}
}

func (h *Hub) closeAll() {
	sessions := make(map[*Session]struct{})
	for _, room := range h.rooms {
		for s := range room {
			sessions[s] = struct{}{}
		}
	}
	for _, s := range h.clients {
		sessions[s] = struct{}{}
	}
	for s := range sessions {
		s.shutdown()
	}
}
