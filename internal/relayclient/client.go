// Package relayclient is the Go client for the relay: one logical
// connection per user that survives socket churn, with linear-backoff
// reconnection and a stable subscribe surface for callers.
package relayclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/relay-service/internal/protocol"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	// StateUnavailable is terminal: the retry budget is spent and the
	// caller should fall back to the record store.
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Socket is one underlying transport connection.
type Socket interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens sockets; tests inject an in-memory implementation.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	Sender         json.RawMessage
	CreatedAt      time.Time
}

type TypingStatus struct {
	ConversationID string
	UserID         string
	IsTyping       bool
}

type Reaction struct {
	ConversationID string
	UserID         string
	MessageID      string
	Emoji          string
	Reactions      json.RawMessage
}

type Presence struct {
	ConversationID string
	UserID         string
	Status         protocol.Status
}

type (
	MessageHandler  func(Message)
	TypingHandler   func(TypingStatus)
	ReactionHandler func(Reaction)
	PresenceHandler func(Presence)
	StateHandler    func(State)
)

type Options struct {
	URL         string
	BaseDelay   time.Duration // retry delay is BaseDelay times the attempt number
	MaxAttempts int
	DialTimeout time.Duration
	Dialer      Dialer
	Logger      *zap.SugaredLogger
}

func (o *Options) norm() {
	if o.URL == "" {
		o.URL = "ws://localhost:3001"
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.Dialer == nil {
		o.Dialer = &WebsocketDialer{HandshakeTimeout: o.DialTimeout}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
}

// Client supervises one logical connection. It does not remember room
// joins across a reconnect; callers re-issue JoinConversation when the
// state returns to open.
type Client struct {
	opts Options

	mu       sync.Mutex
	state    State
	sock     Socket
	attempts int
	closed   bool
	gen      int // invalidates in-flight dials, read loops and timers
	retry    *time.Timer

	nextID      int
	onMessage   map[int]MessageHandler
	onTyping    map[int]TypingHandler
	onReaction  map[int]ReactionHandler
	onPresence  map[int]PresenceHandler
	onState     map[int]StateHandler
	transitions chan State
	quit        chan struct{}
	quitOnce    sync.Once
}

func NewClient(opts Options) *Client {
	opts.norm()
	c := &Client{
		opts:        opts,
		onMessage:   make(map[int]MessageHandler),
		onTyping:    make(map[int]TypingHandler),
		onReaction:  make(map[int]ReactionHandler),
		onPresence:  make(map[int]PresenceHandler),
		onState:     make(map[int]StateHandler),
		transitions: make(chan State, 16),
		quit:        make(chan struct{}),
	}
	go c.notifyLoop()
	return c
}

// notifyLoop delivers state transitions to handlers off the client's
// lock, in order, so handlers may call back into the client freely.
func (c *Client) notifyLoop() {
	for {
		var st State
		select {
		case st = <-c.transitions:
		case <-c.quit:
			// Deliver anything already queued before exiting.
			select {
			case st = <-c.transitions:
			default:
				return
			}
		}
		c.mu.Lock()
		handlers := make([]StateHandler, 0, len(c.onState))
		for _, h := range c.onState {
			handlers = append(handlers, h)
		}
		c.mu.Unlock()
		for _, h := range handlers {
			h(st)
		}
	}
}

func (c *Client) setStateLocked(st State) {
	if c.state == st {
		return
	}
	c.state = st
	select {
	case c.transitions <- st:
	default:
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the supervisor. Calling it while connecting or open is
// a no-op; calling it after the retry budget was spent starts over with
// a fresh budget. A client torn down with Disconnect stays down; the
// Manager builds a fresh one per acting user.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state == StateConnecting || c.state == StateOpen {
		return
	}
	c.attempts = 0
	c.gen++
	c.setStateLocked(StateConnecting)
	go c.dial(c.gen)
}

func (c *Client) dial(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
	sock, err := c.opts.Dialer.Dial(ctx, c.opts.URL)
	cancel()

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		if sock != nil {
			_ = sock.Close()
		}
		return
	}
	if err != nil {
		c.opts.Logger.Warnw("relay dial failed", "url", c.opts.URL, "attempt", c.attempts, "err", err)
		c.scheduleRetryLocked()
		c.mu.Unlock()
		return
	}
	c.sock = sock
	c.attempts = 0
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	go c.readLoop(sock, gen)
}

func (c *Client) readLoop(sock Socket, gen int) {
	for {
		raw, err := sock.ReadMessage()
		if err != nil {
			break
		}
		c.dispatch(raw)
	}
	_ = sock.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.sock = nil
	if c.closed {
		// Clean close: the caller asked for it, no retry.
		c.setStateLocked(StateDisconnected)
		return
	}
	c.scheduleRetryLocked()
}

func (c *Client) scheduleRetryLocked() {
	if c.attempts >= c.opts.MaxAttempts {
		c.opts.Logger.Warnw("relay unavailable, retry budget spent", "attempts", c.attempts)
		c.setStateLocked(StateUnavailable)
		return
	}
	c.attempts++
	c.setStateLocked(StateDisconnected)
	delay := c.opts.BaseDelay * time.Duration(c.attempts)
	c.opts.Logger.Infow("scheduling reconnect", "attempt", c.attempts, "delay", delay)
	gen := c.gen
	c.retry = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.closed || c.state != StateDisconnected {
			return
		}
		c.setStateLocked(StateConnecting)
		go c.dial(gen)
	})
}

// Disconnect tears the transport down cleanly and permanently. No
// retry follows and the client may not be reused.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	sock := c.sock
	c.sock = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()
	if sock != nil {
		_ = sock.Close()
	}
	c.quitOnce.Do(func() { close(c.quit) })
}

// send writes a frame if the transport is open; otherwise the frame is
// dropped and the caller reconciles through the record store.
func (c *Client) send(frame []byte) {
	c.mu.Lock()
	sock := c.sock
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || sock == nil {
		c.opts.Logger.Warnw("relay not open, dropping outbound frame")
		return
	}
	if err := sock.WriteMessage(frame); err != nil {
		c.opts.Logger.Warnw("outbound write failed", "err", err)
	}
}

func (c *Client) JoinConversation(convID, userID string) {
	c.send(protocol.EncodeClientJoin(convID, userID))
}

func (c *Client) LeaveConversation(convID, userID string) {
	c.send(protocol.EncodeClientLeave(convID, userID))
}

func (c *Client) SendMessage(convID, userID, content string, aux *protocol.MessageAux) {
	c.send(protocol.EncodeClientMessage(convID, userID, content, aux))
}

func (c *Client) SendTypingStatus(convID, userID string, isTyping bool) {
	c.send(protocol.EncodeClientTyping(convID, userID, isTyping))
}

func (c *Client) SendReaction(convID, userID string, data protocol.ReactionData) {
	c.send(protocol.EncodeClientReaction(convID, userID, data))
}

func (c *Client) SendPresence(convID, userID string, status protocol.Status) {
	c.send(protocol.EncodeClientPresence(convID, userID, status))
}

func (c *Client) dispatch(raw []byte) {
	f, err := protocol.DecodeServerFrame(raw)
	if err != nil {
		c.opts.Logger.Debugw("dropping unreadable server frame", "err", err)
		return
	}
	switch f.Type {
	case protocol.EventWelcome:
		c.opts.Logger.Debugw("relay welcome", "message", f.Message)
	case protocol.EventMessage:
		createdAt, _ := time.Parse(time.RFC3339Nano, f.Timestamp)
		msg := Message{
			ID:             f.Data.ID,
			ConversationID: f.ConversationID,
			SenderID:       f.UserID,
			Content:        f.Content,
			Sender:         f.Data.Sender,
			CreatedAt:      createdAt,
		}
		for _, h := range c.snapshotMessage() {
			h(msg)
		}
	case protocol.EventTyping:
		st := TypingStatus{ConversationID: f.ConversationID, UserID: f.UserID, IsTyping: f.IsTyping}
		for _, h := range c.snapshotTyping() {
			h(st)
		}
	case protocol.EventReaction:
		r := Reaction{
			ConversationID: f.ConversationID,
			UserID:         f.UserID,
			MessageID:      f.MessageID,
			Emoji:          f.Emoji,
			Reactions:      f.Reactions,
		}
		for _, h := range c.snapshotReaction() {
			h(r)
		}
	case protocol.EventPresence:
		p := Presence{ConversationID: f.ConversationID, UserID: f.UserID, Status: f.Status}
		for _, h := range c.snapshotPresence() {
			h(p)
		}
	}
}

func (c *Client) snapshotMessage() []MessageHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MessageHandler, 0, len(c.onMessage))
	for _, h := range c.onMessage {
		out = append(out, h)
	}
	return out
}

func (c *Client) snapshotTyping() []TypingHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TypingHandler, 0, len(c.onTyping))
	for _, h := range c.onTyping {
		out = append(out, h)
	}
	return out
}

func (c *Client) snapshotReaction() []ReactionHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ReactionHandler, 0, len(c.onReaction))
	for _, h := range c.onReaction {
		out = append(out, h)
	}
	return out
}

func (c *Client) snapshotPresence() []PresenceHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PresenceHandler, 0, len(c.onPresence))
	for _, h := range c.onPresence {
		out = append(out, h)
	}
	return out
}

// OnMessage registers a handler; the returned func unsubscribes it.
// Handlers survive reconnects.
func (c *Client) OnMessage(h MessageHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onMessage[id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onMessage, id)
	}
}

func (c *Client) OnTyping(h TypingHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onTyping[id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onTyping, id)
	}
}

func (c *Client) OnReaction(h ReactionHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onReaction[id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onReaction, id)
	}
}

func (c *Client) OnPresence(h PresenceHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onPresence[id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onPresence, id)
	}
}

func (c *Client) OnState(h StateHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onState[id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onState, id)
	}
}
