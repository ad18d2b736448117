// Package protocol defines the JSON frames exchanged between the relay
// and its clients, and the decoded event types the hub routes on.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type EventType string

const (
	EventJoin     EventType = "join"
	EventLeave    EventType = "leave"
	EventMessage  EventType = "message"
	EventTyping   EventType = "typing"
	EventReaction EventType = "reaction"
	EventPresence EventType = "presence"

	// Outbound only.
	EventWelcome EventType = "welcome"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

var (
	ErrUnknownType    = errors.New("unknown event type")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// MessageAux is the auxiliary payload a client may attach to a message
// frame: the canonical record id and the sender profile, both produced
// by the record store and forwarded verbatim.
type MessageAux struct {
	ID     string          `json:"id,omitempty"`
	Sender json.RawMessage `json:"sender,omitempty"`
}

type TypingData struct {
	IsTyping bool `json:"isTyping"`
}

// ReactionData carries the caller-computed aggregated reaction state.
// The relay forwards Reactions untouched.
type ReactionData struct {
	MessageID string          `json:"messageId,omitempty"`
	Emoji     string          `json:"emoji,omitempty"`
	Reactions json.RawMessage `json:"reactions,omitempty"`
}

// Event is a decoded, shape-validated inbound frame. Exactly one of the
// aux payload fields is populated, matching Type.
type Event struct {
	Type           EventType
	ConversationID string
	UserID         string
	Content        string
	Status         Status
	Message        MessageAux
	Typing         TypingData
	Reaction       ReactionData
}

// inbound matches the raw wire shape before payload validation.
type inbound struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversationId"`
	UserID         string          `json:"userId"`
	Content        string          `json:"content"`
	Data           json.RawMessage `json:"data"`
	Status         string          `json:"status"`
}

// DecodeInbound parses and validates one client frame. A non-nil error
// means the frame must be dropped; the connection stays open.
func DecodeInbound(raw []byte) (Event, error) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	ev := Event{
		Type:           EventType(in.Type),
		ConversationID: in.ConversationID,
		UserID:         in.UserID,
		Content:        in.Content,
	}

	switch ev.Type {
	case EventJoin, EventLeave, EventMessage, EventTyping, EventReaction, EventPresence:
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
	if in.ConversationID == "" {
		return Event{}, fmt.Errorf("%w: conversationId", ErrMissingField)
	}
	if in.UserID == "" {
		return Event{}, fmt.Errorf("%w: userId", ErrMissingField)
	}

	// Each kind accepts only its own data shape. Absent data is fine;
	// a data bag that does not decode into the expected shape is not.
	switch ev.Type {
	case EventMessage:
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &ev.Message); err != nil {
				return Event{}, fmt.Errorf("%w: message data: %v", ErrInvalidPayload, err)
			}
		}
	case EventTyping:
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &ev.Typing); err != nil {
				return Event{}, fmt.Errorf("%w: typing data: %v", ErrInvalidPayload, err)
			}
		}
	case EventReaction:
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &ev.Reaction); err != nil {
				return Event{}, fmt.Errorf("%w: reaction data: %v", ErrInvalidPayload, err)
			}
		}
	case EventPresence:
		switch Status(in.Status) {
		case StatusOnline, StatusAway, StatusOffline:
			ev.Status = Status(in.Status)
		case "":
			// Missing status degrades to offline at fan-out time,
			// matching the behavior clients already rely on.
			ev.Status = StatusOffline
		default:
			return Event{}, fmt.Errorf("%w: status %q", ErrInvalidPayload, in.Status)
		}
	}
	return ev, nil
}

// Timestamp formats t the way the wire protocol expects.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
