package protocol

import (
	"encoding/json"
	"fmt"
)

// clientFrame is the shape clients put on the wire; the relay decodes
// it with DecodeInbound.
type clientFrame struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Content        string    `json:"content,omitempty"`
	Data           any       `json:"data,omitempty"`
	Status         Status    `json:"status,omitempty"`
}

func EncodeClientJoin(convID, userID string) []byte {
	b, _ := json.Marshal(clientFrame{Type: EventJoin, ConversationID: convID, UserID: userID})
	return b
}

func EncodeClientLeave(convID, userID string) []byte {
	b, _ := json.Marshal(clientFrame{Type: EventLeave, ConversationID: convID, UserID: userID})
	return b
}

func EncodeClientMessage(convID, userID, content string, aux *MessageAux) []byte {
	f := clientFrame{Type: EventMessage, ConversationID: convID, UserID: userID, Content: content}
	if aux != nil {
		f.Data = aux
	}
	b, _ := json.Marshal(f)
	return b
}

func EncodeClientTyping(convID, userID string, isTyping bool) []byte {
	b, _ := json.Marshal(clientFrame{
		Type: EventTyping, ConversationID: convID, UserID: userID,
		Data: TypingData{IsTyping: isTyping},
	})
	return b
}

func EncodeClientReaction(convID, userID string, data ReactionData) []byte {
	b, _ := json.Marshal(clientFrame{
		Type: EventReaction, ConversationID: convID, UserID: userID, Data: data,
	})
	return b
}

func EncodeClientPresence(convID, userID string, status Status) []byte {
	b, _ := json.Marshal(clientFrame{
		Type: EventPresence, ConversationID: convID, UserID: userID, Status: status,
	})
	return b
}

// ServerFrame is a decoded relay-to-client frame. Fields are populated
// according to Type; unused ones stay zero.
type ServerFrame struct {
	Type           EventType       `json:"type"`
	ConversationID string          `json:"conversationId"`
	UserID         string          `json:"userId"`
	Content        string          `json:"content"`
	Data           MessageAux      `json:"data"`
	IsTyping       bool            `json:"isTyping"`
	MessageID      string          `json:"messageId"`
	Emoji          string          `json:"emoji"`
	Reactions      json.RawMessage `json:"reactions"`
	Status         Status          `json:"status"`
	Timestamp      string          `json:"timestamp"`
	Message        string          `json:"message"`
}

func DecodeServerFrame(raw []byte) (ServerFrame, error) {
	var f ServerFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return ServerFrame{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	switch f.Type {
	case EventWelcome, EventMessage, EventTyping, EventReaction, EventPresence:
		return f, nil
	default:
		return ServerFrame{}, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
}
