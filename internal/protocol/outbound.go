package protocol

import (
	"encoding/json"
	"time"
)

type welcomeFrame struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp"`
}

type messageFrame struct {
	Type           EventType  `json:"type"`
	ConversationID string     `json:"conversationId"`
	UserID         string     `json:"userId"`
	Content        string     `json:"content"`
	Data           MessageAux `json:"data"`
	Timestamp      string     `json:"timestamp"`
}

type typingFrame struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	IsTyping       bool      `json:"isTyping"`
}

type reactionFrame struct {
	Type           EventType       `json:"type"`
	ConversationID string          `json:"conversationId"`
	UserID         string          `json:"userId"`
	MessageID      string          `json:"messageId,omitempty"`
	Emoji          string          `json:"emoji,omitempty"`
	Reactions      json.RawMessage `json:"reactions,omitempty"`
	Timestamp      string          `json:"timestamp"`
}

type presenceFrame struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Status         Status    `json:"status"`
}

func EncodeWelcome(msg string, now time.Time) []byte {
	b, _ := json.Marshal(welcomeFrame{
		Type:      EventWelcome,
		Message:   msg,
		Timestamp: Timestamp(now),
	})
	return b
}

// EncodeMessage stamps the server timestamp at fan-out time.
func EncodeMessage(ev Event, now time.Time) []byte {
	b, _ := json.Marshal(messageFrame{
		Type:           EventMessage,
		ConversationID: ev.ConversationID,
		UserID:         ev.UserID,
		Content:        ev.Content,
		Data:           ev.Message,
		Timestamp:      Timestamp(now),
	})
	return b
}

func EncodeTyping(ev Event) []byte {
	b, _ := json.Marshal(typingFrame{
		Type:           EventTyping,
		ConversationID: ev.ConversationID,
		UserID:         ev.UserID,
		IsTyping:       ev.Typing.IsTyping,
	})
	return b
}

func EncodeReaction(ev Event, now time.Time) []byte {
	b, _ := json.Marshal(reactionFrame{
		Type:           EventReaction,
		ConversationID: ev.ConversationID,
		UserID:         ev.UserID,
		MessageID:      ev.Reaction.MessageID,
		Emoji:          ev.Reaction.Emoji,
		Reactions:      ev.Reaction.Reactions,
		Timestamp:      Timestamp(now),
	})
	return b
}

func EncodePresence(conversationID, userID string, status Status) []byte {
	if status == "" {
		status = StatusOffline
	}
	b, _ := json.Marshal(presenceFrame{
		Type:           EventPresence,
		ConversationID: conversationID,
		UserID:         userID,
		Status:         status,
	})
	return b
}
