package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeInboundMessage(t *testing.T) {
	raw := `{"type":"message","conversationId":"conv-1","userId":"u1","content":"hi","data":{"id":"m-9","sender":{"name":"Alice"}}}`
	ev, err := DecodeInbound([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if ev.Type != EventMessage || ev.ConversationID != "conv-1" || ev.UserID != "u1" || ev.Content != "hi" {
		t.Fatalf("decoded event = %+v", ev)
	}
	if ev.Message.ID != "m-9" {
		t.Fatalf("message aux id = %q, want m-9", ev.Message.ID)
	}
	if len(ev.Message.Sender) == 0 {
		t.Fatal("sender profile not carried through")
	}
}

func TestDecodeInboundTyping(t *testing.T) {
	ev, err := DecodeInbound([]byte(`{"type":"typing","conversationId":"c","userId":"u","data":{"isTyping":true}}`))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if !ev.Typing.IsTyping {
		t.Fatal("isTyping not decoded")
	}

	// Absent data defaults to not typing.
	ev, err = DecodeInbound([]byte(`{"type":"typing","conversationId":"c","userId":"u"}`))
	if err != nil {
		t.Fatalf("DecodeInbound without data: %v", err)
	}
	if ev.Typing.IsTyping {
		t.Fatal("missing data should default to isTyping=false")
	}
}

func TestDecodeInboundRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"invalid json", `{"type":`, ErrInvalidPayload},
		{"unknown type", `{"type":"shrug","conversationId":"c","userId":"u"}`, ErrUnknownType},
		{"welcome is outbound only", `{"type":"welcome","conversationId":"c","userId":"u"}`, ErrUnknownType},
		{"missing conversation", `{"type":"join","userId":"u"}`, ErrMissingField},
		{"missing user", `{"type":"join","conversationId":"c"}`, ErrMissingField},
		{"typing data wrong shape", `{"type":"typing","conversationId":"c","userId":"u","data":{"isTyping":"yes"}}`, ErrInvalidPayload},
		{"bad presence status", `{"type":"presence","conversationId":"c","userId":"u","status":"sleeping"}`, ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeInbound([]byte(tc.raw)); !errors.Is(err, tc.want) {
				t.Fatalf("DecodeInbound(%s) err = %v, want %v", tc.raw, err, tc.want)
			}
		})
	}
}

func TestDecodePresenceDefaultsToOffline(t *testing.T) {
	ev, err := DecodeInbound([]byte(`{"type":"presence","conversationId":"c","userId":"u"}`))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if ev.Status != StatusOffline {
		t.Fatalf("status = %q, want offline", ev.Status)
	}
}

func TestEncodeMessageStampsTimestamp(t *testing.T) {
	ev := Event{
		Type:           EventMessage,
		ConversationID: "conv-1",
		UserID:         "u1",
		Content:        "hi",
		Message:        MessageAux{ID: "m-1"},
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var f map[string]any
	if err := json.Unmarshal(EncodeMessage(ev, now), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f["timestamp"] != "2025-06-01T12:00:00Z" {
		t.Fatalf("timestamp = %v", f["timestamp"])
	}
	data, ok := f["data"].(map[string]any)
	if !ok || data["id"] != "m-1" {
		t.Fatalf("data = %v", f["data"])
	}
}

func TestEncodePresenceDefaultsToOffline(t *testing.T) {
	var f map[string]any
	if err := json.Unmarshal(EncodePresence("c", "u", ""), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f["status"] != "offline" {
		t.Fatalf("status = %v, want offline", f["status"])
	}
}

func TestServerFrameRoundTrip(t *testing.T) {
	ev := Event{
		Type:           EventTyping,
		ConversationID: "conv-1",
		UserID:         "u1",
		Typing:         TypingData{IsTyping: true},
	}
	f, err := DecodeServerFrame(EncodeTyping(ev))
	if err != nil {
		t.Fatalf("DecodeServerFrame: %v", err)
	}
	if f.Type != EventTyping || f.ConversationID != "conv-1" || f.UserID != "u1" || !f.IsTyping {
		t.Fatalf("frame = %+v", f)
	}

	if _, err := DecodeServerFrame([]byte(`{"type":"join"}`)); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("client-only type accepted: %v", err)
	}
}

func TestClientEncodersDecodeOnTheRelay(t *testing.T) {
	ev, err := DecodeInbound(EncodeClientReaction("conv-1", "u1", ReactionData{
		MessageID: "m-1",
		Emoji:     "👍",
		Reactions: json.RawMessage(`{"👍":["u1"]}`),
	}))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if ev.Reaction.MessageID != "m-1" || ev.Reaction.Emoji != "👍" {
		t.Fatalf("reaction = %+v", ev.Reaction)
	}

	ev, err = DecodeInbound(EncodeClientPresence("conv-1", "u1", StatusAway))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if ev.Status != StatusAway {
		t.Fatalf("status = %q, want away", ev.Status)
	}
}
