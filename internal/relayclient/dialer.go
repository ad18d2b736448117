package relayclient

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketDialer is the production Dialer.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

type gorillaSocket struct {
	conn *websocket.Conn
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Socket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &gorillaSocket{conn: conn}, nil
}

func (s *gorillaSocket) ReadMessage() ([]byte, error) {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

func (s *gorillaSocket) WriteMessage(data []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *gorillaSocket) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}
