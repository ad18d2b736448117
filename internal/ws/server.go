// Package ws glues fiber websocket connections to the hub: upgrade
// handling, the welcome frame, read/write pumps, and keepalive pings.
package ws

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/relay-service/internal/auth"
	"github.com/fathima-sithara/relay-service/internal/config"
	"github.com/fathima-sithara/relay-service/internal/hub"
	"github.com/fathima-sithara/relay-service/internal/protocol"
)

const welcomeText = "Connected to ChatFlow WebSocket server"

type Server struct {
	hub *hub.Hub
	cfg *config.Config
	log *zap.SugaredLogger
}

func NewServer(h *hub.Hub, cfg *config.Config, log *zap.SugaredLogger) *Server {
	return &Server{hub: h, cfg: cfg, log: log}
}

// wsConn adapts the fiber websocket connection to hub.Conn.
type wsConn struct {
	c        *websocket.Conn
	deadline time.Duration
}

func (w wsConn) WriteMessage(data []byte) error {
	_ = w.c.SetWriteDeadline(time.Now().Add(w.deadline))
	return w.c.WriteMessage(websocket.TextMessage, data)
}

func (w wsConn) Close() error { return w.c.Close() }

// Handler runs for the lifetime of one upgraded connection.
func (s *Server) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		// Session validation happens upstream; when a secret is
		// configured the gate re-checks the token here, but frame
		// routing always uses the caller-supplied userId.
		if s.cfg.App.JWTSecret != "" {
			claims, err := auth.ParseAndValidateToken(s.cfg.App.JWTSecret, conn.Query("token"))
			if err != nil {
				s.log.Warnw("rejecting unauthenticated upgrade", "err", err)
				_ = conn.Close()
				return
			}
			s.log.Debugw("upgrade token verified", "subject", claims.UserUUID)
		}

		socketID := uuid.NewString()
		sess := hub.NewSession(socketID, wsConn{c: conn, deadline: s.cfg.WriteDeadline}, s.cfg.WS.SendBuffer)
		s.log.Infow("connection established", "socket", socketID, "remote", conn.RemoteAddr())

		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteDeadline))
		if err := conn.WriteMessage(websocket.TextMessage, protocol.EncodeWelcome(welcomeText, time.Now())); err != nil {
			s.log.Warnw("welcome write failed", "socket", socketID, "err", err)
			_ = conn.Close()
			return
		}

		go sess.WritePump()
		go s.pingLoop(conn, socketID)

		s.readPump(conn, sess)
		s.hub.Disconnect(sess)
	}
}

func (s *Server) readPump(conn *websocket.Conn, sess *hub.Session) {
	conn.SetReadLimit(s.cfg.WS.MaxMessageSizeBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadDeadline))
	})

	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			s.log.Debugw("read loop ended", "socket", sess.SocketID, "err", err)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		ev, err := protocol.DecodeInbound(raw)
		if err != nil {
			// A malformed frame is a recoverable client bug, not a
			// transport fault: drop it and keep the connection.
			s.log.Debugw("dropping malformed frame", "socket", sess.SocketID, "err", err)
			continue
		}
		s.hub.Dispatch(sess, ev)
	}
}

// pingLoop keeps the connection alive; a failed ping means the socket
// is gone and the read loop will notice shortly after.
func (s *Server) pingLoop(conn *websocket.Conn, socketID string) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(s.cfg.WriteDeadline)); err != nil {
			s.log.Debugw("ping failed", "socket", socketID, "err", err)
			return
		}
	}
}
