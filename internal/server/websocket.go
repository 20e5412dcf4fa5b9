package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/grievance/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client is one open page listening to a session feed.
type Client struct {
	conn      *websocket.Conn
	send      <-chan []byte
	sessionID string
	server    *Server
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	sess, err := s.store.Touch(r.PathValue("id"))
	if err != nil {
		if !stderrors.Is(err, session.ErrNotFound) {
			s.logger.Error(r.Context(), err, "Failed to load session")
		}
		conn.Close(websocket.StatusPolicyViolation, "session expired")
		return
	}

	client := &Client{
		conn:      conn,
		send:      sess.Feed.Subscribe(),
		sessionID: sess.ID,
		server:    s,
	}
	defer sess.Feed.Unsubscribe(client.send)

	// A page that reconnects may have missed updates.
	if data, err := s.stateMessage(sess.ID, sess.Widget.Snapshot()); err == nil {
		writeCtx, cancel := context.WithTimeout(r.Context(), writeWait)
		err = conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			conn.Close(websocket.StatusInternalError, "")
			return
		}
	}

	s.logger.Debug(r.Context(), "Client connected",
		"session_id", sess.ID, "subscribers", sess.Feed.Subscribers())

	// The page never sends anything; CloseRead discards input and cancels
	// ctx once the peer goes away.
	ctx := conn.CloseRead(s.baseCtx)
	client.writePump(ctx)

	s.logger.Debug(r.Context(), "Client disconnected", "session_id", sess.ID)
}

// writePump forwards feed messages until the feed closes, the peer leaves or
// the server shuts down.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "")
			return

		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusPolicyViolation, "session expired")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				if websocket.CloseStatus(err) == -1 {
					c.server.logger.Warn(ctx, err, "WebSocket write failed", "session_id", c.sessionID)
				}
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// checkOrigin validates the request origin. Pages are served by this
// server, so the origin must be this host or one of the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	if originURL.Host == r.Host {
		return true
	}
	return s.isAllowedOrigin(origin)
}

func (s *Server) originPatterns() []string {
	patterns := make([]string, 0, len(s.config.Server.AllowedOrigins))
	for _, origin := range s.config.Server.AllowedOrigins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
