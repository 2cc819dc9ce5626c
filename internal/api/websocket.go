package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/devicekit/internal/reporting"
)

// Message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypeSnapshot    = "snapshot"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// ChannelReadiness carries readiness transitions.
const ChannelReadiness = "device.readiness"

// channels lists what clients may subscribe to. Completed pass summaries
// are published on reporting.ChannelReady by the reporting sink.
var channels = []string{ChannelReadiness, reporting.ChannelReady}

// WSRequest is a client-to-server message.
type WSRequest struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// WSMessage is a server-to-client message.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are policed by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket upgrades to a WebSocket. With JWT enabled the caller
// must present a ticket from POST /auth/ws-ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	subject := "anonymous"
	if s.secCfg.JWT.Enabled {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" {
			writeUnauthorized(w, "ticket query parameter is required")
			return
		}
		entry, ok := s.tickets.validate(ticket)
		if !ok {
			writeUnauthorized(w, "invalid or expired ticket")
			return
		}
		subject = entry.subject
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.hub, conn, subject, func() any { return s.currentDevice() })
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) timings() (ping, pong time.Duration) {
	return time.Duration(c.hub.cfg.PingInterval) * time.Second,
		time.Duration(c.hub.cfg.PongTimeout) * time.Second
}

// readPump decodes requests until the peer goes away.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // Connection teardown
	}()

	ping, pong := c.timings()
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(ping + pong)) }

	if c.hub.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	}
	extend() //nolint:errcheck // Read errors surface below
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		var req WSRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.reply(WSTypeError, "", map[string]string{"message": "invalid JSON message"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		// Application messages count as liveness too.
		extend() //nolint:errcheck // Read errors surface on the next read
		c.handle(req)
	}
}

// writePump drains the send queue and keeps the connection alive.
func (c *WSClient) writePump() {
	ping, pong := c.timings()
	if ping <= 0 {
		ping = 30 * time.Second
	}
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // Connection teardown
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(pong)) //nolint:errcheck // Write error surfaces below
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // Best-effort close frame
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle dispatches one request.
func (c *WSClient) handle(req WSRequest) {
	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		if len(req.Channels) == 0 {
			c.reply(WSTypeError, req.ID, map[string]string{"message": "channels is required"})
			return
		}
		for _, ch := range req.Channels {
			if !slices.Contains(channels, ch) {
				c.reply(WSTypeError, req.ID, map[string]any{
					"message":  fmt.Sprintf("unknown channel %q", ch),
					"channels": channels,
				})
				return
			}
		}
		on := req.Type == WSTypeSubscribe
		c.setChannels(req.Channels, on)
		key := "unsubscribed"
		if on {
			key = "subscribed"
			c.hub.logger.Debug("websocket client subscribed", "subject", c.subject, "channels", req.Channels)
		}
		c.reply(WSTypeResponse, req.ID, map[string]any{key: req.Channels})
	case WSTypeSnapshot:
		c.reply(WSTypeResponse, req.ID, c.snapshot())
	case WSTypePing:
		c.reply(WSTypePong, req.ID, nil)
	default:
		c.reply(WSTypeError, req.ID, map[string]string{"message": "unknown message type: " + req.Type})
	}
}

func (c *WSClient) reply(msgType, id string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		c.hub.logger.Error("marshalling websocket reply", "type", msgType, "error", err)
		return
	}
	if !c.enqueue(data) {
		c.hub.dropped.Add(1)
	}
}
