package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sheetpulse/internal/infrastructure"
	"sheetpulse/pkg/contracts/events"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	defaultPongWait = 60 * time.Second

	// Dashboards only send heartbeats
	maxMessageSize = 512
)

var heartbeat = []byte(`{"type":"heartbeat"}`)

// Client is a middleman between one websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient wraps conn. traceID ties the client's log lines to the upgrade
// request and may be empty.
func NewClient(hub *Hub, conn Connection, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	id := uuid.NewString()

	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, clientQueueSize),
		id:          id,
		traceID:     traceID,
		remoteAddr:  remote,
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id)),
	}
}

// ID returns the client identifier
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context() context.Context {
	if c.traceID == "" {
		return context.Background()
	}
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// ReadPump drains the connection until it fails, keeping the read deadline
// fresh on every pong. It unregisters the client on exit.
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(ctx, "unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		message = bytes.TrimSpace(message)
		if bytes.Equal(message, heartbeat) {
			c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
			continue
		}
		c.reject(ctx, message)
	}
}

// reject answers anything other than a heartbeat with an error message
func (c *Client) reject(ctx context.Context, message []byte) {
	var reply events.ErrorMessage
	reply.ID = uuid.NewString()
	reply.Type = events.MessageTypeError
	reply.Timestamp = time.Now().UTC()
	reply.TraceID = c.traceID
	reply.Data.Code = "UNSUPPORTED_MESSAGE"
	reply.Data.Message = "the event stream is read-only"

	b, err := json.Marshal(reply)
	if err != nil {
		return
	}
	c.logger.DebugContext(ctx, "client message ignored", slog.Int("size", len(message)))

	// The hub may close send concurrently; drop the reply rather than panic.
	defer func() { _ = recover() }()
	select {
	case c.send <- b:
	default:
	}
}

// WritePump writes queued messages and periodic pings until the hub closes
// the send queue or a write fails.
func (c *Client) WritePump() {
	ctx := c.context()
	ticker := time.NewTicker(c.hub.pingPeriod)
	sent := 0
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.InfoContext(ctx, "write pump stopped",
			slog.Int("messages_sent", sent),
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(ctx, "write failed", slog.String("error", err.Error()))
				return
			}
			sent++

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
