package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sheetpulse/internal/config"
	"sheetpulse/internal/infrastructure"
	"sheetpulse/pkg/contracts/events"
)

const (
	broadcastQueueSize = 256
	clientQueueSize    = 64
)

type envelope struct {
	msgType string
	payload []byte
}

// Hub maintains the set of active clients and fans events out to them
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool

	pingPeriod time.Duration
	pongWait   time.Duration

	logger  *slog.Logger
	metrics *Metrics

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub. metrics may be nil.
func NewHub(cfg config.WebSocketConfig, metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}

	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan envelope, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.context()
			h.metrics.connected(ctx)
			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			if msg, err := encode(ctx, events.MessageTypeConnect, events.ConnectEvent{ClientID: client.id}); err == nil {
				client.send <- msg
			}

		case client := <-h.unregister:
			h.remove(client)

		case env := <-h.broadcast:
			h.fanOut(env)
		}
	}
}

func (h *Hub) fanOut(env envelope) {
	h.mu.Lock()
	var slow []*Client
	delivered := 0
	for client := range h.clients {
		select {
		case client.send <- env.payload:
			delivered++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.Unlock()

	ctx := context.Background()
	h.metrics.delivered(ctx, env.msgType, delivered, len(env.payload))
	for _, client := range slow {
		h.logger.WarnContext(client.context(), "client queue full, disconnecting",
			slog.String("client_id", client.id))
		h.metrics.dropped(ctx, "client_queue_full")
		h.remove(client)
	}
}

// remove drops a client and closes its send queue, which ends WritePump
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.disconnected(ctx, time.Since(client.connectedAt))
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", client.id),
		slog.Int("total_clients", count))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Publish queues an event for every connected client. It never blocks:
// when the queue is full or the hub has stopped the event is dropped.
func (h *Hub) Publish(ctx context.Context, msgType events.MessageType, data any) {
	msg, err := encode(ctx, msgType, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode event",
			slog.String("type", string(msgType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- envelope{msgType: string(msgType), payload: msg}:
	default:
		h.metrics.dropped(ctx, "broadcast_queue_full")
		h.logger.WarnContext(ctx, "broadcast queue full, event dropped",
			slog.String("type", string(msgType)))
	}
}

// Register adds a client. It returns false when the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends the hub loop and disconnects every client. It waits for the
// loop to exit when the hub was started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		<-h.done
	}
}

func encode(ctx context.Context, msgType events.MessageType, data any) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   infrastructure.GetTraceID(ctx),
		},
		Data: data,
	})
}
