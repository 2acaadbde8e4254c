package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"sheetpulse/internal/config"
	"sheetpulse/internal/infrastructure"
	"sheetpulse/internal/shared/testutil"
	"sheetpulse/pkg/contracts/events"
)

type decodedMessage struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	TraceID string          `json:"trace_id"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, b []byte) decodedMessage {
	t.Helper()
	var m decodedMessage
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	hub := NewHub(config.WebSocketConfig{}, metrics, logger)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func connectClient(t *testing.T, hub *Hub) (*Client, *mockConnection) {
	t.Helper()
	conn := newMockConnection()
	client := NewClient(hub, conn, "trace-client", nil)
	require.True(t, hub.Register(client))
	go client.WritePump()
	go client.ReadPump()
	require.Eventually(t, func() bool { return len(conn.textMessages()) >= 1 }, time.Second, 5*time.Millisecond)
	return client, conn
}

func TestHubSendsConnectMessage(t *testing.T) {
	hub := newTestHub(t)
	client, conn := connectClient(t, hub)

	msg := decode(t, conn.textMessages()[0])
	assert.Equal(t, string(events.MessageTypeConnect), msg.Type)
	assert.NotEmpty(t, msg.ID)

	var payload events.ConnectEvent
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, client.ID(), payload.ClientID)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHubPublish(t *testing.T) {
	hub := newTestHub(t)
	_, first := connectClient(t, hub)
	_, second := connectClient(t, hub)

	ctx := infrastructure.WithTraceID(context.Background(), "req-42")
	hub.Publish(ctx, events.MessageTypeDatasetCreated, events.DatasetEvent{ID: "ds-1", Name: "north.xlsx", Type: "packet", Rows: 3})

	for _, conn := range []*mockConnection{first, second} {
		require.Eventually(t, func() bool { return len(conn.textMessages()) == 2 }, time.Second, 5*time.Millisecond)
		msg := decode(t, conn.textMessages()[1])
		assert.Equal(t, "dataset:created", msg.Type)
		assert.Equal(t, "req-42", msg.TraceID)

		var payload events.DatasetEvent
		require.NoError(t, json.Unmarshal(msg.Data, &payload))
		assert.Equal(t, events.DatasetEvent{ID: "ds-1", Name: "north.xlsx", Type: "packet", Rows: 3}, payload)
	}
}

func TestHubPublishWithoutRunningLoopDoesNotBlock(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, nil, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastQueueSize*2; i++ {
			hub.Publish(context.Background(), events.MessageTypeIngestCompleted, events.IngestEvent{Files: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a hub that is not running")
	}
}

func TestHubUnregistersOnReadFailure(t *testing.T) {
	hub := newTestHub(t)
	_, conn := connectClient(t, hub)
	require.Equal(t, 1, hub.ClientCount())

	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubStopDisconnectsClients(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(config.WebSocketConfig{}, nil, logger)
	hub.Start()
	_, conn := connectClient(t, hub)

	hub.Stop()

	assert.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, hub.Register(NewClient(hub, newMockConnection(), "", nil)))

	// Publishing after Stop is a silent no-op
	hub.Publish(context.Background(), events.MessageTypeSourceAdded, events.SourceEvent{Name: "x"})
}

func TestNewHubKeepaliveDefaults(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.WebSocketConfig
		wantPing time.Duration
		wantPong time.Duration
	}{
		{"zero config", config.WebSocketConfig{}, 54 * time.Second, 60 * time.Second},
		{"explicit", config.WebSocketConfig{PingPeriod: 10 * time.Second, PongWait: 20 * time.Second}, 10 * time.Second, 20 * time.Second},
		{"ping not shorter than pong", config.WebSocketConfig{PingPeriod: 30 * time.Second, PongWait: 30 * time.Second}, 27 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(tt.cfg, nil, nil)
			assert.Equal(t, tt.wantPing, hub.pingPeriod)
			assert.Equal(t, tt.wantPong, hub.pongWait)
		})
	}
}

func TestClientRepliesToUnsupportedMessages(t *testing.T) {
	hub := newTestHub(t)
	_, conn := connectClient(t, hub)

	conn.push(`{"type":"heartbeat"}`)
	conn.push(`{"type":"subscribe"}`)

	require.Eventually(t, func() bool { return len(conn.textMessages()) == 2 }, time.Second, 5*time.Millisecond)
	msg := decode(t, conn.textMessages()[1])
	assert.Equal(t, string(events.MessageTypeError), msg.Type)
	assert.Equal(t, "trace-client", msg.TraceID)
	assert.Contains(t, string(msg.Data), "UNSUPPORTED_MESSAGE")

	conn.mu.Lock()
	assert.Equal(t, int64(maxMessageSize), conn.readLimit)
	assert.NotNil(t, conn.pongHandler)
	conn.mu.Unlock()
}

func TestHandler(t *testing.T) {
	hub := newTestHub(t)
	handler := NewHandler(hub, config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024}, []string{"http://localhost:8080"}, nil)
	server := httptest.NewServer(handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	t.Run("streams events", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://localhost:8080"}}
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "connect", decode(t, raw).Type)

		hub.Publish(context.Background(), events.MessageTypeSourceRemoved, events.SourceEvent{Name: "north"})

		_, raw, err = conn.ReadMessage()
		require.NoError(t, err)
		msg := decode(t, raw)
		assert.Equal(t, "source:removed", msg.Type)
		assert.JSONEq(t, `{"name":"north"}`, string(msg.Data))
	})

	t.Run("rejects foreign origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.connected(ctx)
		m.disconnected(ctx, time.Second)
		m.delivered(ctx, "dataset:created", 2, 10)
		m.dropped(ctx, "test")
	})
}
