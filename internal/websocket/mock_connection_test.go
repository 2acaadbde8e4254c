package websocket

import (
	"errors"
	"net"
	"sync"
	"time"
)

var errConnClosed = errors.New("connection closed")

// mockConnection is an in-memory Connection. Reads block until a message
// is queued with push or the connection is closed.
type mockConnection struct {
	mu      sync.Mutex
	written [][]byte
	types   []int
	closed  bool

	incoming chan []byte
	done     chan struct{}

	readLimit   int64
	pongHandler func(string) error
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		incoming: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errConnClosed
	}
	m.types = append(m.types, messageType)
	m.written = append(m.written, append([]byte(nil), data...))
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.incoming:
		return 1, msg, nil
	case <-m.done:
		return 0, nil, errConnClosed
	}
}

func (m *mockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	m.readLimit = limit
	m.mu.Unlock()
}

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	m.pongHandler = h
	m.mu.Unlock()
}

func (m *mockConnection) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000}
}

func (m *mockConnection) push(msg string) {
	m.incoming <- []byte(msg)
}

// textMessages returns the payloads of the text frames written so far
func (m *mockConnection) textMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for i, t := range m.types {
		if t == 1 {
			out = append(out, m.written[i])
		}
	}
	return out
}

func (m *mockConnection) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
