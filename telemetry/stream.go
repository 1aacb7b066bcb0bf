package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"
)

// streamBuffer is the number of pending messages per client. A client that
// falls further behind misses messages.
const streamBuffer = 16

const streamWriteTimeout = 2 * time.Second

// StreamMessage is the envelope every streamed record is sent in.
type StreamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StreamServer broadcasts telemetry records as JSON over websockets.
type StreamServer struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool

	srv *http.Server
	ln  net.Listener
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewStreamServer creates a server with no listener. Use Handler to mount it
// or Start to listen.
func NewStreamServer() *StreamServer {
	return &StreamServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
}

// Handler returns the websocket endpoint.
func (s *StreamServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start listens on addr and serves the websocket endpoint at /ws.
func (s *StreamServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("stream listen: %w", err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler()}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("stream server stopped", "error", err)
		}
	}()
	slog.Info("telemetry stream listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the listening address, or "" when not started.
func (s *StreamServer) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// ClientCount returns the number of connected clients.
func (s *StreamServer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Publish sends one record to every connected client without blocking.
func (s *StreamServer) Publish(kind string, data any) error {
	msg, err := sonnet.Marshal(StreamMessage{Type: kind, Data: data})
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	return nil
}

// Close disconnects all clients and stops the listener.
func (s *StreamServer) Close() error {
	s.mu.Lock()
	s.closed = true
	clients := make([]*streamClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[*streamClient]struct{})
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}

func (s *StreamServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{conn: conn, send: make(chan []byte, streamBuffer)}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writeLoop(c)

	// Incoming messages are ignored; reading handles control frames and
	// detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.remove(c)
}

func (s *StreamServer) writeLoop(c *streamClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Warn("websocket write failed", "error", err)
			s.remove(c)
			return
		}
	}
}

func (s *StreamServer) remove(c *streamClient) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		c.close()
	}
}

func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}
