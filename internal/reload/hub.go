// Package reload notifies connected clients, typically a reload helper
// running inside the plugin host, that a new development build is
// installed.
package reload

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/validation"
)

// Message types.
const (
	TypeReload     = "reload"
	TypeBuildError = "build-error"
)

// DefaultOrigins are accepted when no origins are configured: the desktop
// host and local pages.
var DefaultOrigins = []string{"app://obsidian.md", "localhost", "127.0.0.1"}

// Message is sent to every client.
type Message struct {
	Type      string    `json:"type"`
	Plugin    string    `json:"plugin,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and broadcasts messages to them.
//
// Invariants: clients is guarded by mu; a client's send channel is closed
// exactly once, by whoever removes it from clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	origins []string
	logger  logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewHub creates a hub accepting the given origins, DefaultOrigins when empty.
func NewHub(origins []string, logger logging.Logger) *Hub {
	if len(origins) == 0 {
		origins = DefaultOrigins
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[*client]struct{}),
		origins: origins,
		logger:  logger.WithComponent("reload"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ServeHTTP upgrades the request and registers the client. Requests with
// an origin outside the allowlist are rejected.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if origin := r.Header.Get("Origin"); origin != "" {
		if err := validation.ValidateOrigin(origin, h.origins); err != nil {
			h.logger.Warn(r.Context(), err, "Reload connection rejected", "remote", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origins were checked above.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "Reload upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug(r.Context(), "Reload client connected", "clients", count)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and unregisters the client when the
// connection ends.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				h.remove(c)
				return
			}
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}

// Broadcast sends msg to every client. Clients whose buffers are full are
// dropped.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "Could not encode reload message")
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.remove(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client. It is safe to call more than once.
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() {
		h.cancel()

		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[*client]struct{})
		for c := range clients {
			close(c.send)
		}
		h.mu.Unlock()

		for c := range clients {
			_ = c.conn.Close(websocket.StatusGoingAway, "devkit shutting down")
		}
	})
}

// Serve listens on addr and serves the hub at "/" until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.ServeListener(ctx, listener)
}

// ServeListener serves the hub on an existing listener until ctx is done.
func (h *Hub) ServeListener(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		h.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	h.logger.Info(ctx, "Reload server listening", "addr", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
