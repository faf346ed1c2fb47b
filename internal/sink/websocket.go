package sink

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gpsdjson/internal/gpsd"
)

// Hub fans records out to websocket clients. Each client has a small send
// buffer; a client that falls behind misses records instead of stalling
// the stream. New clients get the most recent record of every class.
type Hub struct {
	format  Format
	sendBuf int
	logger  *slog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	last    map[string][]byte
	order   []string

	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(format Format, sendBuf int, logger *slog.Logger) *Hub {
	if sendBuf <= 0 {
		sendBuf = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		format:  format,
		sendBuf: sendBuf,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
		last:    make(map[string][]byte),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) messageType() int {
	if h.format == FormatCBOR {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	h.mu.Lock()
	c := &wsClient{conn: conn, send: make(chan []byte, h.sendBuf+len(h.order))}
	for _, class := range h.order {
		c.send <- h.last[class]
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("websocket client connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)
	// Reads only detect the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	h.logger.Info("websocket client disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) writeLoop(c *wsClient) {
	mt := h.messageType()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(mt, msg); err != nil {
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.Close()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.once.Do(func() { close(c.send) })
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Publish(_ context.Context, rec gpsd.Record) error {
	b, err := Encode(h.format, rec)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	class := rec.Class()
	if _, ok := h.last[class]; !ok {
		h.order = append(h.order, class)
	}
	h.last[class] = b
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
		}
	}
	return nil
}

func (h *Hub) Close() error {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.once.Do(func() { close(c.send) })
	}
	return nil
}

// Serve runs an HTTP server with the hub mounted at path until ctx ends.
func (h *Hub) Serve(ctx context.Context, ln net.Listener, path string) error {
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = h.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
