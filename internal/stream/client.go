package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultAddr = "127.0.0.1:2947"

// WatchRequest is the body of the ?WATCH= command sent after connecting.
type WatchRequest struct {
	Enable bool   `json:"enable"`
	JSON   bool   `json:"json"`
	NMEA   bool   `json:"nmea,omitempty"`
	Scaled bool   `json:"scaled,omitempty"`
	PPS    bool   `json:"pps,omitempty"`
	Device string `json:"device,omitempty"`
}

// Command renders the request as one gpsd command line.
func (w WatchRequest) Command() ([]byte, error) {
	body, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+9)
	out = append(out, "?WATCH="...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

type ClientConfig struct {
	Name  string
	Addr  string
	Watch WatchRequest

	// Reconnects back off from ReconnectDelay, doubling up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	MaxLineBytes      int

	// DialTimeout is used for the initial TCP connect.
	DialTimeout time.Duration

	Logger *slog.Logger
}

// Client keeps a connection to gpsd open, subscribes with WATCH and feeds
// every line to a Router.
type Client struct {
	cfg ClientConfig

	started atomic.Bool
	closed  atomic.Bool

	mu       sync.RWMutex
	state    string
	lastErr  string
	lastSeen time.Time
	count    uint64
	router   *Router

	cancel context.CancelFunc
	done   chan struct{}
}

type ClientSnapshot struct {
	Name        string      `json:"name"`
	Addr        string      `json:"addr"`
	State       string      `json:"state"`
	LastError   string      `json:"last_error,omitempty"`
	LastSeenUTC string      `json:"last_seen_utc,omitempty"`
	Lines       uint64      `json:"lines"`
	Router      RouterStats `json:"router"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Name == "" {
		return nil, fmt.Errorf("gpsd client name is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 250 * time.Millisecond
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = 10 * time.Second
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 256 * 1024
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{cfg: cfg, state: "stopped", done: make(chan struct{})}, nil
}

// Start connects in the background and hands every line to router until
// ctx is cancelled or Close is called.
func (c *Client) Start(ctx context.Context, router *Router) error {
	if c == nil {
		return fmt.Errorf("gpsd client is nil")
	}
	if c.closed.Load() {
		return fmt.Errorf("gpsd client is closed")
	}
	if router == nil {
		return fmt.Errorf("gpsd client router is nil")
	}
	if c.started.Swap(true) {
		return fmt.Errorf("gpsd client already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.router = router
	c.cancel = cancel
	c.mu.Unlock()
	c.setState("connecting", "")

	go func() {
		defer close(c.done)
		c.runLoop(runCtx, router)
	}()
	return nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.closed.Swap(true) {
		return
	}
	c.mu.RLock()
	cancel := c.cancel
	c.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()
	<-c.done
}

func (c *Client) Snapshot() ClientSnapshot {
	if c == nil {
		return ClientSnapshot{}
	}
	c.mu.RLock()
	out := ClientSnapshot{
		Name:      c.cfg.Name,
		Addr:      c.cfg.Addr,
		State:     c.state,
		LastError: c.lastErr,
		Lines:     c.count,
	}
	lastSeen := c.lastSeen
	router := c.router
	c.mu.RUnlock()

	if router != nil {
		out.Router = router.Stats()
	}
	if !lastSeen.IsZero() {
		out.LastSeenUTC = lastSeen.UTC().Format(time.RFC3339Nano)
	}
	return out
}

func (c *Client) runLoop(ctx context.Context, router *Router) {
	dialer := &net.Dialer{Timeout: c.cfg.DialTimeout}
	backoff := c.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			c.setState("stopped", "")
			return
		default:
		}

		c.setState("connecting", "")
		conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr)
		if err != nil {
			c.setState("error", err.Error())
			c.cfg.Logger.Warn("gpsd dial failed", "addr", c.cfg.Addr, "error", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				c.setState("stopped", "")
				return
			}
			backoff *= 2
			if backoff > c.cfg.MaxReconnectDelay {
				backoff = c.cfg.MaxReconnectDelay
			}
			continue
		}

		backoff = c.cfg.ReconnectDelay
		c.setState("connected", "")
		c.cfg.Logger.Info("gpsd connected", "addr", c.cfg.Addr)

		c.serve(ctx, conn, router)

		if !sleepCtx(ctx, backoff) {
			c.setState("stopped", "")
			return
		}
	}
}

func (c *Client) serve(ctx context.Context, conn net.Conn, router *Router) {
	defer func() { _ = conn.Close() }()

	// Unblock the read below when the context ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	cmd, err := c.cfg.Watch.Command()
	if err == nil {
		_, err = conn.Write(cmd)
	}
	if err != nil {
		c.setState("error", "watch: "+err.Error())
		return
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				c.setState("disconnected", "")
			} else {
				c.setState("disconnected", err.Error())
			}
			c.cfg.Logger.Warn("gpsd connection lost", "addr", c.cfg.Addr, "error", err)
			return
		}

		if len(line) > c.cfg.MaxLineBytes {
			c.setState("error", fmt.Sprintf("gpsd line too large (%d bytes)", len(line)))
			continue
		}

		if err := router.HandleLine(line); err != nil {
			c.setState("error", err.Error())
			continue
		}

		now := time.Now().UTC()
		c.mu.Lock()
		c.lastSeen = now
		c.count++
		c.mu.Unlock()
	}
}

func (c *Client) setState(state string, lastErr string) {
	c.mu.Lock()
	c.state = state
	if lastErr != "" {
		c.lastErr = lastErr
	} else if state == "connected" || state == "connecting" || state == "stopped" {
		// Clear stale errors on healthy/neutral states so status output doesn't
		// look broken after a transient startup failure.
		c.lastErr = ""
	}
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
