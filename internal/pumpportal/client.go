package pumpportal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultEndpoint is the public PumpPortal data feed.
const DefaultEndpoint = "wss://pumpportal.fun/api/data"

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("client closed")

// Config configures WebSocket client behavior.
type Config struct {
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long the connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the capacity of the message channel.
	Buffer int
}

// DefaultConfig returns default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      90 * time.Second,
		WriteTimeout:     10 * time.Second,
		Buffer:           256,
	}
}

// Client is a single PumpPortal websocket session. It does not reconnect:
// when the connection drops the message channel is closed and Err reports why.
type Client struct {
	config Config

	conn   *websocket.Conn
	connMu sync.Mutex // serializes writes
	closed atomic.Bool

	subscribed atomic.Bool
	messages   chan []byte

	errMu sync.Mutex
	err   error

	done chan struct{}
	wg   sync.WaitGroup
}

// Dial connects to endpoint.
func Dial(ctx context.Context, endpoint string, config *Config) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &Client{
		config:   cfg,
		conn:     conn,
		messages: make(chan []byte, cfg.Buffer),
		done:     make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(c.readDeadline())
	})

	if cfg.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}

	return c, nil
}

// SubscribeNewTokens sends the new-token subscription and starts delivering
// raw messages in arrival order. It may be called once per client.
func (c *Client) SubscribeNewTokens(ctx context.Context) (<-chan []byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if c.subscribed.Swap(true) {
		return nil, errors.New("already subscribed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.writeJSON(map[string]string{"method": "subscribeNewToken"}); err != nil {
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	c.wg.Add(1)
	go c.readLoop()

	return c.messages, nil
}

// Err returns the error that ended the read loop, nil after a clean Close.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close closes the WebSocket connection and waits for background loops.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.connMu.Unlock()

	c.wg.Wait()
	return err
}

func (c *Client) writeJSON(v any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readDeadline returns the next read deadline, zero (none) when ReadTimeout is unset.
func (c *Client) readDeadline() time.Time {
	if c.config.ReadTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.config.ReadTimeout)
}

// readLoop forwards messages until the connection fails or the client closes.
func (c *Client) readLoop() {
	defer c.wg.Done()
	defer close(c.messages)

	for {
		_ = c.conn.SetReadDeadline(c.readDeadline())

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.errMu.Lock()
				c.err = fmt.Errorf("read message: %w", err)
				c.errMu.Unlock()
			}
			return
		}

		// Block until the consumer takes it; never drop events
		select {
		case c.messages <- message:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			// A failed ping surfaces as a read error
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			c.connMu.Unlock()
		}
	}
}
