package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/automoto/herdview/shared/world"
	"github.com/coder/websocket"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("ClientState(%d)", int(s))
	}
}

// maxFrameBytes bounds a single inbound snapshot frame.
const maxFrameBytes = 8 << 20

// Client relays snapshots from text frames of a live websocket connection.
// Binary frames and payloads that fail to decode are dropped. Connection
// errors end the read loop and are kept for LastError; there is no reconnect.
// All shared fields are protected by mu (the read loop runs on its own goroutine).
type Client struct {
	dispatcher

	url string

	mu        sync.RWMutex
	state     ClientState
	lastError error
	conn      *websocket.Conn
	cancel    context.CancelFunc
	done      chan struct{}

	received atomic.Uint64
	dropped  atomic.Uint64
	culled   atomic.Uint64 // malformed entity entries removed from delivered frames
}

func NewClient(url string) *Client {
	return &Client{
		url:   url,
		state: StateDisconnected,
	}
}

// Connect dials the endpoint and starts reading frames in a background
// goroutine. It is a no-op while a connection is already open.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		err = fmt.Errorf("dial %s: %w", c.url, err)
		c.setError(err)
		log.Printf("[client] %v", err)
		return err
	}
	conn.SetReadLimit(maxFrameBytes)

	readCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	if c.state != StateConnecting {
		// Disconnect raced the dial.
		c.mu.Unlock()
		cancel()
		_ = conn.CloseNow()
		return ErrNotConnected
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.conn = conn
	c.cancel = cancel
	c.done = done
	c.state = StateConnected
	c.mu.Unlock()

	log.Printf("[client] connected to %s", c.url)
	go c.readLoop(readCtx, conn, done)
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			c.closed(ctx, err)
			return
		}
		if typ != websocket.MessageText {
			c.dropped.Add(1)
			continue
		}
		state, err := world.Decode(data)
		if err != nil {
			c.dropped.Add(1)
			continue
		}
		if state.Sanitized > 0 {
			// Log the first occurrence only; the count shows in the status line.
			if c.culled.Add(uint64(state.Sanitized)) == uint64(state.Sanitized) {
				log.Printf("[client] removing malformed entity entries (%d in frame %d)", state.Sanitized, state.ID)
			}
		}
		c.received.Add(1)
		c.emit(state)
	}
}

func (c *Client) closed(ctx context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn = nil
	switch {
	case ctx.Err() != nil:
		// Local Disconnect.
		c.state = StateDisconnected
	case IsClosed(err):
		log.Printf("[client] disconnected: %v", err)
		c.state = StateDisconnected
	default:
		log.Printf("[client] connection lost: %v", err)
		c.state = StateError
		c.lastError = err
	}
}

// Disconnect closes the connection and waits for the read loop to exit.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.state = StateDisconnected
	c.conn = nil
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.CloseNow()
	}
	if done != nil {
		<-done
	}
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Received returns the number of snapshots delivered to callbacks.
func (c *Client) Received() uint64 {
	return c.received.Load()
}

// Dropped returns the number of frames discarded as binary or undecodable.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// Culled returns the number of entity entries removed from delivered frames
// for non-finite coordinates or duplicate ids.
func (c *Client) Culled() uint64 {
	return c.culled.Load()
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}

// IsClosed reports whether err means the peer or the local side closed the
// connection rather than a transport failure.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
