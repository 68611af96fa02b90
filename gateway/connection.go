// Package gateway implements the session-gateway core: the Session
// Manager (C6), Frame Demultiplexer (C7), Turn Pipeline (C8), Session
// Bootstrap Endpoint (C9), and Connection Acceptor (C10), grounded on the
// teacher's Hub/Client WebSocket handler shape (internal/ws/handler.go)
// but restructured around a per-connection single-writer discipline
// instead of a per-message goroutine and a global broadcast hub.
package gateway

import (
	"context"
	"sync"
	"time"

	"voxgate/backend/identity/service"
	"voxgate/backend/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// TurnState is the per-connection turn state machine (spec §4.11).
type TurnState int32

const (
	StateIdle TurnState = iota
	StateAwaitingAudio
	StateProcessing
	StateClosed
)

// Connection is the per-connection state record (spec §3 "Connection
// state"). It is exclusively owned by its SessionManager; the record is
// created on accept and discarded on close.
type Connection struct {
	conn     *websocket.Conn
	registry *Registry
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	send chan []byte

	mu            sync.Mutex
	identity      service.Identity
	authenticated bool
	currentChatID string
	turnState     TurnState
	closed        bool

	sendMu sync.Mutex

	closeOnce sync.Once
}

// NewConnection wires a Connection around a live WebSocket, with the send
// queue capped at highWaterMark frames (spec §5 backpressure).
func NewConnection(conn *websocket.Conn, registry *Registry, log *logger.Logger, highWaterMark int) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:     conn,
		registry: registry,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		send:     make(chan []byte, highWaterMark),
	}
}

// Context is cancelled when the connection closes, unblocking any
// in-flight adapter call for this connection's turn (spec §5
// "Cancellation & timeouts").
func (c *Connection) Context() context.Context {
	return c.ctx
}

// Enqueue queues frame for the write pump. If the send buffer is already
// at its high-water mark the connection is closed with policy-violation
// rather than buffered without bound (spec §5 backpressure). A frame
// produced after the connection has already closed (e.g. a turn
// completing because its context was cancelled by Close) is dropped
// instead of being sent on an abandoned channel.
func (c *Connection) Enqueue(frame []byte) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	select {
	case c.send <- frame:
	default:
		c.log.Warn("send buffer exceeded high-water mark, closing connection")
		c.Close()
	}
}

// Identity returns the connection's current identity and auth state.
func (c *Connection) Identity() (service.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity, c.authenticated
}

// SetIdentity records a verified identity as authenticated and registers
// the connection in the registry under its userID.
func (c *Connection) SetIdentity(id service.Identity) {
	c.mu.Lock()
	wasAuthenticated := c.authenticated
	prevUserID := c.identity.UserID
	c.identity = id
	c.authenticated = true
	c.mu.Unlock()

	if wasAuthenticated && prevUserID != "" {
		c.registry.Remove(prevUserID, c)
	}
	c.registry.Add(id.UserID, c)
}

// SetAnonymousUserID binds a userID to an unauthenticated connection
// (the `user_info` control frame, spec §4.7). Ignored if the connection
// is already authenticated.
func (c *Connection) SetAnonymousUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authenticated {
		return
	}
	c.identity.UserID = userID
}

// SetChatID binds the connection to a chat session. Ownership is
// validated later, at persist time (spec §4.7).
func (c *Connection) SetChatID(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentChatID = chatID
}

// ChatID returns the currently bound chat session id, if any.
func (c *Connection) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentChatID
}

// MarkAwaitingAudio applies the advisory Idle -> AwaitingAudio transition
// for a `start_stream` control frame (spec §4.11). It is a no-op from any
// other state.
func (c *Connection) MarkAwaitingAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turnState == StateIdle {
		c.turnState = StateAwaitingAudio
	}
}

// TryBeginTurn attempts the Idle/AwaitingAudio -> Processing transition.
// It reports false (and leaves the state untouched) if a turn is already
// in flight or the connection is closed (spec §4.11 "Busy").
func (c *Connection) TryBeginTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turnState != StateIdle && c.turnState != StateAwaitingAudio {
		return false
	}
	c.turnState = StateProcessing
	return true
}

// EndTurn returns the connection to Idle once a turn's replies have all
// been flushed (spec §4.11 "Processing + pipeline completion -> Idle").
func (c *Connection) EndTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turnState == StateProcessing {
		c.turnState = StateIdle
	}
}

// Close tears the connection down: cancels any in-flight turn, deregisters
// from the Registry, and unblocks WritePump via ctx.Done(). Safe to call
// more than once or concurrently. The send channel is never closed here:
// a turn goroutine racing this call (cancellation races with persistence,
// spec §5) may still hold a reference and enqueue its final frame, and a
// send on a closed channel panics even when wrapped in a non-blocking
// select. closed is set first so Enqueue can refuse new frames instead of
// piling them into a channel nothing will ever drain.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.turnState = StateClosed
		c.closed = true
		userID := c.identity.UserID
		c.mu.Unlock()

		c.cancel()
		c.registry.Remove(userID, c)
		c.conn.Close()
	})
}

// WritePump is the connection's single writer: every outbound frame,
// whether a turn reply or an out-of-band SendToUser push, flows through
// this loop so frames for one connection are never interleaved (spec §5
// "per-connection send lock"), adapted from the teacher's Client.WritePump.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// ReadPump is the connection's single reader. Frames are dispatched to
// the SessionManager in arrival order, one at a time: turn-initiating
// frames run in their own goroutine (gated by TryBeginTurn, so at most
// one is ever in flight) while non-turn-initiating control frames are
// handled inline, adapted from the teacher's Client.ReadPump.
func (c *Connection) ReadPump(sm *SessionManager) {
	defer func() {
		sm.onClose()
		c.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			sm.onBinary(data)
		case websocket.TextMessage:
			sm.onControl(data)
		}
	}
}
