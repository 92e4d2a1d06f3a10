package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/milena-rosa/pictionary/go/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed       = errors.New("transport closed")
	ErrNotConnected = errors.New("transport not connected")
)

// State is the lifecycle stage of a connection
type State int32

const (
	StateOpen State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is the channel a session talks to the server through
type Transport interface {
	// Inbound delivers frames in arrival order. It is closed once the connection is gone.
	Inbound() <-chan protocol.Envelope
	Send(msg protocol.Outbound) error
	Close() error
	State() State
}

// CloseFunc is notified once when the connection drops without Close being called
type CloseFunc func(err error)

// Conn is a client websocket to the game server
type Conn struct {
	ID     string
	Target Target

	conn    *websocket.Conn
	config  Config
	onClose CloseFunc

	send    chan []byte
	inbound chan protocol.Envelope
	done    chan struct{}

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error

	ConnectedAt time.Time
}

var _ Transport = (*Conn)(nil)

// Dial opens the session channel and starts its pumps. onClose may be nil.
func Dial(ctx context.Context, target Target, config Config, onClose CloseFunc) (*Conn, error) {
	config = config.withDefaults()

	wsURL, err := target.URL()
	if err != nil {
		return nil, fmt.Errorf("build websocket url: %w", err)
	}

	c := &Conn{
		ID:      uuid.New().String(),
		Target:  target,
		config:  config,
		onClose: onClose,
		send:    make(chan []byte, config.SendBuffer),
		inbound: make(chan protocol.Envelope, config.InboundBuffer),
		done:    make(chan struct{}),
	}
	c.state.Store(int32(StateOpen))

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.HandshakeTimeout,
		ReadBufferSize:   config.ReadBufferSize,
		WriteBufferSize:  config.WriteBufferSize,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		c.state.Store(int32(StateClosed))
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", wsURL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c.conn = conn
	c.ConnectedAt = time.Now()
	c.state.Store(int32(StateActive))

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("room_id", target.RoomID).
		Str("player_id", target.PlayerID).
		Msg("websocket connection established")

	return c, nil
}

func (c *Conn) Inbound() <-chan protocol.Envelope {
	return c.inbound
}

func (c *Conn) State() State {
	return State(c.state.Load())
}

// Send frames msg as {type, payload} and queues it for the write pump
func (c *Conn) Send(msg protocol.Outbound) error {
	switch c.State() {
	case StateOpen:
		return ErrNotConnected
	case StateClosed:
		return ErrClosed
	}

	env, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", env.Type, err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close shuts the connection down without notifying onClose. Safe to call repeatedly.
func (c *Conn) Close() error {
	c.shutdown(nil, false)
	return c.closeErr
}

func (c *Conn) shutdown(cause error, notify bool) {
	first := false
	c.closeOnce.Do(func() {
		first = true
		c.state.Store(int32(StateClosed))
		close(c.done)

		if !notify {
			deadline := time.Now().Add(c.config.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to send close frame")
			}
		}
		if err := c.conn.Close(); err != nil {
			c.closeErr = fmt.Errorf("close websocket: %w", err)
		}

		log.Info().
			Str("connection_id", c.ID).
			Bool("unexpected", notify).
			Msg("websocket connection closed")
	})

	// outside the once so the callback may call Close
	if first && notify && c.onClose != nil {
		c.onClose(cause)
	}
}

// writePump handles sending frames and keepalive pings
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				c.shutdown(err, true)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				c.shutdown(err, true)
				return
			}
		}
	}
}

// readPump parses frames and hands them over in arrival order
func (c *Conn) readPump() {
	defer close(c.inbound)

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.State() == StateClosed {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			c.shutdown(err, true)
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		env, err := protocol.ParseFrame(message)
		if err != nil {
			log.Warn().
				Err(err).
				Str("connection_id", c.ID).
				Msg("dropping malformed frame")
			continue
		}

		select {
		case c.inbound <- env:
		case <-c.done:
			return
		}
	}
}
