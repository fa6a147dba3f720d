package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/xrefresh/internal/observability"
	"github.com/danmuck/xrefresh/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the primary connection lifecycle.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Connection is the single outbound session to the monitor. One Connection
// value is reused across sessions; each successful ConnectTo starts a new
// session id.
type Connection struct {
	cfg    Config
	notify Notify
	dial   func(ctx context.Context, network, address string) (net.Conn, error)
	log    zerolog.Logger

	mu    sync.Mutex
	conn  net.Conn
	id    string
	state State
}

func NewConnection(cfg Config, notify Notify) *Connection {
	cfg = cfg.WithDefaults()
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	return &Connection{
		cfg:    cfg,
		notify: notify,
		dial:   dialer.DialContext,
		log:    log.With().Str("component", "session.Connection").Logger(),
	}
}

// ConnectTo dials host:port. It never retries; the returned error is the
// single failure signal for this attempt.
func (c *Connection) ConnectTo(ctx context.Context, host string, port int) error {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.state = StateConnecting
	c.mu.Unlock()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := c.dial(ctx, "tcp", addr)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateClosed
		observability.RecordDial(false)
		return fmt.Errorf("session: dial %s: %w", addr, err)
	}
	if c.state != StateConnecting {
		_ = conn.Close()
		observability.RecordDial(false)
		return fmt.Errorf("session: dial %s: closed while connecting", addr)
	}
	c.conn = conn
	c.id = uuid.NewString()
	c.state = StateOpen
	observability.RecordDial(true)
	c.log.Debug().Str("addr", addr).Msg("dialed monitor")
	return nil
}

// Watch starts event delivery for the open session.
func (c *Connection) Watch() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen || c.conn == nil {
		return ErrNotOpen
	}
	conn, id := c.conn, c.id
	go c.readLoop(conn, id)
	return nil
}

// Write sends p once with the given timeout.
func (c *Connection) Write(p []byte, timeout time.Duration) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		return ErrNotOpen
	}
	if timeout <= 0 {
		timeout = c.cfg.WriteTimeout
	}
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := conn.Write(p)
	return err
}

// Close ends the current session. It is idempotent and safe to call from an
// event handler of this connection; the reader reports EventDropped.
func (c *Connection) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID returns the id of the latest session, open or not.
func (c *Connection) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Connection) RemoteAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

func (c *Connection) readLoop(conn net.Conn, id string) {
	c.post(Event{Session: id, Kind: EventEstablished})

	rb := NewReceiveBuffer(c.cfg.BufferSize)
	chunk := make([]byte, c.cfg.ReadChunk)
	for {
		n, err := conn.Read(chunk)
		switch {
		case n > 0:
			c.OnDataReceived(rb, id, chunk[:n])
		case err == nil:
			c.post(Event{Session: id, Kind: EventZeroLength})
		}
		if err != nil {
			kind := EventDropped
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				kind = EventFailed
			}
			c.log.Debug().Str("session", id).Err(err).Stringer("kind", kind).Msg("reader stopped")
			c.post(Event{Session: id, Kind: kind, Err: err})
			return
		}
	}
}

// OnDataReceived feeds one delivery through rb and posts each completed
// message for session id.
func (c *Connection) OnDataReceived(rb *ReceiveBuffer, id string, p []byte) {
	err := rb.Feed(p, func(msg protocol.Message) {
		c.post(Event{Session: id, Kind: EventMessage, Message: msg})
	})
	if errors.Is(err, ErrBufferOverflow) {
		c.log.Error().Str("session", id).Err(err).Msg("receive buffer overflow")
		c.post(Event{Session: id, Kind: EventOverflow, Err: err})
	}
}

func (c *Connection) post(ev Event) {
	ev.Origin = OriginConnection
	if c.notify != nil {
		c.notify(ev)
	}
}
