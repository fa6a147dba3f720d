package session

import (
	"errors"

	"github.com/danmuck/xrefresh/internal/protocol"
)

var (
	ErrNotOpen        = errors.New("session: connection not open")
	ErrAlreadyOpen    = errors.New("session: connection already open")
	ErrBufferOverflow = errors.New("session: receive buffer overflow")
	ErrNoListenPort   = errors.New("session: no reconnect listener port available")
	ErrInvalidRange   = errors.New("session: invalid listener port range")
)

// Origin names the socket an event came from.
type Origin int

const (
	OriginConnection Origin = iota
	OriginListener
)

func (o Origin) String() string {
	switch o {
	case OriginConnection:
		return "connection"
	case OriginListener:
		return "listener"
	default:
		return "unknown"
	}
}

// EventKind is what happened on a socket.
type EventKind int

const (
	// EventEstablished: primary connection watched, or a peer reached the listener.
	EventEstablished EventKind = iota
	// EventFailed: the socket failed unexpectedly.
	EventFailed
	// EventDropped: the socket closed, by the peer or by us.
	EventDropped
	// EventZeroLength: a read returned no bytes and no error.
	EventZeroLength
	// EventMessage: one complete inbound message, in framing order.
	EventMessage
	// EventOverflow: the receive buffer was reset and pending data lost.
	EventOverflow
)

func (k EventKind) String() string {
	switch k {
	case EventEstablished:
		return "established"
	case EventFailed:
		return "failed"
	case EventDropped:
		return "dropped"
	case EventZeroLength:
		return "zero_length"
	case EventMessage:
		return "message"
	case EventOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Event is one socket notification. Session identifies the socket lifetime
// that produced it so owners can drop events from sockets they replaced.
type Event struct {
	Origin  Origin
	Session string
	Kind    EventKind
	Message protocol.Message
	Err     error
}

// Notify delivers events to the socket owner. It may block until the owner
// accepts the event.
type Notify func(Event)
