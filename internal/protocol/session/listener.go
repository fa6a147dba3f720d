package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/danmuck/xrefresh/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ListenFunc binds a listening socket; net.Listen by default.
type ListenFunc func(network, address string) (net.Listener, error)

// Listener is the reconnect listener. A restarted monitor dials one of the
// fallback ports below the primary port to ask this client to reconnect.
// Accepted peers carry no payload: each one is closed at once and reported
// as EventEstablished.
type Listener struct {
	host   string
	notify Notify
	listen ListenFunc
	log    zerolog.Logger

	mu   sync.Mutex
	ln   net.Listener
	id   string
	port int
}

func NewListener(cfg Config, notify Notify) *Listener {
	return &Listener{
		host:   cfg.ListenHost,
		notify: notify,
		listen: net.Listen,
		log:    log.With().Str("component", "session.Listener").Logger(),
	}
}

// WithListenFunc replaces the bind function. Intended for tests.
func (l *Listener) WithListenFunc(fn ListenFunc) *Listener {
	if fn != nil {
		l.listen = fn
	}
	return l
}

// Start binds the first free port of basePort-1, basePort-2, ...,
// basePort-portRange, in that order, and starts accepting. Ports below the
// first successful bind are never tried. If the listener is already active
// its current port is returned.
func (l *Listener) Start(basePort, portRange int) (int, error) {
	if portRange < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRange, portRange)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return l.port, nil
	}

	var lastErr error
	for i := 1; i <= portRange; i++ {
		port := basePort - i
		if port <= 0 {
			break
		}
		ln, err := l.listen("tcp", net.JoinHostPort(l.host, strconv.Itoa(port)))
		if err != nil {
			lastErr = err
			l.log.Debug().Int("port", port).Err(err).Msg("bind failed")
			continue
		}
		l.ln = ln
		l.port = port
		l.id = uuid.NewString()
		observability.RecordListenerBind(true)
		go l.acceptLoop(ln, l.id)
		return port, nil
	}
	observability.RecordListenerBind(false)
	if lastErr != nil {
		return 0, fmt.Errorf("%w: ports %d..%d: %v", ErrNoListenPort, basePort-1, basePort-portRange, lastErr)
	}
	return 0, fmt.Errorf("%w: ports %d..%d", ErrNoListenPort, basePort-1, basePort-portRange)
}

// Stop closes the listening socket if any. It is idempotent and safe to call
// from an event handler of this listener.
func (l *Listener) Stop() error {
	l.mu.Lock()
	ln := l.ln
	l.ln = nil
	l.port = 0
	l.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ln != nil
}

func (l *Listener) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// ID returns the id of the latest bound listener, active or not.
func (l *Listener) ID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id
}

func (l *Listener) acceptLoop(ln net.Listener, id string) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			kind := EventFailed
			if errors.Is(err, net.ErrClosed) {
				kind = EventDropped
			}
			l.log.Debug().Str("session", id).Err(err).Stringer("kind", kind).Msg("accept stopped")
			l.post(Event{Session: id, Kind: kind, Err: err})
			return
		}
		l.log.Info().Str("session", id).Str("peer", conn.RemoteAddr().String()).Msg("reconnection request")
		_ = conn.Close()
		l.post(Event{Session: id, Kind: EventEstablished})
	}
}

func (l *Listener) post(ev Event) {
	ev.Origin = OriginListener
	if l.notify != nil {
		l.notify(ev)
	}
}
