package monitor

import (
	"context"

	"github.com/danmuck/xrefresh/internal/observability"
	"github.com/danmuck/xrefresh/internal/protocol/session"
)

func (m *Manager) handleEvent(ctx context.Context, ev session.Event) {
	switch ev.Origin {
	case session.OriginConnection:
		m.onConnectionEvent(ev)
	case session.OriginListener:
		m.onListenerEvent(ctx, ev)
	}
}

// Events from a session the manager already closed or replaced are dropped;
// whatever they report has been handled by the close.
func (m *Manager) onConnectionEvent(ev session.Event) {
	if ev.Session != m.conn.ID() || !m.conn.IsOpen() {
		m.log.Debug().Str("session", ev.Session).Stringer("kind", ev.Kind).Msg("stale connection event")
		return
	}
	switch ev.Kind {
	case session.EventMessage:
		m.processMessage(ev.Message)
	case session.EventEstablished:
		m.log.Info().Str("session", ev.Session).Msg("connection established")
	case session.EventFailed, session.EventDropped:
		m.log.Info().Str("session", ev.Session).Stringer("kind", ev.Kind).Err(ev.Err).Msg("connection lost")
		m.trigger.Disconnected()
		_ = m.conn.Close()
		m.clearSession()
	case session.EventOverflow:
		m.notifier.Notify(IconError, "Connection buffer is too small. Message data has been dropped.")
	case session.EventZeroLength:
		m.log.Debug().Str("session", ev.Session).Msg("zero length message")
	}
}

func (m *Manager) onListenerEvent(ctx context.Context, ev session.Event) {
	if ev.Session != m.listener.ID() || !m.listener.Active() {
		m.log.Debug().Str("session", ev.Session).Stringer("kind", ev.Kind).Msg("stale listener event")
		return
	}
	switch ev.Kind {
	case session.EventEstablished:
		observability.RecordReconnectRequest()
		m.reconnect(ctx)
	case session.EventFailed, session.EventDropped:
		m.log.Warn().Err(ev.Err).Stringer("kind", ev.Kind).Msg("reconnect listener lost")
		m.stopReconnectListener()
		m.requestStartingReconnectListener()
	}
}
