package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danmuck/xrefresh/internal/observability"
	"github.com/danmuck/xrefresh/internal/protocol"
	"github.com/danmuck/xrefresh/internal/protocol/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("monitor: manager stopped")

// Options configures a Manager.
type Options struct {
	Session session.Config
	// ClientType and Agent identify this client in the Hello handshake.
	ClientType string
	Agent      string
	// EventQueue is the socket event buffer depth.
	EventQueue int
	// Listen overrides how the reconnect listener binds ports.
	Listen session.ListenFunc
}

func DefaultOptions() Options {
	return Options{
		Session:    session.DefaultConfig(),
		ClientType: "Internet Explorer",
		Agent:      "Agent?",
		EventQueue: 64,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	o.Session = o.Session.WithDefaults()
	if strings.TrimSpace(o.ClientType) == "" {
		o.ClientType = def.ClientType
	}
	if strings.TrimSpace(o.Agent) == "" {
		o.Agent = def.Agent
	}
	if o.EventQueue <= 0 {
		o.EventQueue = def.EventQueue
	}
	return o
}

// Status is a snapshot of the manager's session metadata.
type Status struct {
	Open       bool
	Connected  bool
	Agent      string
	Version    string
	Remote     string
	ListenPort int
}

// Manager owns the primary connection and the reconnect listener, and
// dispatches inbound commands.
//
// All state is confined to the goroutine running Serve. Socket goroutines
// hand events to it over a channel and public operations are submitted to
// it, so no field below the channels is touched from anywhere else.
type Manager struct {
	opts     Options
	source   Source
	notifier Notifier
	trigger  Trigger
	log      zerolog.Logger

	events   chan session.Event
	calls    chan call
	done     chan struct{}
	doneOnce sync.Once

	conn     *session.Connection
	listener *session.Listener

	connected bool
	agent     string
	version   string
}

type call struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// NewManager builds a manager and arms the reconnect listener. Nothing is
// dispatched until Serve runs.
func NewManager(opts Options, source Source, notifier Notifier, trigger Trigger) *Manager {
	opts = opts.withDefaults()
	if source == nil {
		source = noSource{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if trigger == nil {
		trigger = nopTrigger{}
	}
	m := &Manager{
		opts:     opts,
		source:   source,
		notifier: notifier,
		trigger:  trigger,
		log:      log.With().Str("component", "monitor.Manager").Logger(),
		events:   make(chan session.Event, opts.EventQueue),
		calls:    make(chan call),
		done:     make(chan struct{}),
	}
	m.conn = session.NewConnection(opts.Session, m.post)
	m.listener = session.NewListener(opts.Session, m.post).WithListenFunc(opts.Listen)
	m.startReconnectListener()
	return m
}

// Serve runs the manager loop until ctx is canceled. On shutdown it says Bye
// to the monitor and stops the reconnect listener.
func (m *Manager) Serve(ctx context.Context) error {
	m.startReconnectListener()
	defer func() {
		if ctx.Err() == nil {
			return
		}
		m.disconnect()
		m.stopReconnectListener()
		m.doneOnce.Do(func() { close(m.done) })
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-m.calls:
			c.fn(ctx)
			close(c.done)
		case ev := <-m.events:
			m.handleEvent(ctx, ev)
		}
	}
}

func (m *Manager) String() string {
	return "monitor.Manager"
}

// Connect dials the monitor and sends Hello. The returned error only reports
// that the request could not reach the manager; connection problems are
// reported through the Notifier.
func (m *Manager) Connect(ctx context.Context) error {
	return m.do(ctx, m.connect)
}

// Disconnect says Bye and closes the primary connection.
func (m *Manager) Disconnect(ctx context.Context) error {
	return m.do(ctx, func(context.Context) { m.disconnect() })
}

// Reconnect runs Disconnect followed by Connect.
func (m *Manager) Reconnect(ctx context.Context) error {
	return m.do(ctx, m.reconnect)
}

// Send writes msg if the connection is open.
func (m *Manager) Send(ctx context.Context, msg protocol.Message) error {
	return m.do(ctx, func(context.Context) { m.send(msg) })
}

// SendSetPage reports the current page to the monitor.
func (m *Manager) SendSetPage(ctx context.Context, title, url string) error {
	return m.do(ctx, func(context.Context) { m.sendSetPage(title, url) })
}

// ProcessMessage dispatches msg as if it had arrived on the connection.
func (m *Manager) ProcessMessage(ctx context.Context, msg protocol.Message) error {
	return m.do(ctx, func(context.Context) { m.processMessage(msg) })
}

func (m *Manager) StartReconnectListener(ctx context.Context) error {
	return m.do(ctx, func(context.Context) { m.startReconnectListener() })
}

func (m *Manager) StopReconnectListener(ctx context.Context) error {
	return m.do(ctx, func(context.Context) { m.stopReconnectListener() })
}

// RequestStartingReconnectListener asks the Trigger owner to restart the
// listener on its own schedule.
func (m *Manager) RequestStartingReconnectListener(ctx context.Context) error {
	return m.do(ctx, func(context.Context) { m.requestStartingReconnectListener() })
}

func (m *Manager) Status(ctx context.Context) (Status, error) {
	var st Status
	err := m.do(ctx, func(context.Context) {
		st = Status{
			Open:       m.conn.IsOpen(),
			Connected:  m.connected,
			Agent:      m.agent,
			Version:    m.version,
			Remote:     m.conn.RemoteAddr(),
			ListenPort: m.listener.Port(),
		}
	})
	return st, err
}

func (m *Manager) IsConnected(ctx context.Context) bool {
	st, err := m.Status(ctx)
	return err == nil && st.Connected
}

func (m *Manager) do(ctx context.Context, fn func(context.Context)) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case m.calls <- c:
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) post(ev session.Event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

func (m *Manager) connect(ctx context.Context) {
	if m.conn.IsOpen() {
		m.notifier.Notify(IconInfo, "Already connected.")
		return
	}
	m.log.Info().Msg("trying to connect")
	host := m.lookupHost()
	port := m.lookupPort()

	if err := m.conn.ConnectTo(ctx, host, port); err != nil {
		m.notifier.Notify(IconWarning, "Unable to see XRefresh Monitor.")
		m.notifier.Notify(IconBulb, "Please check if you have running XRefresh Monitor. On Windows, it is program running in system tray. Look for Programs -> XRefresh -> XRefresh.exe")
		m.notifier.Notify(IconBulb, fmt.Sprintf("You may also want to check your firewall settings. XRefresh client expects Monitor to talk from %s on port %d", host, port))
		m.log.Info().Err(err).Msg("server not available")
		return
	}
	if err := m.conn.Watch(); err != nil {
		m.log.Error().Err(err).Msg("unable to watch connection")
		_ = m.conn.Close()
		return
	}
	m.sendHello()
}

func (m *Manager) disconnect() {
	m.log.Debug().Msg("trying to disconnect")
	if !m.conn.IsOpen() {
		return
	}
	m.sendBye()
	_ = m.conn.Close()
	m.clearSession()
	m.trigger.UpdateIcon()
}

func (m *Manager) reconnect(ctx context.Context) {
	m.notifier.Notify(IconInfo, "Reconnection request received")
	m.disconnect()
	m.connect(ctx)
}

func (m *Manager) send(msg protocol.Message) {
	if !m.conn.IsOpen() {
		return
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		m.log.Error().Err(err).Str("command", msg.Command()).Msg("unable to encode message")
		return
	}
	if err := m.conn.Write(data, m.opts.Session.WriteTimeout); err != nil {
		observability.RecordWriteFailure()
		m.log.Error().Err(err).Str("command", msg.Command()).Msg("unable to send message")
	}
}

func (m *Manager) sendHello() {
	m.send(protocol.NewMessage(protocol.CommandHello).
		Set(protocol.FieldType, m.opts.ClientType).
		Set(protocol.FieldAgent, m.opts.Agent))
}

func (m *Manager) sendBye() {
	m.send(protocol.NewMessage(protocol.CommandBye))
}

func (m *Manager) sendSetPage(title, url string) {
	m.send(protocol.NewMessage(protocol.CommandSetPage).
		Set(protocol.FieldPage, title).
		Set(protocol.FieldURL, url))
}

func (m *Manager) processMessage(msg protocol.Message) {
	command := msg.Command()
	observability.RecordMessage(command)
	switch command {
	case protocol.CommandAboutMe:
		m.connected = true
		m.agent = msg.String(protocol.FieldAgent)
		m.version = msg.String(protocol.FieldVersion)
		m.notifier.Notify(IconConnected, fmt.Sprintf("Connected to XRefresh Monitor: %s %s", m.agent, m.version))
		m.trigger.RequestPageInfo()
		m.trigger.UpdateIcon()
	case protocol.CommandDoRefresh:
		name := msg.String(protocol.FieldName)
		m.notifier.Notify(IconRefresh, fmt.Sprintf("Refresh request from %s: %s", name, Story(msg)))
		m.trigger.Refresh()
	default:
		m.log.Debug().Str("command", command).Msg("ignoring command")
	}
}

func (m *Manager) clearSession() {
	m.connected = false
	m.agent = ""
	m.version = ""
}

func (m *Manager) startReconnectListener() {
	if m.listener.Active() {
		return
	}
	port := m.lookupPort()
	portRange := m.lookupPortRange()
	bound, err := m.listener.Start(port, portRange)
	if err != nil {
		m.log.Warn().Err(err).Msg("unable to assign port for reconnect listener")
		return
	}
	m.log.Info().Int("port", bound).Msg("listening for reconnect")
}

func (m *Manager) stopReconnectListener() {
	_ = m.listener.Stop()
}

func (m *Manager) requestStartingReconnectListener() {
	m.trigger.ListenForReconnect()
}

func (m *Manager) lookupHost() string {
	host, err := m.source.Host()
	if err != nil {
		m.notifier.Notify(IconWarning, "Unable to read host record from configuration.")
		m.log.Debug().Err(err).Msg("host lookup failed")
		return session.DefaultHost
	}
	if strings.TrimSpace(host) == "" {
		return session.DefaultHost
	}
	return strings.TrimSpace(host)
}

func (m *Manager) lookupPort() int {
	port, err := m.source.Port()
	if err != nil || port <= 0 || port > 65535 {
		m.notifier.Notify(IconWarning, "Unable to read port from configuration.")
		m.log.Debug().Err(err).Int("port", port).Msg("port lookup failed")
		return session.DefaultPort
	}
	return port
}

func (m *Manager) lookupPortRange() int {
	portRange, err := m.source.PortRange()
	if err != nil || portRange <= 0 {
		m.notifier.Notify(IconWarning, "Unable to read port range from configuration.")
		m.log.Debug().Err(err).Int("range", portRange).Msg("port range lookup failed")
		return session.DefaultPortRange
	}
	return portRange
}

type noSource struct{}

var errNoSource = errors.New("monitor: no configuration source")

func (noSource) Host() (string, error)   { return "", errNoSource }
func (noSource) Port() (int, error)      { return 0, errNoSource }
func (noSource) PortRange() (int, error) { return 0, errNoSource }

type nopNotifier struct{}

func (nopNotifier) Notify(Icon, string) {}

type nopTrigger struct{}

func (nopTrigger) Disconnected()       {}
func (nopTrigger) UpdateIcon()         {}
func (nopTrigger) RequestPageInfo()    {}
func (nopTrigger) Refresh()            {}
func (nopTrigger) ListenForReconnect() {}
