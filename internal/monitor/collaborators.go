package monitor

// Icon is the severity/category attached to a user-facing line.
type Icon int

const (
	IconInfo Icon = iota
	IconWarning
	IconError
	IconConnected
	IconRefresh
	IconBulb
)

func (i Icon) String() string {
	switch i {
	case IconInfo:
		return "info"
	case IconWarning:
		return "warning"
	case IconError:
		return "error"
	case IconConnected:
		return "connected"
	case IconRefresh:
		return "refresh"
	case IconBulb:
		return "tip"
	default:
		return "unknown"
	}
}

// Notifier receives human-readable lines. Implementations must not block.
type Notifier interface {
	Notify(icon Icon, line string)
}

// Source supplies connection settings. Every lookup may fail; the manager
// then warns and falls back to its defaults.
type Source interface {
	Host() (string, error)
	Port() (int, error)
	PortRange() (int, error)
}

// Trigger carries fire-and-forget requests to whoever owns the UI and the
// page. The manager never waits on a Trigger, so implementations must return
// immediately.
type Trigger interface {
	Disconnected()
	UpdateIcon()
	RequestPageInfo()
	Refresh()
	ListenForReconnect()
}
