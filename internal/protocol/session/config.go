package session

import "time"

const (
	DefaultHost      = "localhost"
	DefaultPort      = 41258
	DefaultPortRange = 16
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines socket limits and timeouts.
type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// BufferSize bounds the receive buffer; see ReceiveBuffer.Capacity.
	BufferSize int
	ReadChunk  int
	// ListenHost is the interface the reconnect listener binds. Empty means all.
	ListenHost string
	// Backoff paces reconnect listener restarts.
	Backoff BackoffConfig
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  5 * time.Second,
		WriteTimeout: 1000 * time.Millisecond,
		BufferSize:   64 * 1024,
		ReadChunk:    4096,
		ListenHost:   "",
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize <= headroom+1 {
		c.BufferSize = def.BufferSize
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = def.ReadChunk
	}
	// One full read into an empty buffer must stay below capacity.
	if limit := c.BufferSize - headroom - 1; c.ReadChunk > limit {
		c.ReadChunk = limit
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}
