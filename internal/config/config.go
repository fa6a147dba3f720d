package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	EnvHost      = "XREFRESH_HOST"
	EnvPort      = "XREFRESH_PORT"
	EnvPortRange = "XREFRESH_PORT_RANGE"
)

var (
	ErrNotSet       = errors.New("config: value not set")
	ErrInvalidValue = errors.New("config: invalid value")
)

// settings is the connection subset of the client config file.
type settings struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	PortRange int    `toml:"port_range"`
}

// Registry looks up connection settings in a TOML file. Every lookup reads
// the file again, so edits apply on the next connect. Environment variables
// take precedence over the file.
type Registry struct {
	path string
}

func NewRegistry(path string) *Registry {
	return &Registry{path: strings.TrimSpace(path)}
}

func (r *Registry) Path() string {
	return r.path
}

func (r *Registry) Host() (string, error) {
	if v, ok := os.LookupEnv(EnvHost); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	raw, err := r.lookup("host")
	if err != nil {
		return "", err
	}
	host := strings.TrimSpace(raw.Host)
	if host == "" {
		return "", fmt.Errorf("%w: host is empty", ErrInvalidValue)
	}
	return host, nil
}

func (r *Registry) Port() (int, error) {
	if v, ok := os.LookupEnv(EnvPort); ok && strings.TrimSpace(v) != "" {
		return parsePort(EnvPort, v)
	}
	raw, err := r.lookup("port")
	if err != nil {
		return 0, err
	}
	if raw.Port <= 0 || raw.Port > 65535 {
		return 0, fmt.Errorf("%w: port %d", ErrInvalidValue, raw.Port)
	}
	return raw.Port, nil
}

func (r *Registry) PortRange() (int, error) {
	if v, ok := os.LookupEnv(EnvPortRange); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvPortRange, v)
		}
		return n, nil
	}
	raw, err := r.lookup("port_range")
	if err != nil {
		return 0, err
	}
	if raw.PortRange <= 0 {
		return 0, fmt.Errorf("%w: port_range %d", ErrInvalidValue, raw.PortRange)
	}
	return raw.PortRange, nil
}

func (r *Registry) lookup(key string) (settings, error) {
	if r.path == "" {
		return settings{}, fmt.Errorf("%w: %s (no config file)", ErrNotSet, key)
	}
	var raw settings
	meta, err := toml.DecodeFile(r.path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("%w: %s: %v", ErrNotSet, key, err)
	}
	if !meta.IsDefined(key) {
		return settings{}, fmt.Errorf("%w: %s", ErrNotSet, key)
	}
	return raw, nil
}

func parsePort(name, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 || n > 65535 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, v)
	}
	return n, nil
}

// Static serves fixed values. Zero fields report ErrNotSet.
type Static struct {
	HostValue      string
	PortValue      int
	PortRangeValue int
}

func (s Static) Host() (string, error) {
	if strings.TrimSpace(s.HostValue) == "" {
		return "", fmt.Errorf("%w: host", ErrNotSet)
	}
	return s.HostValue, nil
}

func (s Static) Port() (int, error) {
	if s.PortValue == 0 {
		return 0, fmt.Errorf("%w: port", ErrNotSet)
	}
	return s.PortValue, nil
}

func (s Static) PortRange() (int, error) {
	if s.PortRangeValue == 0 {
		return 0, fmt.Errorf("%w: port_range", ErrNotSet)
	}
	return s.PortRangeValue, nil
}
