package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/xrefresh/internal/monitor"
	"github.com/rs/zerolog/log"
)

type fileConfig struct {
	LogLevel     string `toml:"log_level"`
	ListenHost   string `toml:"listen_host"`
	DialTimeout  string `toml:"dial_timeout"`
	WriteTimeout string `toml:"write_timeout"`
	BufferSize   int    `toml:"buffer_size"`
	MetricsAddr  string `toml:"metrics_addr"`
	ClientType   string `toml:"client_type"`
	Agent        string `toml:"agent"`
	PageTitle    string `toml:"page_title"`
	PageURL      string `toml:"page_url"`
}

// hostConfig is the process-level configuration. Monitor host, port and
// port range are read separately on every lookup through config.Registry.
type hostConfig struct {
	LogLevel    string
	MetricsAddr string
	PageTitle   string
	PageURL     string
	Manager     monitor.Options
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		LogLevel:  "info",
		PageTitle: "xrefreshctl",
		Manager:   monitor.DefaultOptions(),
	}
}

func loadHostConfig(path string) (hostConfig, error) {
	cfg := defaultHostConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("xrefreshctl config not found, using defaults")
		return cfg, nil
	}
	if err != nil {
		return hostConfig{}, fmt.Errorf("load xrefresh config: %w", err)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("listen_host") {
		cfg.Manager.Session.ListenHost = strings.TrimSpace(raw.ListenHost)
	}

	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return hostConfig{}, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.Manager.Session.DialTimeout = d
	}

	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return hostConfig{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.Manager.Session.WriteTimeout = d
	}

	if meta.IsDefined("buffer_size") {
		if raw.BufferSize < 3 {
			return hostConfig{}, fmt.Errorf("parse buffer_size: must be at least 3, got %d", raw.BufferSize)
		}
		cfg.Manager.Session.BufferSize = raw.BufferSize
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("client_type") {
		cfg.Manager.ClientType = strings.TrimSpace(raw.ClientType)
	}

	if meta.IsDefined("agent") {
		cfg.Manager.Agent = strings.TrimSpace(raw.Agent)
	}

	if meta.IsDefined("page_title") {
		cfg.PageTitle = raw.PageTitle
	}

	if meta.IsDefined("page_url") {
		cfg.PageURL = raw.PageURL
	}

	return cfg, nil
}
