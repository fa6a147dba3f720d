package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/xrefresh/internal/config"
	"github.com/danmuck/xrefresh/internal/logging"
	"github.com/danmuck/xrefresh/internal/monitor"
	"github.com/danmuck/xrefresh/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/thejerf/suture/v4"
)

const envConfigPath = "XREFRESH_CONFIG"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "xrefreshctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("xrefreshctl", flag.ContinueOnError)
	path := fs.String("config", defaultConfigPath(), "path to xrefresh.toml")
	initOnly := fs.Bool("init", false, "write a starter config to -config and exit")
	force := fs.Bool("force", false, "with -init, overwrite an existing config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *initOnly {
		if err := config.WriteTemplate(*path, *force); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *path)
		return nil
	}

	logging.ConfigureRuntime()
	cfg, err := loadHostConfig(*path)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		log.Warn().Str("level", cfg.LogLevel).Msg("xrefreshctl unknown log_level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, *path, cfg)
}

func serve(ctx context.Context, path string, cfg hostConfig) error {
	observability.RegisterMetrics()

	sink := newConsoleSink(os.Stdout)
	queue := monitor.NewRequestQueue(0)
	registry := config.NewRegistry(path)
	mgr := monitor.NewManager(cfg.Manager, registry, sink, queue)

	sup := suture.New("xrefreshctl", suture.Spec{
		EventHook:        logSupervisorEvent,
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          5 * time.Second,
	})
	sup.Add(mgr)
	sup.Add(newHost(mgr, queue, sink, cfg))
	if cfg.MetricsAddr != "" {
		sup.Add(metricsServer{addr: cfg.MetricsAddr})
	}

	log.Info().Str("config", registry.Path()).Msg("xrefreshctl started")
	err := sup.Serve(ctx)
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ctx.Err())) {
		log.Info().Msg("xrefreshctl stopped")
		return nil
	}
	return err
}

func logSupervisorEvent(e suture.Event) {
	log.Warn().Fields(e.Map()).Msg("xrefreshctl supervisor " + e.String())
}

func defaultConfigPath() string {
	if v := strings.TrimSpace(os.Getenv(envConfigPath)); v != "" {
		return v
	}
	return "xrefresh.toml"
}
