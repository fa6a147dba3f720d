package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/danmuck/xrefresh/internal/monitor"
	"github.com/danmuck/xrefresh/internal/observability"
	"github.com/danmuck/xrefresh/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// engine is the part of monitor.Manager the host drives.
type engine interface {
	Connect(ctx context.Context) error
	SendSetPage(ctx context.Context, title, url string) error
	StartReconnectListener(ctx context.Context) error
	Status(ctx context.Context) (monitor.Status, error)
}

// host plays the browser side: it answers the manager's requests and owns
// the reconnect listener restart schedule.
type host struct {
	engine   engine
	requests <-chan monitor.Request
	notifier monitor.Notifier
	page     string
	url      string
	backoff  session.BackoffConfig
	rng      *rand.Rand
	attempt  int
	after    func(d time.Duration) <-chan time.Time
	// restart fires when a scheduled listener restart is due; nil when idle.
	restart  <-chan time.Time
}

func newHost(e engine, q *monitor.RequestQueue, n monitor.Notifier, cfg hostConfig) *host {
	return &host{
		engine:   e,
		requests: q.Requests(),
		notifier: n,
		page:     cfg.PageTitle,
		url:      cfg.PageURL,
		backoff:  cfg.Manager.Session.WithDefaults().Backoff,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		after:    time.After,
	}
}

func (h *host) String() string {
	return "xrefreshctl.host"
}

// Serve connects once and then handles manager requests until ctx ends.
func (h *host) Serve(ctx context.Context) error {
	if err := h.engine.Connect(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-h.requests:
			if err := h.handle(ctx, r); err != nil {
				return err
			}
		case <-h.restart:
			h.restart = nil
			if err := h.restartListener(ctx); err != nil {
				return err
			}
		}
	}
}

func (h *host) handle(ctx context.Context, r monitor.Request) error {
	log.Debug().Stringer("request", r).Msg("xrefreshctl.host request")
	switch r {
	case monitor.RequestDisconnected:
		h.notifier.Notify(monitor.IconWarning, "Disconnected from XRefresh Monitor.")
	case monitor.RequestUpdateIcon:
		st, err := h.engine.Status(ctx)
		if err != nil {
			return err
		}
		log.Info().Bool("connected", st.Connected).Str("agent", st.Agent).Str("version", st.Version).Int("listen_port", st.ListenPort).Msg("xrefreshctl.host status")
	case monitor.RequestPageInfo:
		return h.engine.SendSetPage(ctx, h.page, h.url)
	case monitor.RequestRefresh:
		h.notifier.Notify(monitor.IconInfo, "Page refresh requested.")
	case monitor.RequestListenForReconnect:
		h.scheduleRestart()
	}
	return nil
}

// scheduleRestart arms the restart timer unless one is already pending.
// Requests keep flowing while it runs.
func (h *host) scheduleRestart() {
	if h.restart != nil {
		return
	}
	h.attempt++
	delay := session.NextBackoffDelay(h.backoff, h.attempt, h.rng)
	log.Info().Int("attempt", h.attempt).Dur("delay", delay).Msg("xrefreshctl.host reconnect listener restart scheduled")
	h.restart = h.after(delay)
}

func (h *host) restartListener(ctx context.Context) error {
	if err := h.engine.StartReconnectListener(ctx); err != nil {
		return err
	}
	st, err := h.engine.Status(ctx)
	if err != nil {
		return err
	}
	if st.ListenPort > 0 {
		h.attempt = 0
	}
	return nil
}

// metricsServer exposes /metrics while supervised.
type metricsServer struct {
	addr string
}

func (m metricsServer) String() string {
	return "xrefreshctl.metrics"
}

func (m metricsServer) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: m.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", m.addr).Msg("xrefreshctl.metrics listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
