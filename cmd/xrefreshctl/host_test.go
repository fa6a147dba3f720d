package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/xrefresh/internal/monitor"
	"github.com/danmuck/xrefresh/internal/testutil/testlog"
	"github.com/fatih/color"
)

type fakeEngine struct {
	mu       sync.Mutex
	connects int
	pages    [][2]string
	starts   int
	port     int
}

func (f *fakeEngine) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return nil
}

func (f *fakeEngine) SendSetPage(_ context.Context, title, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, [2]string{title, url})
	return nil
}

func (f *fakeEngine) StartReconnectListener(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeEngine) Status(context.Context) (monitor.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return monitor.Status{ListenPort: f.port}, nil
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) Notify(_ monitor.Icon, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func testHost(e engine) (*host, *monitor.RequestQueue, *lineRecorder) {
	q := monitor.NewRequestQueue(8)
	notes := &lineRecorder{}
	cfg := defaultHostConfig()
	cfg.PageTitle = "Home"
	cfg.PageURL = "http://localhost/"
	h := newHost(e, q, notes, cfg)
	return h, q, notes
}

func TestHostAnswersPageInfoAndRefresh(t *testing.T) {
	testlog.Start(t)
	e := &fakeEngine{}
	h, _, notes := testHost(e)
	ctx := context.Background()

	if err := h.handle(ctx, monitor.RequestPageInfo); err != nil {
		t.Fatalf("page info: %v", err)
	}
	if len(e.pages) != 1 || e.pages[0] != [2]string{"Home", "http://localhost/"} {
		t.Fatalf("unexpected pages: %+v", e.pages)
	}
	if err := h.handle(ctx, monitor.RequestRefresh); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := h.handle(ctx, monitor.RequestDisconnected); err != nil {
		t.Fatalf("disconnected: %v", err)
	}
	if err := h.handle(ctx, monitor.RequestUpdateIcon); err != nil {
		t.Fatalf("update icon: %v", err)
	}
	if len(notes.lines) != 2 {
		t.Fatalf("unexpected lines: %q", notes.lines)
	}
}

func TestHostRestartsListenerWithBackoff(t *testing.T) {
	testlog.Start(t)
	e := &fakeEngine{}
	h, _, _ := testHost(e)
	var delays []time.Duration
	h.after = func(d time.Duration) <-chan time.Time {
		delays = append(delays, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	h.rng = nil

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := h.handle(ctx, monitor.RequestListenForReconnect); err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if err := h.handle(ctx, monitor.RequestListenForReconnect); err != nil {
			t.Fatalf("schedule while pending: %v", err)
		}
		<-h.restart
		h.restart = nil
		if err := h.restartListener(ctx); err != nil {
			t.Fatalf("restart: %v", err)
		}
	}
	if e.starts != 2 || len(delays) != 2 || delays[1] != 2*delays[0] {
		t.Fatalf("unexpected restarts=%d delays=%v", e.starts, delays)
	}

	e.port = 41257
	if err := h.handle(ctx, monitor.RequestListenForReconnect); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	<-h.restart
	h.restart = nil
	if err := h.restartListener(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if h.attempt != 0 {
		t.Fatalf("expected attempt reset after bind, got %d", h.attempt)
	}
}

func TestHostKeepsServingWhileRestartPending(t *testing.T) {
	testlog.Start(t)
	e := &fakeEngine{}
	h, q, notes := testHost(e)
	fire := make(chan time.Time, 1)
	h.after = func(time.Duration) <-chan time.Time { return fire }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()

	q.ListenForReconnect()
	q.RequestPageInfo()
	q.Refresh()
	waitUntil(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return len(e.pages) == 1
	})
	waitUntil(t, func() bool {
		notes.mu.Lock()
		defer notes.mu.Unlock()
		return len(notes.lines) == 1
	})
	e.mu.Lock()
	starts := e.starts
	e.mu.Unlock()
	if starts != 0 {
		t.Fatalf("listener restarted before its delay elapsed")
	}

	fire <- time.Time{}
	waitUntil(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.starts == 1
	})
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("unexpected serve result: %v", err)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for condition")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHostServeConnectsAndStops(t *testing.T) {
	testlog.Start(t)
	e := &fakeEngine{}
	h, q, _ := testHost(e)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()

	q.RequestPageInfo()
	deadline := time.Now().Add(2 * time.Second)
	for {
		e.mu.Lock()
		n := len(e.pages)
		e.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for SetPage")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("unexpected serve result: %v", err)
	}
	if e.connects != 1 {
		t.Fatalf("unexpected connects=%d", e.connects)
	}
}

func TestConsoleSinkFormatsLines(t *testing.T) {
	testlog.Start(t)
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	sink := newConsoleSink(&buf)
	sink.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	sink.Notify(monitor.IconRefresh, "Refresh request from site: one item changed")
	sink.Notify(monitor.IconBulb, "check firewall")

	want := "03:04:05 [refresh] Refresh request from site: one item changed\n03:04:05 [tip] check firewall\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output:\n%s", got)
	}
	if !strings.Contains(iconTag(monitor.IconError), "error") {
		t.Fatalf("unexpected error tag")
	}
}
