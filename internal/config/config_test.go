package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/xrefresh/internal/testutil/testlog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xrefresh.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRegistryReadsFile(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "host = \"monitor.lan\"\nport = 5000\nport_range = 4\n")
	r := NewRegistry("  " + path + "\n")
	if r.Path() != path {
		t.Fatalf("unexpected path=%q", r.Path())
	}

	host, err := r.Host()
	if err != nil || host != "monitor.lan" {
		t.Fatalf("unexpected host=%q err=%v", host, err)
	}
	port, err := r.Port()
	if err != nil || port != 5000 {
		t.Fatalf("unexpected port=%d err=%v", port, err)
	}
	rng, err := r.PortRange()
	if err != nil || rng != 4 {
		t.Fatalf("unexpected range=%d err=%v", rng, err)
	}
}

func TestRegistryMissingKeys(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry(writeFile(t, "log_level = \"debug\"\n"))
	if _, err := r.Host(); !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet for host, got %v", err)
	}
	if _, err := r.Port(); !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet for port, got %v", err)
	}
	if _, err := r.PortRange(); !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet for port_range, got %v", err)
	}
}

func TestRegistryMissingFileAndInvalidValues(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry(filepath.Join(t.TempDir(), "absent.toml"))
	if _, err := r.Port(); !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet for missing file, got %v", err)
	}

	r = NewRegistry(writeFile(t, "port = 70000\nport_range = 0\nhost = \"  \"\n"))
	if _, err := r.Port(); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for port, got %v", err)
	}
	if _, err := r.PortRange(); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for range, got %v", err)
	}
	if _, err := r.Host(); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for host, got %v", err)
	}
}

func TestRegistryEnvOverridesAndReload(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "host = \"a\"\nport = 1000\n")
	r := NewRegistry(path)

	t.Setenv(EnvPort, "2000")
	port, err := r.Port()
	if err != nil || port != 2000 {
		t.Fatalf("expected env port, got=%d err=%v", port, err)
	}
	t.Setenv(EnvPort, "bogus")
	if _, err := r.Port(); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for bad env port, got %v", err)
	}

	if err := os.WriteFile(path, []byte("host = \"b\"\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	host, err := r.Host()
	if err != nil || host != "b" {
		t.Fatalf("expected reread host, got=%q err=%v", host, err)
	}
}

func TestStatic(t *testing.T) {
	testlog.Start(t)
	s := Static{HostValue: "127.0.0.1", PortValue: 41258}
	if h, err := s.Host(); err != nil || h != "127.0.0.1" {
		t.Fatalf("unexpected host=%q err=%v", h, err)
	}
	if _, err := s.PortRange(); !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet, got %v", err)
	}
}

func TestWriteTemplateParses(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "xrefresh.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	r := NewRegistry(path)
	port, err := r.Port()
	if err != nil || port != 41258 {
		t.Fatalf("unexpected template port=%d err=%v", port, err)
	}
	rng, err := r.PortRange()
	if err != nil || rng != 16 {
		t.Fatalf("unexpected template range=%d err=%v", rng, err)
	}
}
