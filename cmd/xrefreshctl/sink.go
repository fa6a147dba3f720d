package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/xrefresh/internal/monitor"
	"github.com/fatih/color"
)

// consoleSink prints notification lines with a coloured tag per icon.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

var _ monitor.Notifier = (*consoleSink)(nil)

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out, now: time.Now}
}

func (s *consoleSink) Notify(icon monitor.Icon, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := color.HiBlackString(s.now().Format("15:04:05"))
	_, _ = fmt.Fprintf(s.out, "%s %s %s\n", stamp, iconTag(icon), line)
}

func iconTag(icon monitor.Icon) string {
	switch icon {
	case monitor.IconWarning:
		return color.YellowString("[warn]")
	case monitor.IconError:
		return color.New(color.FgRed, color.Bold).Sprint("[error]")
	case monitor.IconConnected:
		return color.GreenString("[connected]")
	case monitor.IconRefresh:
		return color.CyanString("[refresh]")
	case monitor.IconBulb:
		return color.MagentaString("[tip]")
	default:
		return color.HiBlackString("[info]")
	}
}
