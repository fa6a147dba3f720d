package observability

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	dials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xrefresh",
			Subsystem: "connection",
			Name:      "dials_total",
			Help:      "Dial attempts to the monitor.",
		},
		[]string{"success"},
	)
	writeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xrefresh",
			Subsystem: "connection",
			Name:      "write_failures_total",
			Help:      "Outbound messages that could not be written.",
		},
	)
	bufferOverflows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xrefresh",
			Subsystem: "connection",
			Name:      "buffer_overflows_total",
			Help:      "Receive buffer resets caused by oversized input.",
		},
	)
	malformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xrefresh",
			Subsystem: "connection",
			Name:      "malformed_total",
			Help:      "Inbound byte runs skipped as malformed.",
		},
	)
	messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xrefresh",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Inbound messages dispatched, by command.",
		},
		[]string{"command"},
	)
	listenerBinds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xrefresh",
			Subsystem: "listener",
			Name:      "binds_total",
			Help:      "Reconnect listener port scans, by outcome.",
		},
		[]string{"success"},
	)
	reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xrefresh",
			Subsystem: "listener",
			Name:      "reconnect_requests_total",
			Help:      "Reconnect requests received from the monitor.",
		},
	)
)

// known keeps the command label bounded.
var known = map[string]bool{
	"AboutMe":   true,
	"DoRefresh": true,
}

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(dials, writeFailures, bufferOverflows, malformed, messages, listenerBinds, reconnects)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordDial(success bool) {
	RegisterMetrics()
	dials.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordWriteFailure() {
	RegisterMetrics()
	writeFailures.Inc()
}

func RecordBufferOverflow() {
	RegisterMetrics()
	bufferOverflows.Inc()
}

func RecordMalformed() {
	RegisterMetrics()
	malformed.Inc()
}

func RecordMessage(command string) {
	RegisterMetrics()
	if !known[command] {
		command = "other"
	}
	messages.WithLabelValues(command).Inc()
}

func RecordListenerBind(success bool) {
	RegisterMetrics()
	listenerBinds.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordReconnectRequest() {
	RegisterMetrics()
	reconnects.Inc()
}
