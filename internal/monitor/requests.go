package monitor

import "github.com/rs/zerolog/log"

// Request is one UI Trigger request.
type Request int

const (
	RequestDisconnected Request = iota
	RequestUpdateIcon
	RequestPageInfo
	RequestRefresh
	RequestListenForReconnect
)

func (r Request) String() string {
	switch r {
	case RequestDisconnected:
		return "disconnected"
	case RequestUpdateIcon:
		return "update_icon"
	case RequestPageInfo:
		return "page_info"
	case RequestRefresh:
		return "refresh"
	case RequestListenForReconnect:
		return "listen_for_reconnect"
	default:
		return "unknown"
	}
}

// RequestQueue is a Trigger backed by a buffered channel. When the consumer
// falls behind, new requests are dropped and logged rather than blocking the
// manager.
type RequestQueue struct {
	ch chan Request
}

var _ Trigger = (*RequestQueue)(nil)

func NewRequestQueue(size int) *RequestQueue {
	if size <= 0 {
		size = 32
	}
	return &RequestQueue{ch: make(chan Request, size)}
}

// Requests is the consumer side of the queue.
func (q *RequestQueue) Requests() <-chan Request {
	return q.ch
}

func (q *RequestQueue) Disconnected()       { q.post(RequestDisconnected) }
func (q *RequestQueue) UpdateIcon()         { q.post(RequestUpdateIcon) }
func (q *RequestQueue) RequestPageInfo()    { q.post(RequestPageInfo) }
func (q *RequestQueue) Refresh()            { q.post(RequestRefresh) }
func (q *RequestQueue) ListenForReconnect() { q.post(RequestListenForReconnect) }

func (q *RequestQueue) post(r Request) {
	select {
	case q.ch <- r:
	default:
		log.Warn().Str("component", "monitor.RequestQueue").Stringer("request", r).Msg("request queue full, dropping")
	}
}
