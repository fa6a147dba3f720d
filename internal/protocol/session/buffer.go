package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/xrefresh/internal/protocol"
	"github.com/danmuck/xrefresh/internal/observability"
	"github.com/rs/zerolog/log"
)

const headroom = 1

// ReceiveBuffer accumulates the unparsed tail of one inbound stream.
// It is owned by a single reader and is not safe for concurrent use.
type ReceiveBuffer struct {
	size int
	buf  []byte
}

func NewReceiveBuffer(size int) *ReceiveBuffer {
	if size <= headroom {
		size = DefaultConfig().BufferSize
	}
	return &ReceiveBuffer{size: size, buf: make([]byte, 0, size)}
}

// Capacity is the bound the pending byte count always stays below.
func (b *ReceiveBuffer) Capacity() int {
	return b.size - headroom
}

func (b *ReceiveBuffer) Len() int {
	return len(b.buf)
}

func (b *ReceiveBuffer) Reset() {
	b.buf = b.buf[:0]
}

// Feed appends p and emits every message it completes, in order.
//
// If appending p would reach Capacity the pending bytes and p are discarded
// and ErrBufferOverflow is returned; messages already emitted are unaffected.
// Malformed leading bytes are skipped and reported, and framing continues
// after them.
func (b *ReceiveBuffer) Feed(p []byte, emit func(protocol.Message)) error {
	if len(p) == 0 {
		return nil
	}
	if len(b.buf)+len(p) >= b.Capacity() {
		dropped := len(b.buf) + len(p)
		b.Reset()
		observability.RecordBufferOverflow()
		return fmt.Errorf("%w: %d bytes dropped", ErrBufferOverflow, dropped)
	}
	b.buf = append(b.buf, p...)

	var errs []error
	for len(b.buf) > 0 {
		msg, n, err := protocol.Decode(b.buf)
		if errors.Is(err, protocol.ErrIncomplete) {
			break
		}
		b.consume(n)
		if err != nil {
			observability.RecordMalformed()
			log.Warn().Str("component", "session.ReceiveBuffer").Err(err).Int("skipped", n).Msg("skipped malformed input")
			errs = append(errs, err)
			continue
		}
		emit(msg)
	}
	return errors.Join(errs...)
}

func (b *ReceiveBuffer) consume(n int) {
	if n >= len(b.buf) {
		b.Reset()
		return
	}
	b.buf = b.buf[:copy(b.buf, b.buf[n:])]
}
