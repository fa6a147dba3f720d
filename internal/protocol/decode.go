package protocol

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Decode parses the first message at the start of buf.
//
// It returns the message and the number of bytes consumed. Bytes past that
// cutoff belong to the next message.
//
//   - ErrIncomplete: buf holds only a prefix of a message; n is 0 and the
//     caller keeps buf and waits for more bytes.
//   - ErrMalformed: the leading bytes can never become a message; n is how
//     many bytes the caller must skip before retrying. A top-level array is
//     skipped whole.
func Decode(buf []byte) (Message, int, error) {
	start := skipSpace(buf, 0)
	if start == len(buf) {
		return nil, 0, ErrIncomplete
	}
	switch buf[start] {
	case '{':
	case '[':
		// Arrays are never messages, and neither is anything nested in one.
		end, ok := scanValue(buf, start)
		if !ok {
			return nil, 0, ErrIncomplete
		}
		return nil, end, fmt.Errorf("%w: %d byte array is not a message", ErrMalformed, end-start)
	default:
		skip := bytes.IndexAny(buf[start:], "{[")
		if skip < 0 {
			return nil, len(buf), fmt.Errorf("%w: no object start in %d bytes", ErrMalformed, len(buf))
		}
		return nil, start + skip, fmt.Errorf("%w: %d bytes before object start", ErrMalformed, start+skip)
	}

	end, ok := scanValue(buf, start)
	if !ok {
		return nil, 0, ErrIncomplete
	}

	var msg Message
	if err := json.Unmarshal(buf[start:end], &msg); err != nil {
		return nil, end, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg == nil {
		msg = Message{}
	}
	return msg, end, nil
}

// scanValue finds the end of the bracketed value opening at buf[start].
// Brackets inside strings are ignored. It reports false when the value is
// not closed within buf.
func scanValue(buf []byte, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(buf); i++ {
		c := buf[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func skipSpace(buf []byte, i int) int {
	for i < len(buf) {
		switch buf[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return i
		}
	}
	return i
}
