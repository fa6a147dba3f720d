package protocol

import "errors"

var (
	ErrIncomplete  = errors.New("protocol: incomplete message")
	ErrMalformed   = errors.New("protocol: malformed message")
	ErrNilMessage  = errors.New("protocol: nil message")
	ErrEncodeValue = errors.New("protocol: unencodable value")
)
