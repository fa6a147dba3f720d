package protocol

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Encode serializes msg as compact JSON. No delimiter is appended.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeValue, err)
	}
	return data, nil
}
