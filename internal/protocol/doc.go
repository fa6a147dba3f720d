// Package protocol owns the monitor wire contract and parsing primitives.
//
// Ownership boundary:
// - message object and typed field accessors
// - command names and field keys
// - incremental JSON framing (encode / decode)
// - UTF-8 text packing for string fields
//
// The wire carries bare JSON objects back to back over TCP. There is no
// length prefix and no delimiter; boundaries come from structural parsing.
package protocol
