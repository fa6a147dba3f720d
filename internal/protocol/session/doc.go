// Package session owns the client's two monitor sockets.
//
// Ownership boundary:
// - primary outbound connection and its receive buffer
// - reconnect listener and its descending port scan
// - socket event kinds delivered to the owner
// - listener restart backoff
//
// Neither socket interprets messages. Both report what happened through a
// Notify callback; the owner decides what to do about it.
package session
