package transport

import "errors"

var (
	// ErrDialFailed wraps transport-level handshake failures.
	ErrDialFailed = errors.New("transport: dial failed")

	// ErrMalformedSignal is returned when an inbound frame cannot be decoded.
	ErrMalformedSignal = errors.New("transport: malformed signal")

	// ErrUnsupportedSignal is returned when a conn cannot carry the requested signal.
	ErrUnsupportedSignal = errors.New("transport: unsupported signal")

	// ErrNotConnected is returned when a send is attempted without a live connection.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrClientClosed is returned when the client has been disposed.
	ErrClientClosed = errors.New("transport: client closed")
)
