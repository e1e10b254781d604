package transport

import (
	"context"
	"encoding/json"
)

// Wire signal names shared by all Conn implementations. Inbound signals carry
// server events; outbound signals carry client intent.
const (
	SignalNotification     = "notification"
	SignalBadgeUpdate      = "badge_update"
	SignalNotificationRead = "notification_read"

	SignalJoin               = "join"
	SignalSubscribeCompany   = "subscribe_company"
	SignalUnsubscribeCompany = "unsubscribe_company"
)

// Signal is one inbound wire message: a name plus its raw JSON payload.
// Decoding is deferred to the client so a malformed payload for one signal
// cannot poison the read loop.
type Signal struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"data,omitempty"`
}

// Conn is a live, full-duplex push-transport connection. Implementations must
// support one concurrent Receive caller and any number of Send callers.
type Conn interface {
	// Send emits a named signal with a JSON-encodable payload.
	Send(ctx context.Context, name string, payload any) error

	// Receive blocks until the next inbound signal, the connection fails, or
	// the context is done. A returned error means the connection is dead.
	Receive(ctx context.Context) (Signal, error)

	// Close tears the connection down. Safe to call concurrently with Receive,
	// which will then return an error.
	Close() error
}

// Dialer establishes connections. The credential authenticates the transport
// handshake; dialing a transport that can only degrade to request-polling
// must fail instead of silently connecting.
type Dialer interface {
	Dial(ctx context.Context, credential string) (Conn, error)
}

// Payload shapes for the outbound signals.

type joinPayload struct {
	SubjectID string `json:"subjectId"`
}

type companyPayload struct {
	CompanyID string `json:"companyId"`
}

// Payload shapes for the inbound counter signals.

type badgePayload struct {
	UnreadCount int `json:"unreadCount"`
}

type readPayload struct {
	NotificationID string `json:"notificationId"`
}
