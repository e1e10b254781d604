package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notifhub/notifhub/pkg/logger"
	"github.com/notifhub/notifhub/pkg/notification"
)

// State is the externally observable connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Client owns at most one live push-transport connection, exposes typed
// pub/sub over the wire events, and hides reconnection entirely: callers only
// ever observe connected/disconnected transitions plus an error event for
// diagnostics.
type Client struct {
	dialer  Dialer
	emitter *emitter
	recon   *reconnector
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	active     *activeConn
	credential string
	subjectID  string
	closed     bool
}

// activeConn bundles one live connection with its read loop lifecycle so a
// dangling prior connection can never deliver events after teardown.
type activeConn struct {
	conn        Conn
	cancel      context.CancelFunc
	done        chan struct{}
	intentional atomic.Bool
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	backoffBase time.Duration
	backoffMax  time.Duration
	logger      *slog.Logger
}

// WithBackoff overrides the reconnect backoff schedule.
func WithBackoff(base, max time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.backoffBase = base
		c.backoffMax = max
	}
}

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewClient creates a transport client over the given dialer.
func NewClient(dialer Dialer, opts ...ClientOption) *Client {
	cfg := &clientConfig{
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		dialer:  dialer,
		emitter: newEmitter(cfg.logger),
		logger:  cfg.logger,
		state:   StateDisconnected,
	}
	c.recon = newReconnector(cfg.backoffBase, cfg.backoffMax, c.retry, cfg.logger)
	return c
}

// On registers a handler for an event kind. The returned Subscription removes
// it via Off. Multiple handlers per kind are supported.
func (c *Client) On(kind EventKind, fn Handler) Subscription {
	return c.emitter.on(kind, fn)
}

// Off removes a previously registered handler.
func (c *Client) Off(sub Subscription) {
	c.emitter.off(sub)
}

// IsConnected reports whether a live connection exists right now.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// ConnectionState returns the current state snapshot.
func (c *Client) ConnectionState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes the push-transport connection and joins the subject's
// stream. Idempotent: a second call while connected or connecting is a no-op.
// Dial failures do not surface here; they become an error event and drive the
// reconnection policy.
func (c *Client) Connect(ctx context.Context, credential, subjectID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.credential = credential
	c.subjectID = subjectID
	c.mu.Unlock()

	c.recon.connecting()
	c.attempt(ctx)
	return nil
}

// Disconnect tears down the connection, stops any pending reconnect, and
// resets the attempt counter. Safe to call when already disconnected. The
// read loop is fully drained before Disconnect returns, so no event from the
// old connection can be delivered afterwards.
func (c *Client) Disconnect() {
	c.recon.stop()

	c.mu.Lock()
	active := c.active
	c.active = nil
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if active != nil {
		active.intentional.Store(true)
		active.cancel()
		_ = active.conn.Close()
		<-active.done
	}

	if wasConnected {
		c.emitter.emit(Event{Kind: EventDisconnected})
	}
}

// Close disposes the client. Unlike Disconnect, a closed client rejects
// further Connect calls and drops all registered handlers.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.Disconnect()
	c.emitter.removeAll()
}

// Send emits an outbound signal on the live connection.
func (c *Client) Send(ctx context.Context, name string, payload any) error {
	c.mu.Lock()
	active := c.active
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClientClosed
	}
	if active == nil {
		return ErrNotConnected
	}
	return active.conn.Send(ctx, name, payload)
}

// WakeVisible signals that the execution context became foreground again.
// Forces a prompt reconnect attempt when disconnected.
func (c *Client) WakeVisible() {
	c.recon.wakeVisible()
}

// WakeOnline signals that network connectivity was restored.
func (c *Client) WakeOnline() {
	c.recon.wakeOnline()
}

// retry is invoked by the reconnector's timer.
func (c *Client) retry() {
	c.mu.Lock()
	if c.closed || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.attempt(context.Background())
}

// attempt performs one dial + join. On any failure the reconnector schedules
// the next try.
func (c *Client) attempt(ctx context.Context) {
	c.mu.Lock()
	credential, subjectID := c.credential, c.subjectID
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, credential)
	if err != nil {
		c.connectionFailed(err)
		return
	}

	if err := conn.Send(ctx, SignalJoin, joinPayload{SubjectID: subjectID}); err != nil {
		_ = conn.Close()
		c.connectionFailed(err)
		return
	}

	connCtx, cancel := context.WithCancel(context.Background())
	active := &activeConn{
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = conn.Close()
		close(active.done)
		return
	}
	c.active = active
	c.state = StateConnected
	c.mu.Unlock()

	c.recon.connected()
	c.logger.LogAttrs(connCtx, slog.LevelInfo, "push transport connected",
		logger.SubjectID(subjectID),
	)

	go c.readLoop(connCtx, active)

	c.emitter.emit(Event{Kind: EventConnected})
}

func (c *Client) connectionFailed(err error) {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()

	c.logger.LogAttrs(context.Background(), slog.LevelWarn, "push transport connection failed",
		logger.Error(err),
		logger.Attempt(c.recon.currentAttempt()+1),
	)

	c.emitter.emit(Event{Kind: EventError, Err: err})
	c.emitter.emit(Event{Kind: EventDisconnected})
	c.recon.failed()
}

// readLoop applies inbound signals in receipt order until the connection
// dies. An unexpected death emits error + disconnected and hands control to
// the reconnection policy; an intentional teardown exits quietly.
func (c *Client) readLoop(ctx context.Context, active *activeConn) {
	defer close(active.done)

	for {
		sig, err := active.conn.Receive(ctx)
		if err != nil {
			if active.intentional.Load() {
				return
			}

			c.mu.Lock()
			if c.active == active {
				c.active = nil
				c.state = StateDisconnected
			}
			c.mu.Unlock()

			c.logger.LogAttrs(ctx, slog.LevelWarn, "push transport connection lost",
				logger.Error(err),
			)
			c.emitter.emit(Event{Kind: EventError, Err: err})
			c.emitter.emit(Event{Kind: EventDisconnected})
			c.recon.failed()
			return
		}

		c.dispatch(ctx, sig)
	}
}

// dispatch decodes one wire signal into a typed event. Malformed payloads are
// logged and dropped; they must never kill the read loop.
func (c *Client) dispatch(ctx context.Context, sig Signal) {
	switch sig.Name {
	case SignalNotification:
		var n notification.Notification
		if err := json.Unmarshal(sig.Payload, &n); err != nil {
			c.logMalformed(ctx, sig.Name, err)
			return
		}
		c.emitter.emit(Event{Kind: EventNewNotification, Notification: &n})

	case SignalBadgeUpdate:
		var p badgePayload
		if err := json.Unmarshal(sig.Payload, &p); err != nil {
			c.logMalformed(ctx, sig.Name, err)
			return
		}
		c.emitter.emit(Event{Kind: EventBadgeUpdate, UnreadCount: p.UnreadCount})

	case SignalNotificationRead:
		var p readPayload
		if err := json.Unmarshal(sig.Payload, &p); err != nil {
			c.logMalformed(ctx, sig.Name, err)
			return
		}
		c.emitter.emit(Event{Kind: EventNotificationRead, NotificationID: p.NotificationID})

	default:
		c.logger.LogAttrs(ctx, slog.LevelDebug, "ignoring unknown signal",
			logger.Event(sig.Name),
		)
	}
}

func (c *Client) logMalformed(ctx context.Context, name string, err error) {
	c.logger.LogAttrs(ctx, slog.LevelWarn, "dropping malformed signal",
		logger.Event(name),
		logger.Error(err),
	)
}
