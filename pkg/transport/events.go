package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/notifhub/notifhub/pkg/logger"
	"github.com/notifhub/notifhub/pkg/notification"
)

// EventKind identifies the finite set of events a Client emits.
type EventKind string

const (
	EventConnected        EventKind = "connected"
	EventDisconnected     EventKind = "disconnected"
	EventNewNotification  EventKind = "new_notification"
	EventBadgeUpdate      EventKind = "badge_update"
	EventNotificationRead EventKind = "notification_read"
	EventError            EventKind = "error"
)

// Event is the tagged union of payloads delivered to handlers. The Kind tag
// selects which of the payload fields is meaningful.
type Event struct {
	Kind EventKind

	// Notification is set for EventNewNotification.
	Notification *notification.Notification
	// UnreadCount is set for EventBadgeUpdate.
	UnreadCount int
	// NotificationID is set for EventNotificationRead.
	NotificationID string
	// Err is set for EventError.
	Err error
}

// Handler consumes a single event. Handlers run synchronously on the
// transport's dispatch goroutine; long-running work belongs elsewhere.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	kind EventKind
	id   string
}

type handlerEntry struct {
	id string
	fn Handler
}

// emitter is the typed pub/sub core decoupling wire events from consumers.
// Handler panics are recovered and logged so one broken consumer can never
// take down the dispatch loop or starve other handlers.
type emitter struct {
	mu       sync.RWMutex
	handlers map[EventKind][]handlerEntry
	logger   *slog.Logger
}

func newEmitter(log *slog.Logger) *emitter {
	return &emitter{
		handlers: make(map[EventKind][]handlerEntry),
		logger:   log,
	}
}

func (e *emitter) on(kind EventKind, fn Handler) Subscription {
	id := uuid.New().String()

	e.mu.Lock()
	e.handlers[kind] = append(e.handlers[kind], handlerEntry{id: id, fn: fn})
	e.mu.Unlock()

	return Subscription{kind: kind, id: id}
}

func (e *emitter) off(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.handlers[sub.kind]
	for i, entry := range entries {
		if entry.id == sub.id {
			e.handlers[sub.kind] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

func (e *emitter) removeAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.handlers)
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	entries := e.handlers[ev.Kind]
	// Snapshot so handlers may subscribe/unsubscribe re-entrantly.
	snapshot := make([]handlerEntry, len(entries))
	copy(snapshot, entries)
	e.mu.RUnlock()

	for _, entry := range snapshot {
		e.safeInvoke(entry, ev)
	}
}

func (e *emitter) safeInvoke(entry handlerEntry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.LogAttrs(context.Background(), slog.LevelError, "event handler panicked",
				logger.Event(string(ev.Kind)),
				slog.Any("panic", r),
			)
		}
	}()
	entry.fn(ev)
}
