package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/notifhub/notifhub/pkg/apiclient"
	"github.com/notifhub/notifhub/pkg/logger"
	"github.com/notifhub/notifhub/pkg/notification"
	"github.com/notifhub/notifhub/pkg/routes"
	"github.com/notifhub/notifhub/pkg/store"
	"github.com/notifhub/notifhub/pkg/transport"
)

// Session is the explicit session-scoped context object owning the engine's
// singletons: one transport client, one store, one subscription manager, one
// aggregator. It exists so nothing lives in hidden module-level state;
// multi-session hosts and tests create as many isolated sessions as needed,
// each with its own Init/Dispose lifecycle.
type Session struct {
	transport  *transport.Client
	subs       *transport.Subscriptions
	store      *store.Store
	aggregator *routes.Aggregator
	credential apiclient.CredentialSupplier
	company    store.CompanySupplier
	counts     CountsAPI
	logger     *slog.Logger

	mu          sync.Mutex
	initialized bool
	wireSubs    []transport.Subscription
}

// CountsAPI is the slice of the REST collaborator serving the per-company
// unread breakdown. Optional; the engine works without it.
type CountsAPI interface {
	UnreadCountByCompany(ctx context.Context) (map[string]int, error)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithCompanyCounts enables the per-company unread breakdown.
func WithCompanyCounts(api CountsAPI) Option {
	return func(s *Session) {
		s.counts = api
	}
}

// New assembles a session from its collaborators. The credential and company
// suppliers are read, never mutated.
func New(
	tc *transport.Client,
	st *store.Store,
	agg *routes.Aggregator,
	credential apiclient.CredentialSupplier,
	company store.CompanySupplier,
	opts ...Option,
) *Session {
	s := &Session{
		transport:  tc,
		store:      st,
		aggregator: agg,
		credential: credential,
		company:    company,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.subs = transport.NewSubscriptions(tc, s.logger)
	return s
}

// Init wires transport events into the store, connects, joins the active
// company channel, and performs the initial reset load. Idempotent.
func (s *Session) Init(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.initialized = true

	s.wireSubs = []transport.Subscription{
		s.transport.On(transport.EventConnected, func(transport.Event) {
			s.store.SetConnectionState(store.ConnConnected)
		}),
		s.transport.On(transport.EventDisconnected, func(transport.Event) {
			s.store.SetConnectionState(store.ConnDisconnected)
		}),
		s.transport.On(transport.EventNewNotification, func(ev transport.Event) {
			s.store.ApplyPushNotification(*ev.Notification)
		}),
		s.transport.On(transport.EventBadgeUpdate, func(ev transport.Event) {
			s.store.ApplyBadgeUpdate(ev.UnreadCount)
		}),
		s.transport.On(transport.EventNotificationRead, func(ev transport.Event) {
			s.store.ApplyPushRead(ev.NotificationID)
		}),
		s.transport.On(transport.EventError, func(ev transport.Event) {
			s.logger.LogAttrs(context.Background(), slog.LevelDebug, "transport error event",
				logger.Error(ev.Err),
			)
		}),
	}
	s.mu.Unlock()

	s.store.SetConnectionState(store.ConnConnecting)
	if err := s.transport.Connect(ctx, s.credential(), subjectID); err != nil {
		return err
	}
	if company := s.activeCompany(); company != "" {
		s.subs.SetActiveCompany(company)
	}

	return s.store.Load(ctx, true)
}

// Dispose tears the session down: transport listeners are removed, the
// connection is closed, and the store's feed is shut. A disposed session is
// not reusable; create a new one for the next login.
func (s *Session) Dispose() {
	s.mu.Lock()
	wire := s.wireSubs
	s.wireSubs = nil
	s.mu.Unlock()

	s.subs.Close()
	for _, sub := range wire {
		s.transport.Off(sub)
	}
	s.transport.Close()
	s.store.Close()
}

// SetActiveCompany switches company scope: channel membership moves over and
// the list is re-derived for the new scope.
func (s *Session) SetActiveCompany(ctx context.Context, companyID string) error {
	s.subs.SetActiveCompany(companyID)
	return s.store.Refresh(ctx)
}

// WakeVisible forwards the foreground/visibility wake signal.
func (s *Session) WakeVisible() { s.transport.WakeVisible() }

// WakeOnline forwards the connectivity-restored wake signal.
func (s *Session) WakeOnline() { s.transport.WakeOnline() }

// Operations exposed to the UI layer.

func (s *Session) Load(ctx context.Context) error     { return s.store.Load(ctx, true) }
func (s *Session) LoadMore(ctx context.Context) error { return s.store.LoadMore(ctx) }
func (s *Session) Refresh(ctx context.Context) error  { return s.store.Refresh(ctx) }

func (s *Session) MarkAsRead(ctx context.Context, id string) error {
	return s.store.MarkAsRead(ctx, id)
}

func (s *Session) MarkAllAsRead(ctx context.Context) error {
	return s.store.MarkAllAsRead(ctx)
}

func (s *Session) DeleteNotification(ctx context.Context, id string) error {
	return s.store.DeleteNotification(ctx, id)
}

// Notifications returns the current list, newest first.
func (s *Session) Notifications() []notification.Notification {
	return s.store.Items()
}

// UnreadCount returns the global badge counter.
func (s *Session) UnreadCount() int {
	return s.store.UnreadCount()
}

// UnreadByRoute returns the per-route unread projection.
func (s *Session) UnreadByRoute() map[string]int {
	return s.aggregator.UnreadByRoute(s.store.Items())
}

// UnreadByCompany returns the per-company unread breakdown from the backend.
// ErrNoCompanyCounts when the session was assembled without a counts source.
func (s *Session) UnreadByCompany(ctx context.Context) (map[string]int, error) {
	if s.counts == nil {
		return nil, ErrNoCompanyCounts
	}
	return s.counts.UnreadCountByCompany(ctx)
}

// IsConnected reports the live push-transport state.
func (s *Session) IsConnected() bool {
	return s.transport.IsConnected()
}

// Watch subscribes to the store change feed.
func (s *Session) Watch(ctx context.Context) *store.FeedSubscriber {
	return s.store.Subscribe(ctx)
}

// Aggregator exposes the route aggregator, e.g. for the debug side channel.
func (s *Session) Aggregator() *routes.Aggregator {
	return s.aggregator
}

// Store exposes the underlying store.
func (s *Session) Store() *store.Store {
	return s.store
}

func (s *Session) activeCompany() string {
	if s.company == nil {
		return ""
	}
	return s.company()
}
