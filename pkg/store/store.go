package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/notifhub/notifhub/pkg/apiclient"
	"github.com/notifhub/notifhub/pkg/logger"
	"github.com/notifhub/notifhub/pkg/notification"
)

// ConnState mirrors the transport connection state inside the store so UI
// consumers read everything from one place.
type ConnState string

const (
	ConnDisconnected ConnState = "disconnected"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
)

// API is the slice of the REST collaborator the store consumes.
type API interface {
	List(ctx context.Context, params apiclient.ListParams) (*apiclient.ListResponse, error)
	MarkRead(ctx context.Context, id string) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, companyID string) (*apiclient.MarkAllResponse, error)
	Delete(ctx context.Context, id string) error
}

// CompanySupplier returns the currently active company id, empty for none.
// Read-only from the store's perspective.
type CompanySupplier func() string

const defaultGuardWindow = 2 * time.Second

// Store is the single source of truth for the notification list and unread
// counter, reconciling REST-paged loads with push events and optimistic local
// mutations. All state transitions are serialized behind one mutex; the three
// async sources (page responses, push events, user mutations) converge
// order-independently through the intent and generation rules.
type Store struct {
	api     API
	company CompanySupplier
	logger  *slog.Logger
	now     func() time.Time

	pageLimit   int
	guardWindow time.Duration

	mu         sync.Mutex
	items      []notification.Notification
	ids        map[string]struct{}
	unread     int
	page       int
	hasMore    bool
	inflight   int
	generation uint64
	revision   uint64
	connState  ConnState
	lastError  string

	markOneIntent *Intent
	markAllIntent *Intent
	intentTimer   *time.Timer

	feed *feed
}

// Option configures a Store.
type Option func(*Store)

// WithPageLimit sets the page size for list requests.
func WithPageLimit(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.pageLimit = limit
		}
	}
}

// WithGuardWindow overrides the optimistic-mutation guard window.
func WithGuardWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.guardWindow = d
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithClock replaces the time source, used by tests to steer guard windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a store over the REST collaborator. The company supplier may be
// nil when the engine runs without company scoping.
func New(api API, company CompanySupplier, opts ...Option) *Store {
	s := &Store{
		api:         api,
		company:     company,
		logger:      slog.Default(),
		now:         time.Now,
		pageLimit:   20,
		guardWindow: defaultGuardWindow,
		ids:         make(map[string]struct{}),
		page:        1,
		hasMore:     true,
		connState:   ConnDisconnected,
		feed:        newFeed(8),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close tears the store down: the change feed closes and any pending guard
// correction is cancelled.
func (s *Store) Close() {
	s.mu.Lock()
	if s.intentTimer != nil {
		s.intentTimer.Stop()
		s.intentTimer = nil
	}
	s.markOneIntent = nil
	s.markAllIntent = nil
	s.mu.Unlock()

	s.feed.close()
}

// Subscribe returns a change-feed subscriber that receives a snapshot after
// every store mutation. Cancelling ctx detaches it.
func (s *Store) Subscribe(ctx context.Context) *FeedSubscriber {
	return s.feed.subscribe(ctx)
}

func (s *Store) activeCompany() string {
	if s.company == nil {
		return ""
	}
	return s.company()
}

// Load fetches one page from the backend. With reset it synchronously rewinds
// the cursor to page 1 and bumps the request generation before the request is
// issued, so a racing stale response from an earlier load is discarded on
// arrival rather than applied over fresher state.
func (s *Store) Load(ctx context.Context, reset bool) error {
	s.mu.Lock()
	if reset {
		s.page = 1
		s.generation++
	}
	gen := s.generation
	page := s.page
	limit := s.pageLimit
	s.inflight++
	s.mu.Unlock()

	resp, err := s.api.List(ctx, apiclient.ListParams{
		CompanyID: s.activeCompany(),
		Page:      page,
		Limit:     limit,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	if err != nil {
		// Leave the list in its last-known-good state; surface the failure
		// as a store-level message only.
		s.lastError = "failed to load notifications"
		s.logger.LogAttrs(ctx, slog.LevelError, "notification page load failed",
			logger.Page(page),
			logger.Error(err),
		)
		s.publishLocked()
		return err
	}

	if gen != s.generation {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "discarding stale page response",
			logger.Page(page),
		)
		return nil
	}

	if reset {
		s.items = s.items[:0]
		clear(s.ids)
	}
	for _, n := range resp.Notifications {
		if _, dup := s.ids[n.ID]; dup {
			continue
		}
		s.items = append(s.items, n)
		s.ids[n.ID] = struct{}{}
	}

	s.hasMore = resp.Page < resp.TotalPages

	// A page response carries an unread counter computed before the server
	// processed a bulk mark-read the user just issued; while a mark_all
	// intent is active the fetched value is stale by construction.
	if s.markAllIntent.ActiveAt(s.now()) {
		s.unread = 0
	} else {
		s.unread = max(resp.UnreadCount, 0)
	}

	s.lastError = ""
	s.publishLocked()
	return nil
}

// LoadMore advances the cursor and fetches the next page. No-op while a load
// is in flight or when the collection is exhausted.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight > 0 || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.page++
	s.mu.Unlock()

	return s.Load(ctx, false)
}

// Refresh is a reset load.
func (s *Store) Refresh(ctx context.Context) error {
	return s.Load(ctx, true)
}

// ApplyPushNotification merges a push-delivered notification. Idempotent
// under at-least-once delivery: a duplicate id is dropped, not merged. New
// entries are prepended so push-delivered items always stay ahead of anything
// loaded via paging.
func (s *Store) ApplyPushNotification(n notification.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[n.ID]; dup {
		return
	}

	s.items = append([]notification.Notification{n}, s.items...)
	s.ids[n.ID] = struct{}{}
	if !n.Read {
		s.unread++
	}
	s.publishLocked()
}

// ApplyBadgeUpdate applies a server-pushed unread counter, subject to the
// intent arbitration predicate.
func (s *Store) ApplyBadgeUpdate(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.markAllIntent.AllowsBadge(count, s.unread, s.now()) {
		s.logger.LogAttrs(context.Background(), slog.LevelDebug, "ignoring stale badge update",
			logger.UnreadCount(count),
		)
		return
	}

	s.unread = max(count, 0)
	s.publishLocked()
}

// ApplyPushRead marks an item as read on behalf of a server-confirmed read
// (e.g. from another device) and decrements the counter, floored at zero. An
// item that is already read locally is a no-op; an item outside the loaded
// pages still decrements, since it is counted in unread regardless.
func (s *Store) ApplyPushRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		if s.items[i].Read {
			return
		}
		s.items[i].MarkAsRead()
	}
	s.unread = max(s.unread-1, 0)
	s.publishLocked()
}

// SetConnectionState mirrors the transport state into the snapshot.
func (s *Store) SetConnectionState(state ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connState == state {
		return
	}
	s.connState = state
	s.publishLocked()
}

// Items returns a copy of the current list, newest first.
func (s *Store) Items() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]notification.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount returns the current badge counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// HasMore reports whether further pages exist.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Page returns the current pagination cursor.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// ConnectionState returns the mirrored transport state.
func (s *Store) ConnectionState() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// LastError returns the transient user-facing error message, empty when the
// last operation succeeded.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// CurrentIntent returns the active mutation intent of the given kind, nil
// when none. Intents are tracked per kind so a mark-one issued inside a
// mark-all guard window cannot displace the bulk intent.
func (s *Store) CurrentIntent(kind IntentKind) *Intent {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.markOneIntent
	if kind == IntentMarkAll {
		slot = s.markAllIntent
	}
	if !slot.ActiveAt(s.now()) {
		return nil
	}
	cp := *slot
	return &cp
}

func (s *Store) indexLocked(id string) int {
	if _, ok := s.ids[id]; !ok {
		return -1
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) publishLocked() {
	s.revision++
	items := make([]notification.Notification, len(s.items))
	copy(items, s.items)
	s.feed.publish(Snapshot{
		Revision:        s.revision,
		Items:           items,
		UnreadCount:     s.unread,
		Page:            s.page,
		HasMore:         s.hasMore,
		ConnectionState: s.connState,
		LastError:       s.lastError,
	})
}
