package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifhub/notifhub/pkg/apiclient"
	"github.com/notifhub/notifhub/pkg/notification"
	"github.com/notifhub/notifhub/pkg/store"
)

// fakeAPI lets each test script the REST collaborator.
type fakeAPI struct {
	listFn    func(ctx context.Context, params apiclient.ListParams) (*apiclient.ListResponse, error)
	markFn    func(ctx context.Context, id string) (*notification.Notification, error)
	markAllFn func(ctx context.Context, companyID string) (*apiclient.MarkAllResponse, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (f *fakeAPI) List(ctx context.Context, params apiclient.ListParams) (*apiclient.ListResponse, error) {
	if f.listFn == nil {
		return &apiclient.ListResponse{Page: params.Page, TotalPages: params.Page}, nil
	}
	return f.listFn(ctx, params)
}

func (f *fakeAPI) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	if f.markFn == nil {
		return &notification.Notification{ID: id, Read: true}, nil
	}
	return f.markFn(ctx, id)
}

func (f *fakeAPI) MarkAllRead(ctx context.Context, companyID string) (*apiclient.MarkAllResponse, error) {
	if f.markAllFn == nil {
		return &apiclient.MarkAllResponse{}, nil
	}
	return f.markAllFn(ctx, companyID)
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, id)
}

func notif(id string, read bool) notification.Notification {
	return notification.Notification{
		ID:        id,
		Type:      notification.TypeTaskDue,
		Priority:  notification.PriorityMedium,
		Title:     "title " + id,
		Read:      read,
		CreatedAt: time.Now(),
	}
}

func pageResponse(page, totalPages, unread int, items ...notification.Notification) *apiclient.ListResponse {
	return &apiclient.ListResponse{
		Notifications: items,
		Page:          page,
		TotalPages:    totalPages,
		UnreadCount:   unread,
		Total:         len(items),
	}
}

func TestApplyPushNotification(t *testing.T) {
	t.Parallel()

	t.Run("duplicate delivery is idempotent", func(t *testing.T) {
		t.Parallel()
		s := store.New(&fakeAPI{}, nil)

		s.ApplyPushNotification(notif("a", false))
		s.ApplyPushNotification(notif("a", false))

		assert.Len(t, s.Items(), 1)
		assert.Equal(t, 1, s.UnreadCount())
	})

	t.Run("prepends ahead of existing items", func(t *testing.T) {
		t.Parallel()
		s := store.New(&fakeAPI{}, nil)

		s.ApplyPushNotification(notif("older", false))
		s.ApplyPushNotification(notif("newer", false))

		items := s.Items()
		require.Len(t, items, 2)
		assert.Equal(t, "newer", items[0].ID)
		assert.Equal(t, "older", items[1].ID)
	})

	t.Run("read push does not touch counter", func(t *testing.T) {
		t.Parallel()
		s := store.New(&fakeAPI{}, nil)

		s.ApplyPushNotification(notif("a", true))

		assert.Len(t, s.Items(), 1)
		assert.Zero(t, s.UnreadCount())
	})
}

func TestApplyBadgeUpdate(t *testing.T) {
	t.Parallel()

	t.Run("accepted without intent", func(t *testing.T) {
		t.Parallel()
		s := store.New(&fakeAPI{}, nil)

		s.ApplyBadgeUpdate(7)
		assert.Equal(t, 7, s.UnreadCount())

		s.ApplyBadgeUpdate(2)
		assert.Equal(t, 2, s.UnreadCount())
	})

	t.Run("negative input clamps to zero", func(t *testing.T) {
		t.Parallel()
		s := store.New(&fakeAPI{}, nil)

		s.ApplyBadgeUpdate(-3)
		assert.Zero(t, s.UnreadCount())
	})
}

func TestApplyPushRead(t *testing.T) {
	t.Parallel()

	t.Run("marks item and decrements", func(t *testing.T) {
		t.Parallel()
		s := store.New(&fakeAPI{}, nil)
		s.ApplyPushNotification(notif("a", false))

		s.ApplyPushRead("a")

		items := s.Items()
		require.Len(t, items, 1)
		assert.True(t, items[0].Read)
		require.NotNil(t, items[0].ReadAt)
		assert.Zero(t, s.UnreadCount())
	})

	t.Run("already-read item is a no-op", func(t *testing.T) {
		t.Parallel()
		s := store.New(&fakeAPI{}, nil)
		s.ApplyPushNotification(notif("a", false))
		s.ApplyPushNotification(notif("b", false))

		s.ApplyPushRead("a")
		s.ApplyPushRead("a")

		assert.Equal(t, 1, s.UnreadCount())
	})

	t.Run("counter never goes negative", func(t *testing.T) {
		t.Parallel()
		s := store.New(&fakeAPI{}, nil)

		s.ApplyPushRead("paged-out-1")
		s.ApplyPushRead("paged-out-2")
		s.ApplyPushRead("paged-out-3")

		assert.Zero(t, s.UnreadCount())
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("reset replaces items and cursor", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{
			listFn: func(_ context.Context, params apiclient.ListParams) (*apiclient.ListResponse, error) {
				return pageResponse(params.Page, 3, 5, notif("p1a", false), notif("p1b", true)), nil
			},
		}
		s := store.New(api, nil)
		s.ApplyPushNotification(notif("stale", false))

		require.NoError(t, s.Load(context.Background(), true))

		items := s.Items()
		require.Len(t, items, 2)
		assert.Equal(t, "p1a", items[0].ID)
		assert.Equal(t, 5, s.UnreadCount())
		assert.Equal(t, 1, s.Page())
		assert.True(t, s.HasMore())
		assert.Empty(t, s.LastError())
	})

	t.Run("append keeps existing order and drops duplicates", func(t *testing.T) {
		t.Parallel()
		calls := 0
		api := &fakeAPI{
			listFn: func(_ context.Context, params apiclient.ListParams) (*apiclient.ListResponse, error) {
				calls++
				if params.Page == 1 {
					return pageResponse(1, 2, 2, notif("a", false), notif("b", false)), nil
				}
				return pageResponse(2, 2, 2, notif("b", false), notif("c", false)), nil
			},
		}
		s := store.New(api, nil)

		require.NoError(t, s.Load(context.Background(), true))
		require.NoError(t, s.LoadMore(context.Background()))

		items := s.Items()
		require.Len(t, items, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{items[0].ID, items[1].ID, items[2].ID})
		assert.False(t, s.HasMore())
		assert.Equal(t, 2, calls)
	})

	t.Run("failure keeps last known good state", func(t *testing.T) {
		t.Parallel()
		ok := true
		api := &fakeAPI{
			listFn: func(_ context.Context, params apiclient.ListParams) (*apiclient.ListResponse, error) {
				if ok {
					return pageResponse(1, 1, 1, notif("a", false)), nil
				}
				return nil, errors.New("backend down")
			},
		}
		s := store.New(api, nil)
		require.NoError(t, s.Load(context.Background(), true))

		ok = false
		err := s.Load(context.Background(), true)
		require.Error(t, err)

		assert.Len(t, s.Items(), 1)
		assert.Equal(t, 1, s.UnreadCount())
		assert.NotEmpty(t, s.LastError())
	})

	t.Run("load more is a no-op when exhausted", func(t *testing.T) {
		t.Parallel()
		calls := 0
		api := &fakeAPI{
			listFn: func(_ context.Context, params apiclient.ListParams) (*apiclient.ListResponse, error) {
				calls++
				return pageResponse(1, 1, 0, notif("a", true)), nil
			},
		}
		s := store.New(api, nil)
		require.NoError(t, s.Load(context.Background(), true))
		require.NoError(t, s.LoadMore(context.Background()))

		assert.Equal(t, 1, calls)
	})
}

func TestResetBeatsStaleLoadMore(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	started := make(chan struct{})
	api := &fakeAPI{}
	api.listFn = func(_ context.Context, params apiclient.ListParams) (*apiclient.ListResponse, error) {
		if params.Page == 2 {
			close(started)
			<-block // hold the loadMore response until after the reset applies
			return pageResponse(2, 2, 9, notif("stale-p2", false)), nil
		}
		return pageResponse(1, 2, 1, notif("fresh-p1", false)), nil
	}

	s := store.New(api, nil)
	require.NoError(t, s.Load(context.Background(), true))

	done := make(chan error, 1)
	go func() { done <- s.LoadMore(context.Background()) }()
	<-started

	require.NoError(t, s.Load(context.Background(), true))

	close(block)
	require.NoError(t, <-done)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "fresh-p1", items[0].ID)
	assert.Equal(t, 1, s.UnreadCount())
	assert.Equal(t, 1, s.Page())
}

func TestChangeFeed(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := s.Subscribe(ctx)

	s.ApplyPushNotification(notif("a", false))

	select {
	case snap := <-sub.Receive():
		assert.Equal(t, 1, snap.UnreadCount)
		require.Len(t, snap.Items, 1)
		assert.Equal(t, "a", snap.Items[0].ID)
		assert.Equal(t, store.ConnDisconnected, snap.ConnectionState)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestCloseWithLiveSubscriber(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The subscriber context stays live across Close; teardown must not
	// wait for it.
	sub := s.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close blocked on a live subscriber context")
	}

	_, open := <-sub.Receive()
	assert.False(t, open, "subscriber channel closed on store close")
}

func TestSetConnectionState(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{}, nil)
	assert.Equal(t, store.ConnDisconnected, s.ConnectionState())

	s.SetConnectionState(store.ConnConnected)
	assert.Equal(t, store.ConnConnected, s.ConnectionState())
}
