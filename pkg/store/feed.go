package store

import (
	"context"
	"sync"

	"github.com/notifhub/notifhub/pkg/notification"
)

// Snapshot is one immutable revision of the store state, published to
// subscribers after every mutation so consumers re-render from a consistent
// view instead of poking at live state.
type Snapshot struct {
	Revision        uint64
	Items           []notification.Notification
	UnreadCount     int
	Page            int
	HasMore         bool
	ConnectionState ConnState
	LastError       string
}

// FeedSubscriber receives store snapshots. Sends are non-blocking: a consumer
// that stops draining its channel misses intermediate revisions but always
// receives a later one, which is safe because snapshots are absolute, not
// deltas.
type FeedSubscriber struct {
	ch     chan Snapshot
	closed bool
	mu     sync.RWMutex
}

func newFeedSubscriber(bufferSize int) *FeedSubscriber {
	return &FeedSubscriber{
		ch: make(chan Snapshot, max(bufferSize, 1)),
	}
}

// Receive returns the snapshot channel. Closed when the subscriber closes.
func (s *FeedSubscriber) Receive() <-chan Snapshot {
	return s.ch
}

// Close closes the subscriber. Idempotent.
func (s *FeedSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

func (s *FeedSubscriber) send(snap Snapshot) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- snap:
		return true
	default:
		// Drop for slow consumers; a newer snapshot supersedes this one anyway.
		return false
	}
}

// feed fans snapshots out to all live subscribers.
type feed struct {
	subscribers map[*FeedSubscriber]struct{}
	bufferSize  int
	closed      bool
	done        chan struct{}
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
}

func newFeed(bufferSize int) *feed {
	return &feed{
		subscribers: make(map[*FeedSubscriber]struct{}),
		bufferSize:  max(bufferSize, 1),
		done:        make(chan struct{}),
	}
}

func (f *feed) subscribe(ctx context.Context) *FeedSubscriber {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := newFeedSubscriber(f.bufferSize)
	if f.closed {
		_ = sub.Close()
		return sub
	}
	f.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		f.cleanupWg.Add(1)
		go func() {
			defer f.cleanupWg.Done()
			// Detach on feed close too, so Close never waits for subscriber
			// contexts that outlive the store.
			select {
			case <-ctx.Done():
				f.unsubscribe(sub)
			case <-f.done:
			}
		}()
	}

	return sub
}

func (f *feed) publish(snap Snapshot) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}

	for sub := range f.subscribers {
		sub.send(snap)
	}
}

func (f *feed) close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.done)
	for sub := range f.subscribers {
		_ = sub.Close()
	}
	clear(f.subscribers)
	f.mu.Unlock()

	f.cleanupWg.Wait()
}

func (f *feed) unsubscribe(sub *FeedSubscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.subscribers, sub)
	_ = sub.Close()
}
