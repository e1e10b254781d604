package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/notifhub/notifhub/pkg/logger"
)

// MarkAsRead applies the read state locally first, then confirms with the
// backend. A REST failure is soft: the optimistic change stays, because
// rolling back would resurface a notification the user already dismissed
// mentally, and the next interaction retries implicitly.
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 && !s.items[i].Read {
		s.items[i].MarkAsRead()
		s.unread = max(s.unread-1, 0)
	}
	// A mark-one only ever supersedes another mark-one. The mark_all slot is
	// left alone so an in-flight bulk guard keeps arbitrating badge updates.
	now := s.now()
	s.markOneIntent = &Intent{
		Kind:       IntentMarkOne,
		IssuedAt:   now,
		GuardUntil: now.Add(s.guardWindow),
	}
	s.publishLocked()
	s.mu.Unlock()

	if _, err := s.api.MarkRead(ctx, id); err != nil {
		s.mu.Lock()
		s.lastError = "failed to mark notification as read"
		s.publishLocked()
		s.mu.Unlock()

		s.logger.LogAttrs(ctx, slog.LevelWarn, "mark-read failed, keeping optimistic state",
			logger.NotificationID(id),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// MarkAllAsRead zeroes the counter and marks every loaded item read before
// the backend confirms, guarded by a mark_all intent so slower or reordered
// authoritative updates cannot stomp the optimistic zero. At the end of the
// guard window a deferred correction re-asserts zero in case it drifted.
//
// A REST failure here is hard: the intent is cleared immediately and a full
// reset load re-derives truth from the server, because an optimistic zero is
// unsafe to keep once the bulk mark-read is known to have failed.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	for i := range s.items {
		s.items[i].MarkAsRead()
	}
	s.unread = 0

	now := s.now()
	intent := &Intent{
		Kind:       IntentMarkAll,
		IssuedAt:   now,
		GuardUntil: now.Add(s.guardWindow),
	}
	s.markAllIntent = intent

	if s.intentTimer != nil {
		s.intentTimer.Stop()
	}
	s.intentTimer = s.scheduleCorrection(intent)

	s.publishLocked()
	s.mu.Unlock()

	if _, err := s.api.MarkAllRead(ctx, s.activeCompany()); err != nil {
		s.mu.Lock()
		if s.markAllIntent == intent {
			s.markAllIntent = nil
		}
		if s.intentTimer != nil {
			s.intentTimer.Stop()
			s.intentTimer = nil
		}
		s.lastError = "failed to mark all notifications as read"
		s.mu.Unlock()

		s.logger.LogAttrs(ctx, slog.LevelError, "bulk mark-read failed, resyncing from server",
			logger.Error(err),
		)

		// Hard failure: resync truth rather than trusting any local or pushed
		// value. The reset load also republishes the snapshot.
		if loadErr := s.Load(ctx, true); loadErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "resync after failed bulk mark-read also failed",
				logger.Error(loadErr),
			)
		}
		return err
	}
	return nil
}

// DeleteNotification removes a notification on the backend first, then
// locally. The list stays untouched on failure.
func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, id); err != nil {
		s.mu.Lock()
		s.lastError = "failed to delete notification"
		s.publishLocked()
		s.mu.Unlock()

		s.logger.LogAttrs(ctx, slog.LevelWarn, "delete notification failed",
			logger.NotificationID(id),
			logger.Error(err),
		)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		if !s.items[i].Read {
			s.unread = max(s.unread-1, 0)
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		delete(s.ids, id)
	}
	s.lastError = ""
	s.publishLocked()
	return nil
}

// scheduleCorrection arms the deferred correction for a mark_all intent:
// when the guard window elapses, the counter is forced back to zero if a
// stray update drifted it, and the intent is destroyed.
func (s *Store) scheduleCorrection(intent *Intent) *time.Timer {
	delay := intent.GuardUntil.Sub(s.now())
	return time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.markAllIntent != intent {
			return
		}
		s.markAllIntent = nil
		s.intentTimer = nil
		if s.unread != 0 {
			s.unread = 0
			s.publishLocked()
		}
	})
}
