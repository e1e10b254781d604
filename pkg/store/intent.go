package store

import "time"

// IntentKind tags an in-flight optimistic mutation.
type IntentKind string

const (
	IntentMarkOne IntentKind = "mark_one"
	IntentMarkAll IntentKind = "mark_all"
)

// Intent marks a time-boxed window during which local optimistic state takes
// precedence over slower authoritative updates. It is ephemeral: created when
// a mutation starts, destroyed when the guard window elapses or a newer
// intent of the same kind supersedes it.
type Intent struct {
	Kind       IntentKind
	IssuedAt   time.Time
	GuardUntil time.Time
}

// ActiveAt reports whether the guard window is still open.
func (i *Intent) ActiveAt(now time.Time) bool {
	return i != nil && now.Before(i.GuardUntil)
}

// AllowsBadge is the single arbitration predicate between a pushed badge
// value and local optimistic state. A mark_all intent holds the counter at
// its optimistic zero, so a stale server value greater than or equal to the
// current one is rejected for the duration of the window. Zero or a strictly
// lower value is always accepted: monotonic convergence toward the true value
// is never blocked.
func (i *Intent) AllowsBadge(count, current int, now time.Time) bool {
	if !i.ActiveAt(now) || i.Kind != IntentMarkAll {
		return true
	}
	return count == 0 || count < current
}
