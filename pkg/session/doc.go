// Package session assembles the engine for one authenticated session: the
// push-transport client, the notification store, the channel subscription
// manager and the per-route aggregator, wired together with an explicit
// Init/Dispose lifecycle.
//
// The session is the surface the UI layer talks to: list and counters, the
// connection boolean, and the Load/LoadMore/Refresh/MarkAsRead/MarkAllAsRead/
// DeleteNotification operations. Credential and company come in as read-only
// supplier functions owned by the host application.
package session
