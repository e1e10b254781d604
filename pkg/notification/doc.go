// Package notification defines the domain model shared by the rest of the
// engine: the Notification record delivered by the backend and observed by
// the client, its type and priority enums, and the navigation-target
// derivation rule.
//
// Notifications are server-owned. The client never fabricates them (outside
// the debug side channel) and mutates only the Read/ReadAt pair, which may be
// set optimistically ahead of server confirmation.
package notification
