// Package store holds the authoritative client-side notification state: the
// ordered list (newest first), the unread badge counter, and the pagination
// cursor, merged from two independent sources (paged REST fetches and push
// events) plus user-initiated optimistic mutations racing against both.
//
// # Convergence rules
//
// Three rules make the merge order-independent:
//
//   - Duplicate suppression: a push-delivered notification whose id already
//     exists is dropped, never merged, so at-least-once delivery is safe.
//   - Request generations: a reset load bumps a monotonic generation before
//     its request is issued; any response carrying an older generation is
//     discarded on arrival. A stale loadMore can never clobber a reset.
//   - Mutation intents: MarkAllAsRead opens a guard window during which
//     authoritative counters that would raise the optimistic zero are
//     rejected, while zero or strictly lower values always pass. A deferred
//     correction re-asserts zero when the window closes.
//
// Consumers subscribe to the change feed and receive an immutable Snapshot
// after every mutation; sends are non-blocking and slow consumers simply skip
// to a later revision.
package store
