package routes

import (
	"sync"

	"github.com/notifhub/notifhub/pkg/notification"
)

// Aggregator derives unread counts bucketed by route. It is a pure read-side
// projection over the store's items: no independent state beyond the static
// table and the debug-only synthetic injections, recomputed on every call.
type Aggregator struct {
	table *Table

	mu        sync.RWMutex
	synthetic []notification.Notification
}

// NewAggregator creates an aggregator over a classification table. A nil
// table falls back to the built-in default.
func NewAggregator(table *Table) *Aggregator {
	if table == nil {
		table = DefaultTable()
	}
	return &Aggregator{table: table}
}

// Table returns the underlying classification table.
func (a *Aggregator) Table() *Table {
	return a.table
}

// InjectSynthetic adds a debug-only notification that participates in route
// counts without ever entering the store. Used by the debug side channel to
// exercise badge rendering end to end.
func (a *Aggregator) InjectSynthetic(n notification.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.synthetic = append(a.synthetic, n)
}

// ClearSynthetic drops all injected notifications.
func (a *Aggregator) ClearSynthetic() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.synthetic = nil
}

// UnreadByRoute scans the given items plus any synthetic injections and
// counts unread notifications per route path. A type present in no route's
// set (including the unknown/malformed case) contributes nothing; every
// declared route appears in the result, zero-valued when empty.
func (a *Aggregator) UnreadByRoute(items []notification.Notification) map[string]int {
	counts := make(map[string]int, len(a.table.Routes))
	for _, path := range a.table.Paths() {
		counts[path] = 0
	}

	a.mu.RLock()
	synthetic := a.synthetic
	a.mu.RUnlock()

	for _, set := range [][]notification.Notification{items, synthetic} {
		for _, n := range set {
			if n.Read {
				continue
			}
			paths := a.table.RoutesFor(string(n.Type))
			if len(paths) == 0 && n.EntityType != "" {
				paths = a.table.RoutesFor(n.EntityType)
			}
			for _, p := range paths {
				counts[p]++
			}
		}
	}
	return counts
}
