// Package httpapi exposes one engine session to the UI layer as a JSON
// surface: the notification list, the global and per-route unread counters,
// the connection state, and the load/refresh/mark-read/delete operations.
//
// Failure behavior mirrors the engine's: a failed operation responds with the
// last known good state plus a transient error message rather than an error
// page, so the UI stays usable on slightly stale data.
//
// When debug is enabled a side channel accepts synthetic notifications that
// feed the route aggregator without touching the store, for exercising badge
// rendering end to end.
//
// Mount the router on any server; pkg/httpserver provides a graceful one:
//
//	h := httpapi.New(sess, httpapi.WithDebug(cfg.EnableDebug))
//	srv := httpserver.NewFromConfig(srvCfg)
//	_ = srv.Run(ctx, h.Router())
package httpapi
