// Package transport maintains the push side of the notification backend
// contract: one live full-duplex connection at a time, typed pub/sub over the
// finite wire-event set, automatic reconnection with exponential backoff, and
// company broadcast-channel membership.
//
// # Architecture
//
//   - Conn/Dialer: the wire abstraction. The primary implementation dials a
//     websocket; a Redis pub/sub adapter exists for deployments colocated
//     with the backend. Both frame signals as {"event": ..., "data": ...}.
//   - Client: owns the connection lifecycle. Callers never see dial errors;
//     they observe connected/disconnected events plus an error event for
//     diagnostics, while the reconnector retries in the background.
//   - reconnector: explicit idle/backoff/connecting/connected machine with a
//     single pending timer. Two external wake signals (visibility, network
//     online) reset the attempt counter and force a prompt retry.
//   - Subscriptions: re-joins the active company channel on every connect;
//     channel membership never survives a reconnect.
//
// # Usage
//
//	client := transport.NewClient(transport.NewWebSocketDialer(wsCfg))
//	subs := transport.NewSubscriptions(client, log)
//
//	client.On(transport.EventNewNotification, func(ev transport.Event) {
//	    store.ApplyPushNotification(*ev.Notification)
//	})
//
//	_ = client.Connect(ctx, token, userID)
//	subs.SetActiveCompany(companyID)
package transport
