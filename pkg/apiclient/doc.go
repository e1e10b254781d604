// Package apiclient is the REST side of the notification backend contract:
// paged list fetches, single and bulk mark-read, delete, and the unread
// counters. The push side of the contract lives in pkg/transport.
//
// The client is deliberately thin. It owns request construction, bearer-token
// injection via a CredentialSupplier, and error decoding; retry, optimistic
// state and reconciliation are the store's concern.
package apiclient
