// Package routes buckets unread notifications into navigation routes using a
// static type-to-route classification table, loadable from YAML or built in.
// The aggregator is a pure projection over the store's items; it also merges
// a debug-only side channel of synthetic notifications that never touch the
// store.
package routes
