// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates subscriptions, cache entries and daemon status
// into transport-friendly DTOs so the CLI and other consumers can render them
// without coupling to internal types.
//
// DTOs use camelCase JSON tags. Subscription states are exposed by their
// readable names ("new", "matching") and timestamps use RFC3339 with
// milliseconds.
package api
