// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response types for
// subscription, cache maintenance, wishlist and diagnostics calls. Payloads
// reuse the api DTOs so the CLI renders the same shapes the HTTP status API
// serves.
package ipc
