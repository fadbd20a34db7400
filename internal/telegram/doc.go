// Package telegram talks to the Telegram Bot API.
//
// Bot sends MarkdownV2 messages and photos and long-polls getUpdates. Poller
// runs the receive loop for the configured chat and dispatches commands
// (/subscribes, /search, /refresh, or free text to subscribe) to a Handler
// supplied by the daemon. The loop checks its stop signal between polls, so
// an in-flight request completes before shutdown takes effect.
package telegram
