// Package notifications delivers subscription events via pluggable notifiers.
//
// The ntfy transport publishes to the topic configured in config.toml and the
// Telegram transport posts to the configured chat; NewService fans out to
// every configured transport and degrades to a no-op when none is. Render
// turns an Event and Payload into the message every transport shares, and
// the [notifications] switches suppress whole event categories.
package notifications
