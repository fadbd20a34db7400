// Package config loads, normalizes, and validates MoviePilot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and TELEGRAM_TOKEN. The Config type centralizes every knob the
// daemon and CLI need, so data/library directories, indexer credentials, and
// cron schedules are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
