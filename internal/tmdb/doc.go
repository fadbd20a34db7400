// Package tmdb is a small client for The Movie Database v3 API covering the
// searches, detail lookups and IMDb cross references used for recognition
// and holdings checks.
package tmdb
