// Package media holds the identity types shared by the recognizer, the
// matching engine and the reconciliation engine.
//
// A Guess is what can be read off a release name or a user request; a Record is
// the canonical identity resolved against TMDB. Missing describes the episodes
// (or the whole movie) a subscription still lacks. Release names are parsed
// with go-ptn and titles are folded with x/text so lookups and cache keys agree
// on spelling.
package media
