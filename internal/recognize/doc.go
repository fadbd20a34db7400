// Package recognize resolves a parsed title to a canonical TMDB identity.
//
// Lookups go through the metadata cache first; misses hit TMDB once per key
// even under concurrent callers, and a lookup that finds nothing is cached as
// a sentinel so the title is not searched again until the sentinel lapses.
package recognize
