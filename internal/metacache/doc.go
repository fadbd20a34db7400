// Package metacache keeps TMDB lookup results in memory with a sliding
// expiry and persists them to a bbolt file.
//
// Lookups that found nothing are remembered as sentinels for a short while so
// a failing title is not re-queried on every cycle; sentinels never reach
// disk. Saves are debounced: a background loop saves every few minutes, and a
// save runs a sampled expiry pass and skips the write when no key was added,
// removed or expired.
package metacache
