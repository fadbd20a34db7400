// Package wishlist turns a Trakt watchlist into downloads and subscriptions.
//
// Each sync lists the watchlist, skips entries already processed, and hands
// the rest to the reconcile engine, which downloads what it can right away
// and subscribes to whatever is still missing. Processed entries are kept in
// a small JSON state file so restarts do not repeat work.
package wishlist
