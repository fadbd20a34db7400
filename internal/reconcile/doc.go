// Package reconcile drives subscriptions toward completion.
//
// The Engine owns the per-source Inventory and two entry points. RunCycle
// refreshes every source (listing and recognizing releases, replacing each
// source's inventory atomically) and then matches every subscription in the
// matching state against the union of all inventories. Search and
// SearchState query the searchers directly for one subscription or every
// subscription in a state, moving new subscriptions to matching first.
//
// Both paths share the same tail: resolve identity, consult holdings, match
// by identity with the season gate, filter, request a batch download, and
// then delete the subscription or record what is still missing. A keyed
// guard keeps two paths from working on the same subscription at once, and
// cycles never overlap.
//
// Collaborators (recognizer, holdings, sources, searcher, downloader, store,
// notifier) are interfaces injected through Deps.
package reconcile
