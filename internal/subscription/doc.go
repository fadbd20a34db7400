// Package subscription persists user subscriptions in SQLite.
//
// A subscription starts in state N (new), moves to R (matching) the first
// time it is searched, and is deleted once nothing is missing. Schema changes
// ship as numbered SQL files under migrations/ and are applied on Open.
package subscription
