// Package indexer talks to Newznab and Torznab compatible indexers.
//
// A Client lists an indexer's latest releases (the refresh source) and runs
// scoped searches by IMDb id, season, or keyword. Multi fans a search out to
// every enabled indexer and merges the results. ProbeLogin inspects a site
// page to tell whether the stored session is still logged in.
package indexer
