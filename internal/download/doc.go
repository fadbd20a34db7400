// Package download turns matched releases into download requests.
//
// Select walks releases best-score first and keeps only those that cover
// something still missing: a movie gap, a whole outstanding season for a
// season pack, or at least one outstanding episode. The Downloader hands the
// selection to a Client (NZBGet over JSON-RPC or a blackhole watch
// directory) and reports what remains missing after the accepted requests.
package download
