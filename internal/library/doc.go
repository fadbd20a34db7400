// Package library answers whether the media library already holds a title.
//
// Movies are matched by folder or file name under the movies root. Series
// are matched by show folder under the TV root, and the episodes found on
// disk are compared with TMDB's season listing to compute the gap.
package library
