// Package fileutil holds small filesystem helpers: atomic writes for state
// files and a move that survives crossing filesystems.
package fileutil
