// Package textutil compares titles and turns release names into safe file
// names.
//
// Titles are compared as bags of folded tokens: accents are stripped,
// letters lowercased, and punctuation dropped, so "Amélie" and "Amelie"
// agree and "Star Wars: Episode IV" still resembles "Star Wars Episode 4"
// more than it resembles an unrelated title.
package textutil
