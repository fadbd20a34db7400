package media

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casers carry state, so each call builds its own.

// FoldTitle case-folds a title and collapses runs of whitespace so two
// spellings of the same name produce the same lookup key.
func FoldTitle(title string) string {
	folded := cases.Fold().String(strings.TrimSpace(title))
	return strings.Join(strings.FieldsFunc(folded, unicode.IsSpace), " ")
}

// DisplayTitle title-cases a parsed release title that arrived in lower case.
func DisplayTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	if strings.ToLower(title) != title {
		return title
	}
	return cases.Title(language.English).String(title)
}
