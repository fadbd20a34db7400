package textutil

import "strings"

// maxFileNameLength keeps generated names below common filesystem limits
// once an extension is appended.
const maxFileNameLength = 200

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName makes a release name safe to use as a file name. Path
// separators and colons become dashes, other unsafe characters are dropped,
// runs of whitespace collapse, and the result is capped in length.
func SanitizeFileName(name string) string {
	name = fileNameReplacer.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, " .")
	if len(name) > maxFileNameLength {
		name = strings.TrimRight(name[:maxFileNameLength], " .")
	}
	return name
}
