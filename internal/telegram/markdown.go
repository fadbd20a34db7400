package telegram

import "strings"

const markdownSpecial = "_*[]()~`>#+-=|{}.!\\"

// EscapeMarkdown escapes text for the MarkdownV2 parse mode.
func EscapeMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatMessage renders a bold title above the body, both escaped.
func FormatMessage(title, text string) string {
	title = strings.TrimSpace(title)
	text = strings.TrimSpace(text)
	if title == "" {
		return EscapeMarkdown(text)
	}
	if text == "" {
		return "*" + EscapeMarkdown(title) + "*"
	}
	return "*" + EscapeMarkdown(title) + "*\n" + EscapeMarkdown(text)
}
