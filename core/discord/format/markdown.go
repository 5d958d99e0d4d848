package format

import "strings"

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	`~`, `\~`,
	"`", "\\`",
	`|`, `\|`,
	`>`, `\>`,
)

// EscapeMarkdown escapes Discord markdown so user-chosen values render literally.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
