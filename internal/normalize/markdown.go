package normalize

import "strings"

// dashUnifier maps dash variants to a plain hyphen and non-breaking spaces
// to regular ones before escaping, so they are escaped like any hyphen.
var dashUnifier = strings.NewReplacer(
	"—", "-",
	"–", "-",
	"−", "-",
	" ", " ",
)

// markdownEscaper escapes every character MarkdownV2 reserves.
var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// EscapeMarkdown prepares text for Telegram MarkdownV2 rendering. Escaping
// expands length, so callers measuring a payload budget must escape first.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(dashUnifier.Replace(text))
}
