package tasks

import "strings"

var markupEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize escapes the characters that would let stored text be rendered as
// markup. Ampersands are left alone so repeated escaping stays readable.
func Sanitize(s string) string {
	return markupEscaper.Replace(s)
}
