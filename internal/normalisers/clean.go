package normalisers

import (
	"regexp"
	"strings"
)

var typography = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"–", "-",
	"—", "-",
	"−", "-",
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"‘", "'",
	"’", "'",
	"\u00a0", " ",
	"\u00ad", "",
	"\r\n", "\n",
	"\r", "\n",
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v]+`)
	spaceAroundLF   = regexp.MustCompile(` *\n *`)
	paragraphBreaks = regexp.MustCompile(`\n{3,}`)
)

// Clean repairs ligatures, normalises dashes and quotes, and collapses
// whitespace while keeping paragraph breaks.
func Clean(text string) string {
	text = typography.Replace(text)
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = spaceAroundLF.ReplaceAllString(text, "\n")
	text = paragraphBreaks.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
