package rendering

import (
	"strings"
	"unicode"
)

// latexReplacer maps characters with special meaning in LaTeX body text to
// their printable forms. < and > print as inverted punctuation under OT1.
var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`%`, `\%`,
	`#`, `\#`,
	`_`, `\_`,
	`^`, `\textasciicircum{}`,
	`~`, `\textasciitilde{}`,
	`<`, `\textless{}`,
	`>`, `\textgreater{}`,
)

// EscapeLaTeX makes untrusted text safe to place in a LaTeX document body.
// Control characters are dropped, except tabs which become spaces, and
// newlines which are kept.
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}
	return latexReplacer.Replace(stripControl(text))
}

func stripControl(text string) string {
	clean := true
	for _, r := range text {
		if r != '\n' && unicode.IsControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return text
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r != '\n' && unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
}
