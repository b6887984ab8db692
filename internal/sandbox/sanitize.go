package sandbox

import (
	"regexp"
)

// Control words that can read or write files, run shell commands, or rebuild
// those commands at expansion time. Matched as whole control words so that
// \includegraphics and \inputencoding-style names are still allowed.
var deniedControlWords = regexp.MustCompile(
	`\\@{0,2}(` +
		// primitives and the LaTeX kernel
		`input|include|openin|openout|read|InputIfFileExists|IfFileExists|` +
		// listings, verbatim, fancyvrb, minted
		`lstinputlisting|verbatiminput|VerbatimInput|BVerbatimInput|LVerbatimInput|inputminted|` +
		// import and standalone
		`import|subimport|inputfrom|includefrom|subinputfrom|subincludefrom|includestandalone|` +
		// embedding whole files
		`includepdf|pdfximage|XeTeXpdffile|XeTeXpicfile|embedfile|attachfile|textattachfile|` +
		`ShellEscape|directlua|catcode|csname|scantokens` +
		`)(?:[^A-Za-z@]|$)`,
)

var deniedSequences = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{`\write18`, regexp.MustCompile(`\\write\s*18`)},
	// ^^5c is a backslash; hex escapes can spell any denied command.
	{`^^`, regexp.MustCompile(`\^\^`)},
	// Images may only come from the working directory.
	{`\includegraphics`, regexp.MustCompile(`\\includegraphics\*?\s*(?:\[[^\]]*\])?\s*\{\s*(?:[/~]|[A-Za-z]:|[^}]*\.\.)`)},
}

// Sanitize rejects markup that uses any denied command. It runs before the
// source is sent to a compiler.
func Sanitize(source string) error {
	for _, d := range deniedSequences {
		if d.pattern.MatchString(source) {
			return &UnsafeInputError{Command: d.name}
		}
	}
	if m := deniedControlWords.FindStringSubmatch(source); m != nil {
		return &UnsafeInputError{Command: `\` + m[1]}
	}
	return nil
}
