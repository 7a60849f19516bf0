package validation

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// strictHTMLPolicy strips every HTML tag and attribute. Initialized once;
// bluemonday policies are safe for concurrent use.
var strictHTMLPolicy = bluemonday.StrictPolicy()

// SanitizeText removes all HTML from admin-supplied text before it is
// persisted to the catalog.
func SanitizeText(s string) string {
	return strictHTMLPolicy.Sanitize(s)
}

// SanitizeForFormulaInjection neutralizes cells that would execute as
// formulas in Excel/LibreOffice/Sheets. Uploaded passthrough columns go
// through this before they are written into the downloadable workbook.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		// A leading single quote forces the cell to be treated as text.
		return "'" + s
	}
	return s
}

// StripUnprintable drops non-printable characters, keeping common whitespace.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
