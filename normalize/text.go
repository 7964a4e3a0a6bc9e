package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	b := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// CleanText trims s, drops non-printable runes and collapses runs of
// whitespace to a single space. The result is in NFC, so the same review
// text compares equal whether the page composed its accents or not.
func CleanText(s string) string {
	s = norm.NFC.String(removeNonPrintable(s))
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// StripQuote removes the quote marks and newlines wrapping a translated
// review block.
func StripQuote(s string) string {
	return strings.Trim(s, "\"\n")
}

// StripPrefix trims s and removes a leading literal prefix such as
// "Reviewed ".
func StripPrefix(s, prefix string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimPrefix(s, prefix))
}
