// Package sanitize cleans text that flows from category sources into reports.
// Category names arrive from spreadsheets maintained by hand, so they carry
// stray control characters, line breaks and occasionally formula prefixes that
// would be executed when a report CSV is opened in a spreadsheet.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxNameLength is the maximum allowed length, in bytes, of a category name.
const MaxNameLength = 120

// reWhitespace matches runs of whitespace, including tabs and newlines.
var reWhitespace = regexp.MustCompile(`\s+`)

// CategoryName normalises a category name:
//  1. Strip ASCII control characters (line breaks and tabs become spaces)
//  2. Collapse runs of whitespace to a single space
//  3. Trim leading/trailing whitespace
//  4. Truncate to MaxNameLength without splitting a UTF-8 sequence
func CategoryName(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}

	s := reWhitespace.ReplaceAllString(b.String(), " ")
	s = strings.TrimSpace(s)

	if len(s) > MaxNameLength {
		cut := MaxNameLength
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		s = strings.TrimSpace(s[:cut])
	}
	return s
}

// CSVCell neutralises spreadsheet formula injection: a cell beginning with
// '=', '+', '-', '@', tab or carriage return is prefixed with a single quote.
// Numeric-looking cells such as "-12.5" are left untouched.
func CSVCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '@', '\t', '\r':
		return "'" + s
	case '-':
		if looksNumeric(s[1:]) {
			return s
		}
		return "'" + s
	}
	return s
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
