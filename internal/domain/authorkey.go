package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// annotationRe matches parenthesized or bracketed qualifiers in author
// names, e.g. affiliations "(CERN)" or group markers "[ATLAS]". A trailing
// unterminated "(..." or "[..." is matched as well, since truncated names
// occur in real archive metadata.
var annotationRe = regexp.MustCompile(` ?\([^)]+\)?| ?\[[^\]]+\]?`)

// asciiLigatures folds letters that canonical decomposition cannot reduce
// to ASCII. This table is the pluggable part of the transliteration; NFD
// handles everything that carries combining marks.
var asciiLigatures = strings.NewReplacer(
	"Æ", "AE", "æ", "ae",
	"Œ", "OE", "œ", "oe",
	"Ø", "O", "ø", "o",
	"Đ", "D", "đ", "d",
	"Ð", "D", "ð", "d",
	"Ł", "L", "ł", "l",
	"Þ", "Th", "þ", "th",
	"ß", "ss",
)

// stripMarks removes combining marks after canonical decomposition, so
// "José" folds to "Jose".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SearchKeyForName derives the canonical search key for an author display
// name, e.g. "Biagini_M" from "Maria Enrica Biagini". The key is an
// approximate grouping key for search and deduplication, never a primary
// identity.
//
// A name that normalizes to nothing (e.g. consisting only of a bracketed
// annotation) yields the empty string. That is an expected edge case, not
// an error: ingestion must not be blocked by one unparseable author field.
func SearchKeyForName(name string) string {
	stripped := annotationRe.ReplaceAllString(name, "")

	tokens := strings.FieldsFunc(stripped, func(r rune) bool {
		return unicode.IsSpace(r) || r == '.'
	})
	if len(tokens) == 0 {
		return ""
	}

	var key string
	switch {
	case len(tokens) == 1:
		key = tokens[0]
	case strings.Contains(strings.ToLower(name), "collaboration"):
		// Group-author entries like "LHCb Collaboration" are not personal
		// names; key on the full first token instead of an initial.
		key = tokens[len(tokens)-1] + "_" + tokens[0]
	default:
		first := []rune(tokens[0])
		key = tokens[len(tokens)-1] + "_" + string(first[0])
	}

	return strings.ReplaceAll(foldASCII(key), "-", "_")
}

// foldASCII transliterates a string to ASCII: ligatures via the table,
// accented characters via decomposition, and anything still non-ASCII is
// dropped.
func foldASCII(s string) string {
	s = asciiLigatures.Replace(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
