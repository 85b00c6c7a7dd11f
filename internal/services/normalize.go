package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// streetSuffixes maps proper-cased street suffixes to their postal abbreviation.
var streetSuffixes = []struct {
	pattern *regexp.Regexp
	abbrev  string
}{
	{regexp.MustCompile(`\bRoad\b`), "Rd"},
	{regexp.MustCompile(`\bStreet\b`), "St"},
	{regexp.MustCompile(`\bAvenue\b`), "Ave"},
	{regexp.MustCompile(`\bBoulevard\b`), "Blvd"},
	{regexp.MustCompile(`\bDrive\b`), "Dr"},
	{regexp.MustCompile(`\bLane\b`), "Ln"},
	{regexp.MustCompile(`\bCourt\b`), "Ct"},
	{regexp.MustCompile(`\bPlace\b`), "Pl"},
	{regexp.MustCompile(`\bParkway\b`), "Pkwy"},
	{regexp.MustCompile(`\bCircle\b`), "Cir"},
}

// ProperCase upper-cases the first character of each whitespace-separated
// word and lowercases the rest, so "1ST" becomes "1st" rather than "1St".
// Runs of whitespace collapse to a single space.
func ProperCase(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	// cases.Caser keeps state between calls and is not safe for concurrent use
	upper := cases.Upper(language.English)
	lower := cases.Lower(language.English)
	for i, w := range words {
		_, size := utf8.DecodeRuneInString(w)
		words[i] = upper.String(w[:size]) + lower.String(w[size:])
	}
	return strings.Join(words, " ")
}

// AbbreviateAddress proper-cases a street address and shortens common
// street suffixes, e.g. "123 MAIN STREET" becomes "123 Main St".
func AbbreviateAddress(address string) string {
	out := ProperCase(address)
	for _, s := range streetSuffixes {
		out = s.pattern.ReplaceAllString(out, s.abbrev)
	}
	return out
}
