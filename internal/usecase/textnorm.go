package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package-level compiled patterns for performance
var (
	punctuationRegex    = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// diacriticFold decomposes and strips combining marks ("café" → "cafe").
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, collapses punctuation to
// whitespace and squeezes runs of spaces. This is the comparison form used
// by the scorer and for canonical grouping keys.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(diacriticFold, s)
	if err != nil {
		folded = s
	}
	result := strings.ToLower(folded)
	result = punctuationRegex.ReplaceAllString(result, " ")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// NormalizeCompact is Normalize with spaces removed, used to catch
// concatenated brand spellings ("CocaCola" vs "Coca Cola").
func NormalizeCompact(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "")
}

// Tokens returns the normalized whitespace tokens of s, dropping
// single-character leftovers.
func Tokens(s string) []string {
	var tokens []string
	for _, tok := range strings.Fields(Normalize(s)) {
		if len(tok) > 1 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// CanonicalKey is the case/diacritic/punctuation-insensitive grouping key
// used to dedupe identical items within a batch.
func CanonicalKey(name, brand string) string {
	return strings.TrimSpace(Normalize(brand) + " " + Normalize(name))
}

// tokenSet builds a membership set from normalized tokens.
func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// overlapCount counts how many tokens of a appear in b.
func overlapCount(a []string, b map[string]struct{}) int {
	n := 0
	seen := make(map[string]struct{}, len(a))
	for _, t := range a {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}
