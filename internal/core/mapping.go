package core

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// inferRule maps a normalized header to a field when match returns true.
type inferRule struct {
	field Field
	match func(h string) bool
}

// inferRules are checked in order and the first match wins, so a header
// naming both a shelf and a tier resolves to FieldShelf.
var inferRules = []inferRule{
	{FieldTitle, wordMatcher("title")},
	{FieldAuthor, containsAny("author", "writer")},
	{FieldISBN, wordMatcher("isbn")},
	{FieldCoverURL, containsAny("cover", "image", "thumb")},
	{FieldShelf, containsAny("shelf")},
	{FieldTier, containsAny("tier")},
	{FieldLevel, containsAny("level", "row")},
	{FieldNote, containsAny("note", "remark", "comment")},
}

// InferMapping guesses a field for every header. Headers that match no rule,
// or are blank, map to FieldIgnored. The result depends only on the headers.
func InferMapping(headers []string) HeaderMapping {
	mapping := make(HeaderMapping, len(headers))
	for _, h := range headers {
		mapping[h] = InferField(h)
	}
	return mapping
}

// InferField returns the field a single header most likely holds.
func InferField(header string) Field {
	h := normalizeHeader(header)
	if h == "" {
		return FieldIgnored
	}
	for _, rule := range inferRules {
		if rule.match(h) {
			return rule.field
		}
	}
	return FieldIgnored
}

func normalizeHeader(h string) string {
	return strings.ToLower(NormalizeWhitespace(norm.NFC.String(h)))
}

// NormalizeWhitespace collapses runs of Unicode whitespace to a single space
// and trims both ends.
func NormalizeWhitespace(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(subs ...string) func(string) bool {
	return func(h string) bool {
		for _, sub := range subs {
			if strings.Contains(h, sub) {
				return true
			}
		}
		return false
	}
}

// wordMatcher matches word when it is bounded on both sides by the string
// edges or by a rune that is neither a letter nor a digit.
func wordMatcher(word string) func(string) bool {
	return func(h string) bool {
		for offset := 0; offset <= len(h); {
			i := strings.Index(h[offset:], word)
			if i < 0 {
				return false
			}
			i += offset
			before, _ := utf8.DecodeLastRuneInString(h[:i])
			after, _ := utf8.DecodeRuneInString(h[i+len(word):])
			if !isWordRune(before) && !isWordRune(after) {
				return true
			}
			offset = i + 1
		}
		return false
	}
}

// isWordRune treats utf8.RuneError (returned at the string edges) as a boundary.
func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
