// Package textutil normalizes free text for keyword routing: case folding,
// diacritic removal and word-boundary phrase matching.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics, so "Hà Nội" and "ha noi" compare
// equal. The Vietnamese "đ" (which has no decomposition) maps to "d".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	out = strings.Map(func(r rune) rune {
		switch r {
		case 'đ', 'Đ':
			return 'd'
		}
		return unicode.ToLower(r)
	}, out)

	return out
}

// Tokens folds s and splits it into words of letters and digits. Apostrophes
// inside a word are dropped ("what's" -> "whats").
func Tokens(s string) []string {
	folded := strings.ReplaceAll(Fold(s), "'", "")
	folded = strings.ReplaceAll(folded, "’", "")

	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContainsPhrase reports whether phrase occurs in text as a run of whole
// words, ignoring case, diacritics and punctuation.
func ContainsPhrase(text, phrase string) bool {
	return IndexPhrase(Tokens(text), Tokens(phrase)) >= 0
}

// ContainsAny reports whether any of the phrases occurs in text.
func ContainsAny(text string, phrases ...string) bool {
	words := Tokens(text)
	for _, p := range phrases {
		if IndexPhrase(words, Tokens(p)) >= 0 {
			return true
		}
	}
	return false
}

// IndexPhrase returns the word index where phrase starts in words, or -1.
func IndexPhrase(words, phrase []string) int {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return -1
	}

outer:
	for i := 0; i+len(phrase) <= len(words); i++ {
		for j, p := range phrase {
			if words[i+j] != p {
				continue outer
			}
		}
		return i
	}

	return -1
}

// Compact folds s and removes every non letter/digit, the lookup key form
// used for tables ("Hà Nội" -> "hanoi", "New York" -> "newyork").
func Compact(s string) string {
	return strings.Join(Tokens(s), "")
}
