// Package jptext normalizes Japanese OCR text for matching.
package jptext

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Fold converts full-width ASCII (digits, letters, ￥, ：, （）) to half-width
// and half-width katakana to full-width, the canonical form used by the parsers.
// Half-width voiced marks (ｼﾞ) are recomposed into a single rune (ジ).
func Fold(s string) string {
	s = norm.NFC.String(width.Fold.String(s))
	return strings.ReplaceAll(s, "　", " ")
}

// Key returns a matching key: width-folded, lower-cased, katakana mapped to
// hiragana. Two strings that differ only in case, width or kana script share a key.
func Key(s string) string {
	s = strings.ToLower(Fold(s))

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		// ァ (U+30A1) .. ヶ (U+30F6) map onto ぁ (U+3041) .. ゖ (U+3096).
		if r >= 'ァ' && r <= 'ヶ' {
			r -= 0x60
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ContainsAny reports whether key contains the key of any keyword and returns
// the first keyword found. key must already be produced by Key.
func ContainsAny(key string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(key, Key(kw)) {
			return kw, true
		}
	}
	return "", false
}
