package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/jptext"
)

// parkingKeywords mark a receipt as a parking receipt. Matched on the text key.
var parkingKeywords = []string{
	"タイムズ", "times", "パーキング", "parking", "駐車場", "駐車料金", "駐車時間",
	"入庫", "出庫", "リパーク", "npc24", "パーク24", "コインパーク",
}

// Parse extracts structured fields from recognized receipt text. It never
// fails: fields that cannot be found are left nil.
func Parse(text string) ParsedReceipt {
	normalized := normalize(text)
	if IsParking(normalized) {
		return parseParking(normalized)
	}
	return parseGeneral(normalized)
}

// IsParking reports whether text carries any parking keyword.
func IsParking(text string) bool {
	_, ok := jptext.ContainsAny(jptext.Key(text), parkingKeywords)
	return ok
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return jptext.Fold(text)
}

// lines returns the trimmed, non-empty lines of text.
func lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// rule is one named extraction strategy. Rules are tried in order and the
// first one that yields a value wins.
type rule[T any] struct {
	name    string
	extract func(text string) (T, bool)
}

func firstMatch[T any](text string, rules []rule[T]) (T, bool) {
	for _, r := range rules {
		if v, ok := r.extract(text); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// amountTail follows a label: an optional parenthetical such as "(10%)" or
// "(税込)", an optional bare rate, an optional colon and currency sign, then digits.
const amountTail = `\s*(?:\([^)\n]*\))?\s*(?:\d{1,2}\s*%\s*(?:対象)?)?\s*:?\s*[¥$]?\s*(\d[\d,]*)`

func labelled(label string) *regexp.Regexp {
	return regexp.MustCompile(label + amountTail)
}

// amountRule returns the first amount following the label.
func amountRule(name string, re *regexp.Regexp) rule[int64] {
	return rule[int64]{name: name, extract: func(text string) (int64, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		return parseDigits(m[len(m)-1])
	}}
}

// lastAmountRule returns the amount of the last occurrence of any of the
// labels in text.
func lastAmountRule(name string, res ...*regexp.Regexp) rule[int64] {
	return rule[int64]{name: name, extract: func(text string) (int64, bool) {
		pos, value, found := -1, int64(0), false
		for _, re := range res {
			for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
				if loc[0] <= pos {
					continue
				}
				start, end := loc[len(loc)-2], loc[len(loc)-1]
				if n, ok := parseDigits(text[start:end]); ok {
					pos, value, found = loc[0], n, true
				}
			}
		}
		return value, found
	}}
}

var (
	dateYMD   = regexp.MustCompile(`(\d{4})\s*[年/\-.]\s*(\d{1,2})\s*[月/\-.]\s*(\d{1,2})`)
	dateShort = regexp.MustCompile(`(?:^|[^\d])(\d{2})\s*[年/\-.]\s*(\d{1,2})\s*[月/\-.]\s*(\d{1,2})(?:[^\d]|$)`)
	dateReiwa = regexp.MustCompile(`(?:令和|R)\s*(\d{1,2}|元)\s*[年.]\s*(\d{1,2})\s*[月.]\s*(\d{1,2})`)
)

// reiwaOffset converts a Reiwa year to the Gregorian year (令和1年 = 2019).
const reiwaOffset = 2018

var dateRules = []rule[string]{
	{name: "yyyy-mm-dd", extract: func(text string) (string, bool) {
		return dateFrom(dateYMD, text, func(y int) int { return y })
	}},
	{name: "reiwa", extract: func(text string) (string, bool) {
		return dateFrom(dateReiwa, text, func(y int) int { return reiwaOffset + y })
	}},
	{name: "yy-mm-dd", extract: func(text string) (string, bool) {
		return dateFrom(dateShort, text, func(y int) int { return 2000 + y })
	}},
}

// dateFrom returns the first match of re that forms a valid calendar date.
func dateFrom(re *regexp.Regexp, text string, year func(int) int) (string, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		y := 1
		if m[1] != "元" {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			y = n
		}
		month, err1 := strconv.Atoi(m[2])
		day, err2 := strconv.Atoi(m[3])
		if err1 != nil || err2 != nil {
			continue
		}
		if s, ok := validDate(year(y), month, day); ok {
			return s, true
		}
	}
	return "", false
}

func validDate(y, m, d int) (string, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

func extractDate(text string) *string {
	if s, ok := firstMatch(text, dateRules); ok {
		return strPtr(s)
	}
	return nil
}
