package receipt

import (
	"math"
	"strconv"
	"strings"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/jptext"
)

// ParseYen converts an amount string such as "¥1,175", "１，１７５円" or "1175"
// to integer yen. Anything unparseable yields 0.
func ParseYen(s string) int64 {
	s = jptext.Fold(s)
	s = strings.NewReplacer("¥", "", "$", "", "円", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil && f > math.MinInt64 && f < math.MaxInt64 {
			return int64(f)
		}
		return 0
	}
	return n
}

// FormatYen renders n with thousands separators.
func FormatYen(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var sb strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	return sign + sb.String()
}

// parseDigits parses a captured digit run with thousands separators.
func parseDigits(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
