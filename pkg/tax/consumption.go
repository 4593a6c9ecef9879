package tax

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how fractional yen are resolved.
type RoundingMode int

const (
	Floor RoundingMode = iota // 切り捨て
	Round                     // 四捨五入
	Ceil                      // 切り上げ
)

// ParseRoundingMode parses "floor", "round" or "ceil".
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "floor":
		return Floor, nil
	case "round":
		return Round, nil
	case "ceil":
		return Ceil, nil
	}
	return Floor, fmt.Errorf("unknown rounding mode: %s", s)
}

func (m RoundingMode) String() string {
	switch m {
	case Round:
		return "round"
	case Ceil:
		return "ceil"
	default:
		return "floor"
	}
}

func (m RoundingMode) apply(d decimal.Decimal) int64 {
	switch m {
	case Round:
		return d.Round(0).IntPart()
	case Ceil:
		return d.Ceil().IntPart()
	default:
		return d.Floor().IntPart()
	}
}

// TaxType tells whether the stated amount already contains tax.
type TaxType string

const (
	TaxIncluded TaxType = "included"
	TaxExcluded TaxType = "excluded"
)

// Breakdown splits an amount into its pre-tax part and tax.
// Subtotal + TaxAmount == Total always holds.
type Breakdown struct {
	Subtotal  int64           `json:"subtotal"`
	TaxAmount int64           `json:"taxAmount"`
	Total     int64           `json:"total"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	TaxType   TaxType         `json:"taxType"`
}

// FromTaxIncluded splits a tax-inclusive total.
func FromTaxIncluded(total int64, rate decimal.Decimal, mode RoundingMode) Breakdown {
	rate = sanitizeRate(rate)
	subtotal := mode.apply(decimal.NewFromInt(total).Div(decimal.NewFromInt(1).Add(rate)))

	return Breakdown{
		Subtotal:  subtotal,
		TaxAmount: total - subtotal,
		Total:     total,
		TaxRate:   rate,
		TaxType:   TaxIncluded,
	}
}

// FromTaxExcluded adds tax to a pre-tax subtotal.
func FromTaxExcluded(subtotal int64, rate decimal.Decimal, mode RoundingMode) Breakdown {
	rate = sanitizeRate(rate)
	taxAmount := mode.apply(decimal.NewFromInt(subtotal).Mul(rate))

	return Breakdown{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal + taxAmount,
		TaxRate:   rate,
		TaxType:   TaxExcluded,
	}
}

// sanitizeRate maps negative rates to zero so division by (1+rate) stays defined.
func sanitizeRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	return rate
}
