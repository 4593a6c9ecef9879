package tax

import (
	"sort"

	"github.com/shopspring/decimal"
)

// InvoiceItem is one line of a qualified invoice.
// A zero TaxRate marks a non-taxable line.
type InvoiceItem struct {
	Amount        int64           `json:"amount"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	IsTaxIncluded bool            `json:"isTaxIncluded"`
}

// RateGroup is the per-rate bucket of an invoice.
type RateGroup struct {
	Rate      decimal.Decimal `json:"rate"`
	Subtotal  int64           `json:"subtotal"`
	TaxAmount int64           `json:"taxAmount"`
}

// InvoiceBreakdown extends Breakdown with per-rate details.
type InvoiceBreakdown struct {
	Breakdown
	StandardTax int64       `json:"standardTax"`
	ReducedTax  int64       `json:"reducedTax"`
	NonTaxable  int64       `json:"nonTaxable"`
	Groups      []RateGroup `json:"groups"`
}

// InvoiceTax aggregates items the way the qualified invoice system requires:
// subtotals are summed per tax rate and tax is rounded once per rate, never
// per line. Tax-included lines contribute their pre-tax subtotal.
func InvoiceTax(items []InvoiceItem, mode RoundingMode) InvoiceBreakdown {
	var nonTaxable int64
	subtotals := make(map[string]int64)
	rates := make(map[string]decimal.Decimal)

	for _, item := range items {
		rate := sanitizeRate(item.TaxRate)
		if rate.IsZero() {
			nonTaxable += item.Amount
			continue
		}

		subtotal := item.Amount
		if item.IsTaxIncluded {
			subtotal = FromTaxIncluded(item.Amount, rate, mode).Subtotal
		}

		key := rate.StringFixed(4)
		subtotals[key] += subtotal
		rates[key] = rate
	}

	result := InvoiceBreakdown{
		NonTaxable: nonTaxable,
		Groups:     make([]RateGroup, 0, len(subtotals)),
	}
	result.TaxType = TaxExcluded
	result.TaxRate = decimal.Zero
	result.Subtotal = nonTaxable

	for key, subtotal := range subtotals {
		rate := rates[key]
		taxAmount := mode.apply(decimal.NewFromInt(subtotal).Mul(rate))

		result.Groups = append(result.Groups, RateGroup{
			Rate:      rate,
			Subtotal:  subtotal,
			TaxAmount: taxAmount,
		})
		result.Subtotal += subtotal
		result.TaxAmount += taxAmount

		switch {
		case rate.Equal(StandardRate):
			result.StandardTax += taxAmount
		case rate.Equal(ReducedRate):
			result.ReducedTax += taxAmount
		}
	}

	// Highest rate first keeps output stable.
	sort.Slice(result.Groups, func(i, j int) bool {
		return result.Groups[i].Rate.GreaterThan(result.Groups[j].Rate)
	})
	if len(result.Groups) > 0 {
		result.TaxRate = result.Groups[0].Rate
	}
	result.Total = result.Subtotal + result.TaxAmount

	return result
}
