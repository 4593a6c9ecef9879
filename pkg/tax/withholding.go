package tax

import "github.com/shopspring/decimal"

// PayeeType distinguishes individual and corporate payees for withholding.
type PayeeType string

const (
	PayeeIndividual PayeeType = "individual"
	PayeeCorporate  PayeeType = "corporate"
)

// WithholdingThreshold is the amount above which individuals are withheld at the higher rate.
const WithholdingThreshold int64 = 1_000_000

var (
	withholdingBaseRate = decimal.RequireFromString("0.1021")
	withholdingHighRate = decimal.RequireFromString("0.2042")
)

// WithholdingTax returns the income tax (including the reconstruction surtax)
// to withhold from a payment, floored to whole yen.
//
// Individuals: 10.21% up to ¥1,000,000 and 20.42% on the excess only.
// Corporations: 10.21% when the payee issues qualified invoices, else 20.42%.
// Unknown payee types are treated as individuals.
func WithholdingTax(amount int64, payee PayeeType, isQualifiedInvoice bool) int64 {
	if amount <= 0 {
		return 0
	}

	gross := decimal.NewFromInt(amount)

	if payee == PayeeCorporate {
		rate := withholdingHighRate
		if isQualifiedInvoice {
			rate = withholdingBaseRate
		}
		return gross.Mul(rate).Floor().IntPart()
	}

	if amount <= WithholdingThreshold {
		return gross.Mul(withholdingBaseRate).Floor().IntPart()
	}

	base := decimal.NewFromInt(WithholdingThreshold).Mul(withholdingBaseRate)
	excess := decimal.NewFromInt(amount - WithholdingThreshold).Mul(withholdingHighRate)
	return base.Add(excess).Floor().IntPart()
}
