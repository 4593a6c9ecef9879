// Package journal assembles proposed journal entries from classified receipts
// and renders them for review.
package journal

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/tax"
)

const (
	// CreditAccountCash is the credit side of every proposed entry.
	CreditAccountCash = "現金"

	// UnknownVendor replaces an empty vendor name.
	UnknownVendor = "店舗名不明"

	// MaxDescriptionLength is the storage width of Entry.Description, in characters.
	MaxDescriptionLength = 100
)

// Entry is a proposed single-line journal entry.
type Entry struct {
	Date          string          `json:"date"`
	Description   string          `json:"description"`
	DebitAccount  string          `json:"debitAccount"`
	CreditAccount string          `json:"creditAccount"`
	Amount        int64           `json:"amount"`
	TaxAmount     int64           `json:"taxAmount"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	IsTaxIncluded bool            `json:"isTaxIncluded"`
	Notes         string          `json:"notes,omitempty"`
}

// Config configures a Builder.
type Config struct {
	Now      func() time.Time // Default: time.Now
	Location *time.Location   // Default: Asia/Tokyo, falling back to UTC
	Rounding tax.RoundingMode // Default: Floor

	// HistoricalRates picks the rate regime in force on the entry date
	// (5% before 2014-04, no reduced rate before 2019-10). Default: flat
	// 10% standard and 8% reduced.
	HistoricalRates bool
}

// Builder turns a parsed receipt and an account decision into an Entry.
type Builder struct {
	now      func() time.Time
	location *time.Location
	rounding tax.RoundingMode
	dated    bool
}

// NewBuilder creates a new Builder.
func NewBuilder(config Config) *Builder {
	now := config.Now
	if now == nil {
		now = time.Now
	}

	loc := config.Location
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation("Asia/Tokyo"); err != nil {
			loc = time.UTC
		}
	}

	return &Builder{
		now:      now,
		location: loc,
		rounding: config.Rounding,
		dated:    config.HistoricalRates,
	}
}

// Build assembles the entry. It never fails: missing fields fall back to the
// placeholder vendor, today's date and a zero amount.
func (b *Builder) Build(r receipt.ParsedReceipt, decision classifier.Decision) Entry {
	day := b.entryDate(r)
	rate := b.taxRate(r, day)

	return Entry{
		Date:          day.Format(time.DateOnly),
		Description:   Description(r),
		DebitAccount:  decision.Account,
		CreditAccount: CreditAccountCash,
		Amount:        r.Total(),
		TaxAmount:     b.taxAmount(r, rate),
		TaxRate:       rate,
		IsTaxIncluded: true,
		Notes:         r.Notes(),
	}
}

// Description renders "<vendor> - <item, item, ...>" cut to MaxDescriptionLength characters.
func Description(r receipt.ParsedReceipt) string {
	vendor := r.Vendor()
	if vendor == "" {
		vendor = UnknownVendor
	}
	return truncate(vendor+" - "+strings.Join(r.ItemNames(), ", "), MaxDescriptionLength)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (b *Builder) entryDate(r receipt.ParsedReceipt) time.Time {
	if r.Date != nil {
		if t, err := time.Parse(time.DateOnly, *r.Date); err == nil {
			return t
		}
	}
	return b.now().In(b.location)
}

// taxRate applies the reduced rate to the whole receipt when any item
// qualifies. With historical rates the reduced rate needs day >= 2019-10-01
// and the standard rate is the one in force on day.
func (b *Builder) taxRate(r receipt.ParsedReceipt, day time.Time) decimal.Decimal {
	if !b.dated || tax.ReducedRateAvailable(day) {
		for _, item := range r.Items {
			if tax.IsReducedTaxItem(item.Name) {
				return tax.ReducedRate
			}
		}
	}
	if b.dated {
		return tax.RateForDate(day)
	}
	return tax.StandardRate
}

func (b *Builder) taxAmount(r receipt.ParsedReceipt, rate decimal.Decimal) int64 {
	if r.TaxAmount != nil && *r.TaxAmount > 0 {
		return *r.TaxAmount
	}
	if r.TotalAmount == nil {
		return 0
	}
	return tax.FromTaxIncluded(*r.TotalAmount, rate, b.rounding).TaxAmount
}
