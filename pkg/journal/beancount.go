package journal

import (
	"fmt"
	"strings"
)

const (
	defaultCashAccount = "Assets:Current:Cash"
	unmappedPrefix     = "Expenses:Unmapped:"
)

// Transaction is a Beancount transaction.
type Transaction struct {
	Date      string
	Narration string
	Payee     string
	Tags      []string
	Postings  []Posting
}

// Posting is one leg of a Transaction.
type Posting struct {
	Account  string
	Amount   int64
	Currency string
	Comment  string
}

// Converter renders proposed entries as Beancount transactions.
type Converter struct {
	mapper   *Mapper
	currency string
}

// NewConverter creates a new Converter. mapper may be nil, in which case
// every expense account is booked as unmapped.
func NewConverter(mapper *Mapper, currency string) *Converter {
	if currency == "" {
		currency = "JPY"
	}
	return &Converter{
		mapper:   mapper,
		currency: currency,
	}
}

// ToBeancount converts an entry to a balanced transaction: the expense net of
// tax, the tax on its own account when one is mapped for the rate, and the
// cash credit.
func (c *Converter) ToBeancount(e Entry) Transaction {
	debit := c.mapper.GetBeancountAccount(e.DebitAccount)
	if debit == "" {
		debit = unmappedPrefix + sanitizeAccountName(e.DebitAccount)
	}

	var postings []Posting
	taxAccount := c.mapper.GetTaxAccount(e.TaxRate)
	if taxAccount != nil && e.TaxAmount > 0 {
		net := e.Amount
		if e.IsTaxIncluded {
			net -= e.TaxAmount
		}
		postings = append(postings,
			Posting{Account: debit, Amount: net, Currency: c.currency, Comment: e.DebitAccount},
			Posting{
				Account:  *taxAccount,
				Amount:   e.TaxAmount,
				Currency: c.currency,
				Comment:  fmt.Sprintf("消費税 %s%%", e.TaxRate.Shift(2).String()),
			},
		)
	} else {
		postings = append(postings, Posting{Account: debit, Amount: e.Amount, Currency: c.currency, Comment: e.DebitAccount})
	}

	total := int64(0)
	for _, p := range postings {
		total += p.Amount
	}
	postings = append(postings, Posting{
		Account:  c.mapper.GetBeancountAccountWithFallback(e.CreditAccount, defaultCashAccount),
		Amount:   -total,
		Currency: c.currency,
		Comment:  e.CreditAccount,
	})

	return Transaction{
		Date:      e.Date,
		Narration: e.Description,
		Tags:      []string{"receipt"},
		Postings:  postings,
	}
}

// FormatTransaction formats a Beancount transaction as a string.
func (c *Converter) FormatTransaction(txn Transaction) string {
	var sb strings.Builder

	sb.WriteString(txn.Date)
	sb.WriteString(" *")
	if txn.Payee != "" {
		sb.WriteString(fmt.Sprintf(" %q", txn.Payee))
	}
	sb.WriteString(fmt.Sprintf(" \"%s\"", escapeString(txn.Narration)))
	if len(txn.Tags) > 0 {
		sb.WriteString(" #")
		sb.WriteString(strings.Join(txn.Tags, " #"))
	}
	sb.WriteString("\n")

	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		// Right-align amount (typical Beancount style)
		sb.WriteString(strings.Repeat(" ", max(1, 60-len(posting.Account))))
		sb.WriteString(fmt.Sprintf("%d %s", posting.Amount, posting.Currency))

		if posting.Comment != "" {
			sb.WriteString(fmt.Sprintf(" ; %s", posting.Comment))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func sanitizeAccountName(name string) string {
	return strings.ReplaceAll(name, " ", "")
}

func escapeString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
