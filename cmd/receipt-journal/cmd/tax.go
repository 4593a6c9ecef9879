package cmd

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/tax"
)

var (
	taxDate      string
	taxAmount    string
	taxRate      string
	taxRounding  string
	taxPayee     string
	taxQualified bool
	taxDocType   string
)

// taxCmd groups the tax calculators.
var taxCmd = &cobra.Command{
	Use:   "tax",
	Short: "Japanese consumption tax, withholding and stamp duty calculators",
}

var taxRateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Show the consumption tax rates in force on a date",
	Example: `  receipt-journal tax rate --date 2019-09-30
  receipt-journal tax rate --date 2025-01-05`,
	Run: runTaxRate,
}

var taxIncludedCmd = &cobra.Command{
	Use:     "included",
	Short:   "Split a tax-inclusive total into subtotal and tax",
	Example: `  receipt-journal tax included --amount ¥1,175 --rate 0.10`,
	Run:     runTaxSplit(tax.FromTaxIncluded),
}

var taxExcludedCmd = &cobra.Command{
	Use:     "excluded",
	Short:   "Add tax to a pre-tax subtotal",
	Example: `  receipt-journal tax excluded --amount 1000 --rate 0.08 --rounding round`,
	Run:     runTaxSplit(tax.FromTaxExcluded),
}

var taxWithholdingCmd = &cobra.Command{
	Use:   "withholding",
	Short: "Income tax to withhold from a payment",
	Example: `  receipt-journal tax withholding --amount 1500000
  receipt-journal tax withholding --amount 300000 --payee corporate --qualified`,
	Run: runTaxWithholding,
}

var taxStampCmd = &cobra.Command{
	Use:     "stamp",
	Short:   "Revenue stamp duty for a document",
	Example: `  receipt-journal tax stamp --amount 120000`,
	Run:     runTaxStamp,
}

func init() {
	taxRateCmd.Flags().StringVar(&taxDate, "date", "", "Date (YYYY-MM-DD); default is today")

	for _, c := range []*cobra.Command{taxIncludedCmd, taxExcludedCmd} {
		c.Flags().StringVar(&taxAmount, "amount", "", "Amount in yen (required)")
		c.Flags().StringVar(&taxRate, "rate", "", "Tax rate, e.g. 0.10; default is the rate in force today")
		c.Flags().StringVar(&taxRounding, "rounding", "floor", "Rounding mode (floor|round|ceil)")
		c.MarkFlagRequired("amount")
	}

	taxWithholdingCmd.Flags().StringVar(&taxAmount, "amount", "", "Payment in yen (required)")
	taxWithholdingCmd.Flags().StringVar(&taxPayee, "payee", string(tax.PayeeIndividual), "Payee type (individual|corporate)")
	taxWithholdingCmd.Flags().BoolVar(&taxQualified, "qualified", false, "Payee issues qualified invoices")
	taxWithholdingCmd.MarkFlagRequired("amount")

	taxStampCmd.Flags().StringVar(&taxAmount, "amount", "", "Amount stated on the document (required)")
	taxStampCmd.Flags().StringVar(&taxDocType, "type", tax.DocumentReceipt, "Document type")
	taxStampCmd.MarkFlagRequired("amount")

	taxCmd.AddCommand(taxRateCmd, taxIncludedCmd, taxExcludedCmd, taxWithholdingCmd, taxStampCmd)
}

type rateOutput struct {
	Date         string           `json:"date"`
	StandardRate decimal.Decimal  `json:"standardRate"`
	ReducedRate  *decimal.Decimal `json:"reducedRate"`
}

func runTaxRate(cmd *cobra.Command, args []string) {
	day := time.Now()
	if taxDate != "" {
		parsed, err := time.Parse("2006-01-02", taxDate)
		exitOnError(err, "invalid --date")
		day = parsed
	}

	out := rateOutput{
		Date:         day.Format("2006-01-02"),
		StandardRate: tax.RateForDate(day),
	}
	if tax.ReducedRateAvailable(day) {
		reduced := tax.ReducedRate
		out.ReducedRate = &reduced
	}

	exitOnError(printJSON(cmd.OutOrStdout(), out), "failed to write output")
}

func runTaxSplit(split func(int64, decimal.Decimal, tax.RoundingMode) tax.Breakdown) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		amount, err := parseAmountFlag(taxAmount)
		exitOnError(err, "invalid --amount")

		rate := tax.RateForDate(time.Now())
		if taxRate != "" {
			rate, err = decimal.NewFromString(taxRate)
			exitOnError(err, "invalid --rate")
		}

		mode, err := tax.ParseRoundingMode(taxRounding)
		exitOnError(err, "invalid --rounding")

		exitOnError(printJSON(cmd.OutOrStdout(), split(amount, rate, mode)), "failed to write output")
	}
}

func runTaxWithholding(cmd *cobra.Command, args []string) {
	amount, err := parseAmountFlag(taxAmount)
	exitOnError(err, "invalid --amount")

	payee := tax.PayeeType(taxPayee)
	if payee != tax.PayeeIndividual && payee != tax.PayeeCorporate {
		exitOnError(fmt.Errorf("unknown payee type %q", taxPayee), "invalid --payee")
	}

	withheld := tax.WithholdingTax(amount, payee, taxQualified)
	exitOnError(printJSON(cmd.OutOrStdout(), map[string]int64{
		"amount":      amount,
		"withholding": withheld,
		"net":         amount - withheld,
	}), "failed to write output")
}

func runTaxStamp(cmd *cobra.Command, args []string) {
	amount, err := parseAmountFlag(taxAmount)
	exitOnError(err, "invalid --amount")

	exitOnError(printJSON(cmd.OutOrStdout(), map[string]any{
		"documentType": taxDocType,
		"amount":       amount,
		"stampDuty":    tax.StampDuty(taxDocType, amount),
	}), "failed to write output")
}

// parseAmountFlag accepts receipt-style amounts such as "¥1,175" or "１１７５円".
func parseAmountFlag(s string) (int64, error) {
	amount := receipt.ParseYen(s)
	if amount == 0 && !isZero(s) {
		return 0, fmt.Errorf("not an amount: %q", s)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount: %q", s)
	}
	return amount, nil
}

func isZero(s string) bool {
	for _, r := range s {
		switch r {
		case '0', '０', '¥', '￥', '円', ',', ' ':
		default:
			return false
		}
	}
	return s != ""
}
