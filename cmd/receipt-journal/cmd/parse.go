package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

// parseCmd represents the parse command.
var parseCmd = &cobra.Command{
	Use:   "parse [file|-]...",
	Short: "Extract structured fields from receipt text",
	Long: `Parse receipt text into structured fields without classifying it.

Prints a JSON array with one parsed receipt per input: receipt type, vendor
or facility, date, amounts, line items and parking times.

Example:
  receipt-journal parse receipt.txt
  pbpaste | receipt-journal parse`,
	Run: runParse,
}

func runParse(cmd *cobra.Command, args []string) {
	texts, err := readInputs(cmd.InOrStdin(), args)
	exitOnError(err, "failed to read receipt text")

	parsed := make([]receipt.ParsedReceipt, len(texts))
	for i, text := range texts {
		parsed[i] = receipt.Parse(text)
	}

	exitOnError(printJSON(cmd.OutOrStdout(), parsed), "failed to write output")
}
