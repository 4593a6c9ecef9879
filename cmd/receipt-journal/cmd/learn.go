package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/config"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/db"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/pathutil"
)

var (
	learnVendor  string
	learnAccount string
	learnForget  bool
)

// learnCmd represents the learn command.
var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Record a confirmed account for a vendor",
	Long: `Record that a vendor's receipt was booked to an account.

Once a vendor has enough confirmations (HISTORY_MIN_SAMPLES), the journal
command predicts the account confirmed most often for it.

Example:
  receipt-journal learn --vendor "ドトールコーヒー" --account 会議費
  receipt-journal learn --vendor "ドトールコーヒー" --forget`,
	Run: runLearn,
}

func init() {
	learnCmd.Flags().StringVar(&learnVendor, "vendor", "", "Vendor name as printed on the receipt (required)")
	learnCmd.Flags().StringVar(&learnAccount, "account", "", "Confirmed debit account")
	learnCmd.Flags().BoolVar(&learnForget, "forget", false, "Delete everything learned for the vendor")

	learnCmd.MarkFlagRequired("vendor")
	learnCmd.MarkFlagsMutuallyExclusive("account", "forget")
	learnCmd.MarkFlagsOneRequired("account", "forget")
}

func runLearn(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	dbPath := pathutil.New(pathutil.Config{
		LedgerRoot:   cfg.Journal.LedgerRoot,
		DatabasePath: cfg.History.DBPath,
	}).GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(ctx, dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewVendorHistory(conn)

	if learnForget {
		n, err := history.DeleteVendor(ctx, learnVendor)
		exitOnError(err, "failed to delete vendor history")
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d account(s) for %s\n", n, learnVendor)
		return
	}

	exitOnError(history.RecordConfirmation(ctx, learnVendor, learnAccount), "failed to record confirmation")

	counts, err := history.AccountCounts(ctx, learnVendor)
	exitOnError(err, "failed to read vendor history")

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s -> %s\n", learnVendor, learnAccount)
	printAccountCounts(cmd.OutOrStdout(), counts)

	slog.Info("Confirmation recorded", "vendor", learnVendor, "account", learnAccount)
}
