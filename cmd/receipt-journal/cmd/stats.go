package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/beancount"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/config"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/db"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/pathutil"
)

var (
	statsVendor string
	statsYear   string
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display learned vendor statistics",
	Long: `Display statistics about the learned vendor history.

Shows:
- Total number of vendors
- Total number of distinct accounts
- Total number of confirmations
- Last confirmation time and vendor
- Last ledger export time

With --year, lists the exported monthly Beancount files under LEDGER_ROOT
and the number of receipt entries in each.

Example:
  receipt-journal stats
  receipt-journal stats --vendor "ドトールコーヒー"
  receipt-journal stats --year 2025`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsVendor, "vendor", "", "Show the confirmed accounts of one vendor")
	statsCmd.Flags().StringVar(&statsYear, "year", "", "List the exported ledger months of a year (YYYY)")
	statsCmd.MarkFlagsMutuallyExclusive("vendor", "year")
}

func runStats(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	slog.Info("Loading configuration")

	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if statsYear != "" {
		runLedgerStats(cmd.OutOrStdout(), cfg)
		return
	}

	// Validate required fields
	if err := cfg.Validate([]string{"history", "dbPath"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	// Open database connection
	dbPath := pathutil.New(pathutil.Config{
		LedgerRoot:   cfg.Journal.LedgerRoot,
		DatabasePath: cfg.History.DBPath,
	}).GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(ctx, dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewVendorHistory(conn)
	out := cmd.OutOrStdout()

	if statsVendor != "" {
		counts, err := history.AccountCounts(ctx, statsVendor)
		exitOnError(err, "failed to read vendor history")
		fmt.Fprintf(out, "\n=== %s ===\n", statsVendor)
		printAccountCounts(out, counts)
		fmt.Fprintln(out)
		return
	}

	stats, err := history.GetStats(ctx)
	exitOnError(err, "failed to get statistics")

	// Display statistics
	fmt.Fprintln(out, "\n=== Vendor History ===")
	fmt.Fprintf(out, "Database:              %s\n", conn.GetPath())
	fmt.Fprintf(out, "Vendors:               %d\n", stats.TotalVendors)
	fmt.Fprintf(out, "Accounts:              %d\n", stats.TotalAccounts)
	fmt.Fprintf(out, "Confirmations:         %d\n", stats.TotalConfirmations)

	if stats.LastConfirmed.Valid {
		fmt.Fprintf(out, "Last confirmed:        %s\n", stats.LastConfirmed.String)
		if vendor, err := history.GetMetadata(ctx, db.MetadataLastConfirmedVendor); err == nil && vendor != "" {
			fmt.Fprintf(out, "Last vendor:           %s\n", vendor)
		}
	} else {
		fmt.Fprintf(out, "Last confirmed:        (never)\n")
	}

	if exported, err := history.GetMetadata(ctx, db.MetadataLastExport); err == nil && exported != "" {
		fmt.Fprintf(out, "Last export:           %s\n", exported)
	}

	fmt.Fprintln(out)

	slog.Info("Statistics displayed successfully")
}

func printAccountCounts(w io.Writer, counts []db.AccountCount) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "(no confirmations)")
		return
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	for _, c := range counts {
		fmt.Fprintf(w, "%-12s %4d  (%.0f%%)  last %s\n",
			c.Account, c.Count, float64(c.Count)*100/float64(total), c.LastConfirmedAt.Format("2006-01-02"))
	}
}

// monthSummary is the number of receipt entries in one monthly file.
type monthSummary struct {
	Month   string
	Entries int
}

func runLedgerStats(out io.Writer, cfg *config.Config) {
	if err := cfg.Validate([]string{"journal", "ledgerRoot"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	paths := pathutil.New(pathutil.Config{LedgerRoot: cfg.Journal.LedgerRoot})
	repo := beancount.NewFileSystemRepository(paths, cfg.Journal.Currency)

	months, err := ledgerSummary(repo, statsYear)
	exitOnError(err, "failed to read ledger")

	fmt.Fprintf(out, "\n=== Ledger %s (%s) ===\n", statsYear, paths.GetYearDir(statsYear))
	if len(months) == 0 {
		fmt.Fprintln(out, "(no exported months)")
	}
	total := 0
	for _, m := range months {
		fmt.Fprintf(out, "%s  %4d entries\n", m.Month, m.Entries)
		total += m.Entries
	}
	fmt.Fprintf(out, "Total:    %4d entries\n\n", total)
}

// ledgerSummary counts the exported receipt entries per month of year.
func ledgerSummary(repo beancount.Repository, year string) ([]monthSummary, error) {
	months, err := repo.GetMonthFilesInYear(year)
	if err != nil {
		return nil, err
	}

	summary := make([]monthSummary, 0, len(months))
	for _, month := range months {
		if !repo.MonthFileExists(month) {
			continue
		}
		content, err := repo.ReadMonthFile(month)
		if err != nil {
			return nil, err
		}
		summary = append(summary, monthSummary{Month: month, Entries: countEntries(content)})
	}
	return summary, nil
}

func countEntries(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, ";") && strings.HasSuffix(strings.TrimSpace(line), "#receipt") {
			n++
		}
	}
	return n
}
