package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/beancount"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/config"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/db"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/journal"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/pathutil"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/pipeline"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/predict"
)

const (
	formatJSON      = "json"
	formatBeancount = "beancount"
)

var (
	outputFormat string
	noHistory    bool
	exportLedger bool
)

// journalCmd represents the journal command.
var journalCmd = &cobra.Command{
	Use:   "journal [file|-]...",
	Short: "Propose journal entries from receipt text",
	Long: `Propose a journal entry for each receipt text file.

This command:
1. Parses each receipt (general or parking)
2. Asks the learned vendor history and the remote classifier for an account
3. Falls back to keyword rules when no prediction is confident enough
4. Computes consumption tax and prints the proposed entries
5. Optionally appends them to monthly Beancount files under LEDGER_ROOT

Example:
  receipt-journal journal receipt.txt
  cat receipt.txt | receipt-journal journal --format beancount
  receipt-journal journal --export scans/*.txt`,
	Run: runJournal,
}

func init() {
	journalCmd.Flags().StringVar(&outputFormat, "format", formatJSON, "Output format (json|beancount)")
	journalCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not consult the learned vendor history")
	journalCmd.Flags().BoolVar(&exportLedger, "export", false, "Append entries to monthly Beancount files under LEDGER_ROOT")
}

func runJournal(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	if outputFormat != formatJSON && outputFormat != formatBeancount {
		exitOnError(fmt.Errorf("unknown format %q", outputFormat), "invalid flag")
	}

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if exportLedger {
		if err := cfg.Validate([]string{"journal", "ledgerRoot"}); err != nil {
			exitOnError(err, "invalid configuration")
		}
	}

	texts, err := readInputs(cmd.InOrStdin(), args)
	exitOnError(err, "failed to read receipt text")

	paths := pathutil.New(pathutil.Config{
		LedgerRoot:   cfg.Journal.LedgerRoot,
		DatabasePath: cfg.History.DBPath,
	})

	var history *db.VendorHistory
	if !noHistory {
		slog.Debug("Opening database", "path", paths.GetDatabasePath())
		conn, err := db.Open(ctx, paths.GetDatabasePath())
		exitOnError(err, "failed to open database")
		defer conn.Close()
		history = db.NewVendorHistory(conn)
	}

	p, err := newPipeline(cfg, history)
	exitOnError(err, "failed to initialize pipeline")

	slog.Info("Processing receipts", "count", len(texts))
	results, err := p.ProcessAll(ctx, texts)
	exitOnError(err, "failed to process receipts")

	var cvtr *journal.Converter
	if outputFormat == formatBeancount || exportLedger {
		mapper, err := journal.NewMapper(cfg.Journal.MappingPath)
		exitOnError(err, "failed to load account mapping")
		rules, err := loadRules(cfg)
		exitOnError(err, "failed to load account rules")
		for _, account := range unmappedAccounts(mapper, rules) {
			slog.Warn("Account has no Beancount mapping", "account", account, "mapping", cfg.Journal.MappingPath)
		}
		cvtr = journal.NewConverter(mapper, cfg.Journal.Currency)
	}

	exitOnError(writeResults(cmd.OutOrStdout(), results, outputFormat, cvtr), "failed to write output")

	if exportLedger {
		repo := beancount.NewFileSystemRepository(paths, cfg.Journal.Currency)
		n, err := exportResults(repo, cvtr, results)
		exitOnError(err, "failed to export entries")
		slog.Info("Exported entries", "count", n, "root", paths.GetLedgerRoot())

		if history != nil {
			exitOnError(recordExport(ctx, history, time.Now()), "failed to record export time")
		}
	}
}

// loadRules returns the rule file's cascade, or the built-in one.
func loadRules(cfg *config.Config) (classifier.RuleSet, error) {
	if cfg.Classifier.RulesPath == "" {
		return classifier.DefaultRuleSet(), nil
	}
	return classifier.LoadRules(cfg.Classifier.RulesPath)
}

// unmappedAccounts lists the accounts an entry can carry that the mapping
// does not know, sorted.
func unmappedAccounts(mapper *journal.Mapper, rules classifier.RuleSet) []string {
	accounts := []string{rules.DefaultAccount, journal.CreditAccountCash}
	for _, r := range rules.Rules {
		accounts = append(accounts, r.Account)
	}
	slices.Sort(accounts)

	var missing []string
	for _, a := range slices.Compact(accounts) {
		if a != "" && !mapper.HasMapping(a) {
			missing = append(missing, a)
		}
	}
	return missing
}

func recordExport(ctx context.Context, history *db.VendorHistory, at time.Time) error {
	return history.SetMetadata(ctx, db.MetadataLastExport, at.Format(time.RFC3339))
}

// newPipeline wires the classifier, predictors and builder from configuration.
// history may be nil.
func newPipeline(cfg *config.Config, history *db.VendorHistory) (*pipeline.Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	rules, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}

	var predictors []classifier.Predictor
	if history != nil {
		predictors = append(predictors, predict.NewHistoryPredictor(history, cfg.History.MinSamples))
	}
	if cfg.Classifier.URL != "" {
		predictors = append(predictors, predict.NewHTTPClient(predict.ClientConfig{
			URL:     cfg.Classifier.URL,
			APIKey:  cfg.Classifier.APIKey,
			Timeout: cfg.Classifier.Timeout,
		}))
	}

	var predictor classifier.Predictor
	if len(predictors) > 0 {
		predictor = predict.NewChain(cfg.Classifier.MinConfidence, predictors...)
	}

	return pipeline.New(pipeline.Config{
		Classifier: classifier.New(classifier.Config{
			Rules:         &rules,
			MinConfidence: cfg.Classifier.MinConfidence,
		}),
		Builder: journal.NewBuilder(journal.Config{
			Location:        loc,
			Rounding:        cfg.Journal.Rounding,
			HistoricalRates: cfg.Journal.Historical,
		}),
		Predictor:      predictor,
		PredictTimeout: cfg.Classifier.Timeout,
	}), nil
}

// writeResults prints results as a JSON array or as Beancount transactions.
func writeResults(w io.Writer, results []pipeline.Result, format string, cvtr *journal.Converter) error {
	if format != formatBeancount {
		return printJSON(w, results)
	}

	for i, r := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "; %s\n%s", decisionComment(r.Decision), cvtr.FormatTransaction(cvtr.ToBeancount(r.Entry))); err != nil {
			return err
		}
	}
	return nil
}

// exportResults appends each entry to the month file of its date.
func exportResults(repo beancount.Repository, cvtr *journal.Converter, results []pipeline.Result) (int, error) {
	for i, r := range results {
		month, err := pathutil.MonthKey(r.Entry.Date)
		if err != nil {
			return i, err
		}
		if !repo.MonthFileExists(month) {
			slog.Info("Creating month file", "month", month)
		}

		comments := []string{decisionComment(r.Decision)}
		if r.Entry.Notes != "" {
			comments = append(comments, r.Entry.Notes)
		}

		if err := repo.AppendTransaction(month, cvtr.FormatTransaction(cvtr.ToBeancount(r.Entry)), comments...); err != nil {
			return i, fmt.Errorf("failed to append entry %d: %w", i+1, err)
		}
		slog.Debug("Appended entry", "month", month, "account", r.Entry.DebitAccount, "amount", r.Entry.Amount)
	}
	return len(results), nil
}

func decisionComment(d classifier.Decision) string {
	return fmt.Sprintf("%s (%s): %s", d.Account, d.Source, d.Reasoning)
}
