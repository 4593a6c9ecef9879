// Package pipeline turns recognized receipt text into proposed journal entries.
package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/journal"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

// Config configures a Pipeline. Zero values select the defaults.
type Config struct {
	Classifier     *classifier.Classifier
	Builder        *journal.Builder
	Predictor      classifier.Predictor // Optional
	PredictTimeout time.Duration        // Default: 10 seconds
	Concurrency    int                  // Default: GOMAXPROCS
	Logger         *slog.Logger
}

// Result is the outcome of one receipt.
type Result struct {
	Receipt  receipt.ParsedReceipt `json:"receipt"`
	Decision classifier.Decision   `json:"decision"`
	Entry    journal.Entry         `json:"entry"`
}

// Pipeline wires parsing, prediction, classification and entry building.
type Pipeline struct {
	classifier     *classifier.Classifier
	builder        *journal.Builder
	predictor      classifier.Predictor
	predictTimeout time.Duration
	concurrency    int
	logger         *slog.Logger
}

// New creates a Pipeline.
func New(config Config) *Pipeline {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := config.Classifier
	if c == nil {
		c = classifier.New(classifier.Config{Logger: logger})
	}

	b := config.Builder
	if b == nil {
		b = journal.NewBuilder(journal.Config{})
	}

	timeout := config.PredictTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	return &Pipeline{
		classifier:     c,
		builder:        b,
		predictor:      config.Predictor,
		predictTimeout: timeout,
		concurrency:    concurrency,
		logger:         logger,
	}
}

// Process runs one receipt through the pipeline. It always yields an entry:
// a failing or slow predictor only costs the prediction.
func (p *Pipeline) Process(ctx context.Context, text string) Result {
	r := receipt.Parse(text)

	predictCtx, cancel := context.WithTimeout(ctx, p.predictTimeout)
	decision := p.classifier.ClassifyWith(predictCtx, r, p.predictor)
	cancel()

	entry := p.builder.Build(r, decision)

	p.logger.Debug("pipeline.process.done",
		"receipt_type", r.ReceiptType,
		"vendor", r.Vendor(),
		"account", decision.Account,
		"source", decision.Source,
		"amount", entry.Amount,
		"tax_amount", entry.TaxAmount)

	return Result{Receipt: r, Decision: decision, Entry: entry}
}

// ProcessAll processes independent receipts concurrently. Results are in
// input order. The only error is ctx being done before all receipts started.
func (p *Pipeline) ProcessAll(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, text := range texts {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Process(gctx, text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info("pipeline.batch.done", "receipts", len(texts))
	return results, nil
}
