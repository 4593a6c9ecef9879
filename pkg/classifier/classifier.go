// Package classifier assigns an expense account to a parsed receipt.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/jptext"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

// DefaultMinConfidence is the lowest prediction confidence that is trusted.
const DefaultMinConfidence = 0.6

// ErrNoPrediction is returned by a Predictor that has nothing to offer.
// It is not treated as a failure.
var ErrNoPrediction = errors.New("no prediction available")

// Source records which stage produced a Decision.
type Source string

const (
	SourceStructural Source = "structural"
	SourcePrediction Source = "prediction"
	SourceKeyword    Source = "keyword"
	SourceDefault    Source = "default"
)

// Prediction is an account suggestion from an external collaborator.
type Prediction struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	TaxNotes   *string  `json:"taxNotes"`
	Sources    []string `json:"sources"`
}

// Predictor suggests an account for a receipt. Implementations may be slow,
// fail or panic; the classifier treats all of these as "no prediction".
type Predictor interface {
	Predict(ctx context.Context, r receipt.ParsedReceipt) (*Prediction, error)
}

// Decision is the chosen account and why it was chosen.
type Decision struct {
	Account    string   `json:"account"`
	Reasoning  string   `json:"reasoning"`
	Source     Source   `json:"source"`
	Confidence float64  `json:"confidence,omitempty"`
	TaxNotes   string   `json:"taxNotes,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

// Config configures a Classifier. Zero values select the defaults.
type Config struct {
	Rules         *RuleSet
	MinConfidence float64
	Logger        *slog.Logger
}

// Classifier decides accounts: structural cues first, then a trusted
// prediction, then the keyword cascade.
type Classifier struct {
	rules         RuleSet
	minConfidence float64
	logger        *slog.Logger
}

// New creates a Classifier.
func New(config Config) *Classifier {
	rules := DefaultRuleSet()
	if config.Rules != nil {
		rules = *config.Rules
	}
	if rules.DefaultAccount == "" {
		rules.DefaultAccount = AccountSupplies
	}

	minConfidence := config.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		rules:         rules,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Classify picks the account for r. prediction may be nil.
func (c *Classifier) Classify(r receipt.ParsedReceipt, prediction *Prediction) Decision {
	if r.ReceiptType == receipt.TypeParking {
		return Decision{
			Account:   AccountTravel,
			Reasoning: "parking receipt auto-detected",
			Source:    SourceStructural,
		}
	}

	if prediction != nil {
		if prediction.Category != "" && prediction.Confidence >= c.minConfidence {
			var taxNotes string
			if prediction.TaxNotes != nil {
				taxNotes = *prediction.TaxNotes
			}
			c.logger.Debug("classifier.prediction.accepted",
				"account", prediction.Category,
				"confidence", prediction.Confidence,
				"tax_notes", taxNotes,
				"sources", prediction.Sources)
			reasoning := prediction.Reasoning
			if reasoning == "" {
				reasoning = fmt.Sprintf("external prediction (confidence %.2f)", prediction.Confidence)
			}
			return Decision{
				Account:    prediction.Category,
				Reasoning:  reasoning,
				Source:     SourcePrediction,
				Confidence: prediction.Confidence,
				TaxNotes:   taxNotes,
				Sources:    prediction.Sources,
			}
		}
		c.logger.Debug("classifier.prediction.rejected",
			"account", prediction.Category,
			"confidence", prediction.Confidence,
			"min_confidence", c.minConfidence)
	}

	return c.Fallback(r)
}

// ClassifyWith consults predictor (which may be nil) and classifies r.
// Parking receipts are decided without calling the predictor. The predictor
// is abandoned when ctx is done; its errors and panics are logged and
// treated as no prediction.
func (c *Classifier) ClassifyWith(ctx context.Context, r receipt.ParsedReceipt, predictor Predictor) Decision {
	if r.ReceiptType == receipt.TypeParking || predictor == nil {
		return c.Classify(r, nil)
	}
	return c.Classify(r, c.predict(ctx, r, predictor))
}

type predictResult struct {
	prediction *Prediction
	err        error
}

func (c *Classifier) predict(ctx context.Context, r receipt.ParsedReceipt, predictor Predictor) *Prediction {
	done := make(chan predictResult, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- predictResult{err: fmt.Errorf("predictor panicked: %v", v)}
			}
		}()
		p, err := predictor.Predict(ctx, r)
		done <- predictResult{prediction: p, err: err}
	}()

	select {
	case res := <-done:
		switch {
		case errors.Is(res.err, ErrNoPrediction):
			c.logger.Debug("classifier.prediction.none", "vendor", r.Vendor())
			return nil
		case res.err != nil:
			c.logger.Warn("classifier.prediction.failed", "vendor", r.Vendor(), "error", res.err)
			return nil
		}
		return res.prediction
	case <-ctx.Done():
		c.logger.Warn("classifier.prediction.timeout", "vendor", r.Vendor(), "error", ctx.Err())
		return nil
	}
}

// Fallback runs the keyword cascade. Keywords are matched against the vendor
// name first and then against the receipt text and item names, so the vendor
// decides whenever it names a category. Co-occurrence rules always look at the
// full text.
func (c *Classifier) Fallback(r receipt.ParsedReceipt) Decision {
	full := matchKey(r)
	for _, key := range []string{jptext.Key(r.Vendor()), full} {
		for _, rule := range c.rules.Rules {
			if matched, ok := rule.match(key, full); ok {
				c.logger.Debug("classifier.keyword.matched",
					"rule", rule.Name,
					"keyword", matched,
					"account", rule.Account)
				return Decision{
					Account:   rule.Account,
					Reasoning: fmt.Sprintf("keyword %q matched rule %s", matched, rule.Name),
					Source:    SourceKeyword,
				}
			}
		}
	}
	return Decision{
		Account:   c.rules.DefaultAccount,
		Reasoning: "no keyword matched; default account",
		Source:    SourceDefault,
	}
}

func matchKey(r receipt.ParsedReceipt) string {
	parts := append([]string{r.Vendor(), r.RawText}, r.ItemNames()...)
	return jptext.Key(strings.Join(parts, "\n"))
}

// match returns the keyword that made the rule match. Keywords are looked up
// in key and co-occurrence terms in full.
func (r Rule) match(key, full string) (string, bool) {
	if kw, ok := jptext.ContainsAny(key, r.Keywords); ok {
		return kw, true
	}
	if len(r.AllOf) == 0 {
		return "", false
	}
	for _, kw := range r.AllOf {
		if !strings.Contains(full, jptext.Key(kw)) {
			return "", false
		}
	}
	return strings.Join(r.AllOf, "+"), true
}
