package predict

import (
	"context"
	"errors"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

// Chain asks predictors in order. The first prediction at or above
// MinConfidence wins; otherwise the most confident prediction is returned.
type Chain struct {
	Predictors    []classifier.Predictor
	MinConfidence float64
}

// NewChain creates a Chain, skipping nil predictors.
func NewChain(minConfidence float64, predictors ...classifier.Predictor) *Chain {
	c := &Chain{MinConfidence: minConfidence}
	for _, p := range predictors {
		if p != nil {
			c.Predictors = append(c.Predictors, p)
		}
	}
	return c
}

// Predict implements classifier.Predictor. Errors from individual predictors
// are returned only when no predictor produced a prediction.
func (c *Chain) Predict(ctx context.Context, r receipt.ParsedReceipt) (*classifier.Prediction, error) {
	var (
		best *classifier.Prediction
		errs []error
	)

	for _, p := range c.Predictors {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		prediction, err := p.Predict(ctx, r)
		if err != nil {
			if !errors.Is(err, ErrNoPrediction) {
				errs = append(errs, err)
			}
			continue
		}
		if prediction == nil {
			continue
		}
		if prediction.Confidence >= c.MinConfidence {
			return prediction, nil
		}
		if best == nil || prediction.Confidence > best.Confidence {
			best = prediction
		}
	}

	if best != nil {
		return best, nil
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNoPrediction
}
