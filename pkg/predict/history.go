package predict

import (
	"context"
	"fmt"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/db"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

// HistoryStore returns the confirmed accounts for a vendor, most confirmed first.
type HistoryStore interface {
	AccountCounts(ctx context.Context, vendor string) ([]db.AccountCount, error)
}

// HistoryPredictor predicts the account most often confirmed for the vendor.
// Confidence is that account's share of the vendor's confirmations.
type HistoryPredictor struct {
	store      HistoryStore
	minSamples int64
}

// NewHistoryPredictor creates a predictor that needs at least minSamples
// confirmations of a vendor before it predicts.
func NewHistoryPredictor(store HistoryStore, minSamples int) *HistoryPredictor {
	if minSamples < 1 {
		minSamples = 1
	}
	return &HistoryPredictor{store: store, minSamples: int64(minSamples)}
}

// Predict implements classifier.Predictor.
func (h *HistoryPredictor) Predict(ctx context.Context, r receipt.ParsedReceipt) (*classifier.Prediction, error) {
	vendor := r.Vendor()
	if vendor == "" {
		return nil, ErrNoPrediction
	}

	counts, err := h.store.AccountCounts(ctx, vendor)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor history: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	if len(counts) == 0 || total < h.minSamples {
		return nil, ErrNoPrediction
	}

	top := counts[0]
	return &classifier.Prediction{
		Category:   top.Account,
		Confidence: float64(top.Count) / float64(total),
		Reasoning:  fmt.Sprintf("confirmed %d of %d times for this vendor", top.Count, total),
	}, nil
}
