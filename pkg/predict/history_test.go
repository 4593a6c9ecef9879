package predict

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/db"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

type fakeStore struct {
	counts []db.AccountCount
	err    error
}

func (f fakeStore) AccountCounts(context.Context, string) ([]db.AccountCount, error) {
	return f.counts, f.err
}

func vendorReceipt(vendor string) receipt.ParsedReceipt {
	return receipt.ParsedReceipt{ReceiptType: receipt.TypeGeneral, VendorOrFacilityName: &vendor}
}

func TestHistoryPredictor(t *testing.T) {
	store := fakeStore{counts: []db.AccountCount{
		{Account: "会議費", Count: 3},
		{Account: "接待交際費", Count: 1},
	}}

	p, err := NewHistoryPredictor(store, 2).Predict(context.Background(), vendorReceipt("ドトール"))

	require.NoError(t, err)
	assert.Equal(t, "会議費", p.Category)
	assert.InDelta(t, 0.75, p.Confidence, 1e-9)
	assert.Equal(t, "confirmed 3 of 4 times for this vendor", p.Reasoning)
}

func TestHistoryPredictorNoPrediction(t *testing.T) {
	tests := []struct {
		name   string
		store  fakeStore
		vendor string
	}{
		{"too few samples", fakeStore{counts: []db.AccountCount{{Account: "会議費", Count: 1}}}, "ドトール"},
		{"unknown vendor", fakeStore{}, "ドトール"},
		{"empty vendor", fakeStore{counts: []db.AccountCount{{Account: "会議費", Count: 5}}}, "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHistoryPredictor(tt.store, 2).Predict(context.Background(), vendorReceipt(tt.vendor))
			assert.ErrorIs(t, err, ErrNoPrediction)
		})
	}
}

func TestHistoryPredictorStoreError(t *testing.T) {
	store := fakeStore{err: errors.New("database is locked")}

	_, err := NewHistoryPredictor(store, 1).Predict(context.Background(), vendorReceipt("ドトール"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPrediction)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestHistoryPredictorWithSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer conn.Close()

	history := db.NewVendorHistory(conn)
	require.NoError(t, history.RecordConfirmation(ctx, "タリーズコーヒー", "会議費"))
	require.NoError(t, history.RecordConfirmation(ctx, "タリーズコーヒー", "会議費"))

	p, err := NewHistoryPredictor(history, 2).Predict(ctx, vendorReceipt("ﾀﾘｰｽﾞｺｰﾋｰ"))

	require.NoError(t, err)
	assert.Equal(t, "会議費", p.Category)
	assert.InDelta(t, 1.0, p.Confidence, 1e-9)
}

type stubPredictor struct {
	prediction *classifier.Prediction
	err        error
	calls      int
}

func (s *stubPredictor) Predict(context.Context, receipt.ParsedReceipt) (*classifier.Prediction, error) {
	s.calls++
	return s.prediction, s.err
}

func TestChain(t *testing.T) {
	low := &stubPredictor{prediction: &classifier.Prediction{Category: "会議費", Confidence: 0.5}}
	high := &stubPredictor{prediction: &classifier.Prediction{Category: "接待交際費", Confidence: 0.9}}
	lower := &stubPredictor{prediction: &classifier.Prediction{Category: "消耗品費", Confidence: 0.3}}
	none := &stubPredictor{err: ErrNoPrediction}
	failing := &stubPredictor{err: errors.New("service unavailable")}

	tests := []struct {
		name       string
		predictors []classifier.Predictor
		category   string
		err        error
	}{
		{"first confident wins", []classifier.Predictor{none, high, low}, "接待交際費", nil},
		{"low then high", []classifier.Predictor{low, high}, "接待交際費", nil},
		{"most confident of low predictions", []classifier.Predictor{lower, low}, "会議費", nil},
		{"prediction beats failure", []classifier.Predictor{failing, low}, "会議費", nil},
		{"nothing to offer", []classifier.Predictor{none, none}, "", ErrNoPrediction},
		{"empty chain", nil, "", ErrNoPrediction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewChain(0.6, tt.predictors...).Predict(context.Background(), vendorReceipt("ドトール"))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.category, p.Category)
		})
	}
}

func TestChainStopsAtConfidentPrediction(t *testing.T) {
	high := &stubPredictor{prediction: &classifier.Prediction{Category: "会議費", Confidence: 0.9}}
	next := &stubPredictor{prediction: &classifier.Prediction{Category: "接待交際費", Confidence: 0.95}}

	p, err := NewChain(0.6, high, nil, next).Predict(context.Background(), vendorReceipt("ドトール"))

	require.NoError(t, err)
	assert.Equal(t, "会議費", p.Category)
	assert.Equal(t, 0, next.calls)
}

func TestChainReportsFailures(t *testing.T) {
	failing := &stubPredictor{err: errors.New("service unavailable")}

	_, err := NewChain(0.6, failing, &stubPredictor{err: ErrNoPrediction}).Predict(context.Background(), vendorReceipt("ドトール"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPrediction)
	assert.Contains(t, err.Error(), "service unavailable")
}
