package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/journal"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

const cafeText = "スターバックス コーヒー 渋谷店\n2025/01/05\n合計 ¥1,175\n消費税 ¥117"

type predictorFunc func(ctx context.Context, r receipt.ParsedReceipt) (*classifier.Prediction, error)

func (f predictorFunc) Predict(ctx context.Context, r receipt.ParsedReceipt) (*classifier.Prediction, error) {
	return f(ctx, r)
}

func newTestPipeline(predictor classifier.Predictor, timeout time.Duration) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{
		Classifier: classifier.New(classifier.Config{Logger: logger}),
		Builder: journal.NewBuilder(journal.Config{
			Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
			Location: time.UTC,
		}),
		Predictor:      predictor,
		PredictTimeout: timeout,
		Logger:         logger,
	})
}

func TestProcessCafeReceipt(t *testing.T) {
	result := newTestPipeline(nil, 0).Process(context.Background(), cafeText)

	e := result.Entry
	assert.Equal(t, "2025-01-05", e.Date)
	assert.Equal(t, "会議費", e.DebitAccount)
	assert.Equal(t, "現金", e.CreditAccount)
	assert.Equal(t, int64(1175), e.Amount)
	assert.Equal(t, int64(117), e.TaxAmount)
	assert.True(t, e.TaxRate.Equal(decimal.RequireFromString("0.10")), "taxRate = %s", e.TaxRate)
	assert.True(t, e.IsTaxIncluded)
	assert.Equal(t, classifier.SourceKeyword, result.Decision.Source)
}

func TestProcessParkingIgnoresConfidentPrediction(t *testing.T) {
	calls := 0
	p := newTestPipeline(predictorFunc(func(context.Context, receipt.ParsedReceipt) (*classifier.Prediction, error) {
		calls++
		return &classifier.Prediction{Category: "会議費", Confidence: 0.95}, nil
	}), 0)

	result := p.Process(context.Background(), "タイムズ24株式会社\nタイムズ渋谷駅前\n入庫 10:00\n出庫 12:30\n駐車料金 ¥600")

	assert.Equal(t, "旅費交通費", result.Entry.DebitAccount)
	assert.Equal(t, classifier.SourceStructural, result.Decision.Source)
	assert.Equal(t, 0, calls)
	require.Len(t, result.Receipt.Items, 1)
}

func TestProcessUsesConfidentPrediction(t *testing.T) {
	p := newTestPipeline(predictorFunc(func(context.Context, receipt.ParsedReceipt) (*classifier.Prediction, error) {
		return &classifier.Prediction{Category: "接待交際費", Confidence: 0.7, Reasoning: "client meeting"}, nil
	}), 0)

	result := p.Process(context.Background(), cafeText)

	assert.Equal(t, "接待交際費", result.Entry.DebitAccount)
	assert.Equal(t, "client meeting", result.Decision.Reasoning)
}

func TestProcessSurvivesPredictorFailure(t *testing.T) {
	tests := []struct {
		name      string
		predictor classifier.Predictor
		timeout   time.Duration
	}{
		{"error", predictorFunc(func(context.Context, receipt.ParsedReceipt) (*classifier.Prediction, error) {
			return nil, errors.New("connection refused")
		}), 0},
		{"panic", predictorFunc(func(context.Context, receipt.ParsedReceipt) (*classifier.Prediction, error) {
			panic("nil map")
		}), 0},
		{"slow", predictorFunc(func(context.Context, receipt.ParsedReceipt) (*classifier.Prediction, error) {
			time.Sleep(time.Second)
			return &classifier.Prediction{Category: "通信費", Confidence: 0.9}, nil
		}), 20 * time.Millisecond},
		{"low confidence", predictorFunc(func(context.Context, receipt.ParsedReceipt) (*classifier.Prediction, error) {
			return &classifier.Prediction{Category: "接待交際費", Confidence: 0.4}, nil
		}), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			result := newTestPipeline(tt.predictor, tt.timeout).Process(context.Background(), cafeText)

			assert.Equal(t, "会議費", result.Entry.DebitAccount)
			assert.Equal(t, int64(1175), result.Entry.Amount)
			assert.Less(t, time.Since(start), 500*time.Millisecond)
		})
	}
}

func TestProcessAllKeepsOrder(t *testing.T) {
	texts := make([]string, 0, 20)
	for i := range 20 {
		texts = append(texts, fmt.Sprintf("店舗%02d\n2025/01/05\n合計 ¥%d", i, 100+i))
	}

	results, err := newTestPipeline(nil, 0).ProcessAll(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, results, len(texts))
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("店舗%02d", i), r.Receipt.Vendor())
		assert.Equal(t, int64(100+i), r.Entry.Amount)
	}
}

func TestProcessAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(nil, 0).ProcessAll(ctx, []string{cafeText, cafeText})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessAllEmpty(t *testing.T) {
	results, err := newTestPipeline(nil, 0).ProcessAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}
