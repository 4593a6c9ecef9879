package predict

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cafeReceipt() receipt.ParsedReceipt {
	return receipt.Parse("スターバックス コーヒー 渋谷店\n2025/01/05\nラテ ¥550\n合計 ¥550")
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPClient(ClientConfig{
		URL:     server.URL,
		APIKey:  "test-key",
		Timeout: time.Second,
		Logger:  quietLogger(),
	})
}

func TestHTTPClientPredict(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "スターバックス コーヒー 渋谷店", req.Vendor)
		assert.Equal(t, receipt.TypeGeneral, req.ReceiptType)
		assert.Equal(t, "2025-01-05", req.Date)
		assert.Equal(t, int64(550), req.TotalAmount)
		assert.Equal(t, []receipt.Item{{Name: "ラテ", Amount: 550}}, req.Items)
		assert.Equal(t, req.RequestID, r.Header.Get("X-Request-ID"))
		_, err := uuid.Parse(req.RequestID)
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"category":"会議費","confidence":0.82,"reasoning":"coffee shop","taxNotes":"テイクアウトは軽減税率","sources":["vendor name","item names"]}`))
	})

	p, err := client.Predict(context.Background(), cafeReceipt())

	require.NoError(t, err)
	assert.Equal(t, "会議費", p.Category)
	assert.InDelta(t, 0.82, p.Confidence, 1e-9)
	assert.Equal(t, "coffee shop", p.Reasoning)
	require.NotNil(t, p.TaxNotes)
	assert.Equal(t, "テイクアウトは軽減税率", *p.TaxNotes)
	assert.Equal(t, []string{"vendor name", "item names"}, p.Sources)
}

func TestHTTPClientPredictNullTaxNotes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"category":"会議費","confidence":0.82,"taxNotes":null}`))
	})

	p, err := client.Predict(context.Background(), cafeReceipt())

	require.NoError(t, err)
	assert.Nil(t, p.TaxNotes)
	assert.Empty(t, p.Sources)
}

func TestHTTPClientNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := client.Predict(context.Background(), cafeReceipt())

	assert.ErrorIs(t, err, ErrNoPrediction)
}

func TestHTTPClientErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"structured", `{"error":"internal","error_description":"model offline"}`, "classifier API error (status 500): internal - model offline"},
		{"plain", "upstream failure", "classifier API error (status 500): upstream failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			})

			_, err := client.Predict(context.Background(), cafeReceipt())

			require.Error(t, err)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestHTTPClientMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"confidence out of range", `{"category":"会議費","confidence":1.5}`},
		{"missing category", `{"confidence":0.9}`},
		{"empty category", `{"category":"","confidence":0.9}`},
		{"confidence as string", `{"category":"会議費","confidence":"high"}`},
		{"not json", `oops`},
		{"tax notes as number", `{"category":"会議費","confidence":0.9,"taxNotes":8}`},
		{"sources not strings", `{"category":"会議費","confidence":0.9,"sources":[1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.Predict(context.Background(), cafeReceipt())

			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	client := NewHTTPClient(ClientConfig{URL: server.URL, Timeout: 50 * time.Millisecond, Logger: quietLogger()})

	start := time.Now()
	_, err := client.Predict(context.Background(), cafeReceipt())

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPClientContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"category":"会議費","confidence":0.9}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Predict(ctx, cafeReceipt())

	assert.ErrorIs(t, err, context.Canceled)
}
