// Package api serves the receipt pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/db"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/pipeline"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

const (
	maxRequestBytes   = 1 << 20
	maxReceiptsPerRun = 100
)

// HistoryStore records and reads confirmed vendor accounts.
type HistoryStore interface {
	RecordConfirmation(ctx context.Context, vendor, account string) error
	AccountCounts(ctx context.Context, vendor string) ([]db.AccountCount, error)
}

// Config configures the HTTP handler.
type Config struct {
	Pipeline *pipeline.Pipeline
	History  HistoryStore  // Optional; confirmation endpoints answer 503 without it
	Token    string        // Optional bearer token
	Timeout  time.Duration // Default: 60 seconds
	Logger   *slog.Logger
}

// Handler handles receipt API requests.
type Handler struct {
	pipeline *pipeline.Pipeline
	history  HistoryStore
	logger   *slog.Logger
}

// NewRouter creates the API router.
func NewRouter(config Config) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	h := &Handler{
		pipeline: config.Pipeline,
		history:  config.History,
		logger:   logger,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/1", func(r chi.Router) {
		r.Use(AuthMiddleware(config.Token))

		r.Post("/parse", h.Parse)
		r.Post("/journal", h.Journal)
		r.Post("/confirmations", h.Confirm)
		r.Get("/vendors/{vendor}/accounts", h.VendorAccounts)
	})

	return r
}

// receiptsRequest accepts a single text or a batch.
type receiptsRequest struct {
	Text  string   `json:"text"`
	Texts []string `json:"texts"`
}

func (req receiptsRequest) all() []string {
	if len(req.Texts) > 0 {
		return req.Texts
	}
	if req.Text != "" {
		return []string{req.Text}
	}
	return nil
}

func decodeTexts(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req receiptsRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}

	texts := req.all()
	switch {
	case len(texts) == 0:
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Missing text or texts")
		return nil, false
	case len(texts) > maxReceiptsPerRun:
		writeJSONError(w, http.StatusRequestEntityTooLarge, "invalid_request", "Too many receipts in one request")
		return nil, false
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Empty receipt text")
			return nil, false
		}
	}
	return texts, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "invalid_request", "Request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

// Parse handles POST /api/1/parse
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	texts, ok := decodeTexts(w, r)
	if !ok {
		return
	}

	parsed := make([]receipt.ParsedReceipt, len(texts))
	for i, t := range texts {
		parsed[i] = receipt.Parse(t)
	}

	writeJSON(w, http.StatusOK, map[string]any{"receipts": parsed})
}

// Journal handles POST /api/1/journal
func (h *Handler) Journal(w http.ResponseWriter, r *http.Request) {
	texts, ok := decodeTexts(w, r)
	if !ok {
		return
	}

	results, err := h.pipeline.ProcessAll(r.Context(), texts)
	if err != nil {
		h.logger.Warn("api.journal.canceled", "req_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "canceled", "Request canceled before all receipts were processed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type confirmationRequest struct {
	Vendor  string `json:"vendor"`
	Account string `json:"account"`
}

// Confirm handles POST /api/1/confirmations
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Vendor history is disabled")
		return
	}

	var req confirmationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Vendor) == "" || strings.TrimSpace(req.Account) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing vendor or account")
		return
	}

	if err := h.history.RecordConfirmation(r.Context(), req.Vendor, req.Account); err != nil {
		h.logger.Error("api.confirm.failed", "req_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to record confirmation")
		return
	}

	h.writeCounts(w, r, req.Vendor, http.StatusCreated)
}

// VendorAccounts handles GET /api/1/vendors/{vendor}/accounts
func (h *Handler) VendorAccounts(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Vendor history is disabled")
		return
	}

	h.writeCounts(w, r, chi.URLParam(r, "vendor"), http.StatusOK)
}

type accountCount struct {
	Account         string    `json:"account"`
	Count           int64     `json:"count"`
	LastConfirmedAt time.Time `json:"lastConfirmedAt"`
}

func (h *Handler) writeCounts(w http.ResponseWriter, r *http.Request, vendor string, status int) {
	counts, err := h.history.AccountCounts(r.Context(), vendor)
	if err != nil {
		h.logger.Error("api.vendor_accounts.failed", "req_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to read vendor history")
		return
	}

	accounts := make([]accountCount, len(counts))
	for i, c := range counts {
		accounts[i] = accountCount{Account: c.Account, Count: c.Count, LastConfirmedAt: c.LastConfirmedAt}
	}

	writeJSON(w, status, map[string]any{
		"vendor":   vendor,
		"accounts": accounts,
	})
}
