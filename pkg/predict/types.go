// Package predict provides account predictors for the classifier: a remote
// classification service, learned vendor history, and a chain of both.
package predict

import (
	"errors"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

var (
	// ErrNoPrediction means the predictor has nothing to offer for the receipt.
	ErrNoPrediction = classifier.ErrNoPrediction

	// ErrMalformedResponse means the remote service answered with a body that
	// does not match the prediction schema.
	ErrMalformedResponse = errors.New("malformed prediction response")
)

// Request is the body sent to the remote classification service.
type Request struct {
	RequestID   string         `json:"requestId"`
	ReceiptType receipt.Type   `json:"receiptType"`
	Vendor      string         `json:"vendor"`
	Date        string         `json:"date,omitempty"`
	TotalAmount int64          `json:"totalAmount"`
	Items       []receipt.Item `json:"items"`
	Text        string         `json:"text"`
}

// ErrorResponse represents an error response from the classification service.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func newRequest(id string, r receipt.ParsedReceipt) Request {
	req := Request{
		RequestID:   id,
		ReceiptType: r.ReceiptType,
		Vendor:      r.Vendor(),
		TotalAmount: r.Total(),
		Items:       r.Items,
		Text:        r.RawText,
	}
	if r.Date != nil {
		req.Date = *r.Date
	}
	if req.Items == nil {
		req.Items = []receipt.Item{}
	}
	return req
}
