// Package receipt turns recognized receipt text into structured fields.
package receipt

import (
	"fmt"
	"strings"
)

// Type is the structural kind of a receipt.
type Type string

const (
	TypeGeneral Type = "general"
	TypeParking Type = "parking"
)

// Item is one purchased line of a receipt.
type Item struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// ParsedReceipt is the structured view of one receipt. Nil pointers mean the
// field was not found in the text.
type ParsedReceipt struct {
	ReceiptType          Type    `json:"receiptType"`
	VendorOrFacilityName *string `json:"vendorOrFacilityName"`
	OperatingCompanyName *string `json:"operatingCompanyName"` // parking only
	Date                 *string `json:"date"`                 // YYYY-MM-DD
	EntryTime            *string `json:"entryTime"`
	ExitTime             *string `json:"exitTime"`
	ParkingDuration      *string `json:"parkingDuration"`
	TotalAmount          *int64  `json:"totalAmount"`
	TaxAmount            *int64  `json:"taxAmount"`
	Subtotal             *int64  `json:"subtotal"`
	BaseFee              *int64  `json:"baseFee,omitempty"`
	AdditionalFee        *int64  `json:"additionalFee,omitempty"`
	Items                []Item  `json:"items"`

	// RawText is the normalized input text, kept for keyword classification.
	RawText string `json:"-"`
}

// Vendor returns the trimmed vendor or facility name, or "".
func (r ParsedReceipt) Vendor() string {
	return strings.TrimSpace(deref(r.VendorOrFacilityName))
}

// ItemNames returns the item names in receipt order.
func (r ParsedReceipt) ItemNames() []string {
	names := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		names = append(names, item.Name)
	}
	return names
}

// Total returns the total amount, or 0 when none was found.
func (r ParsedReceipt) Total() int64 {
	if r.TotalAmount == nil {
		return 0
	}
	return *r.TotalAmount
}

// Notes renders the parking details as review notes. General receipts have none.
func (r ParsedReceipt) Notes() string {
	if r.ReceiptType != TypeParking {
		return ""
	}

	notes := []string{"【駐車場領収書】"}
	add := func(label string, v *string) {
		if v != nil && *v != "" {
			notes = append(notes, fmt.Sprintf("%s: %s", label, *v))
		}
	}
	addYen := func(label string, v *int64) {
		if v != nil && *v > 0 {
			notes = append(notes, fmt.Sprintf("%s: ¥%s", label, FormatYen(*v)))
		}
	}

	add("運営会社", r.OperatingCompanyName)
	add("施設名", r.VendorOrFacilityName)
	add("入庫時刻", r.EntryTime)
	add("出庫時刻", r.ExitTime)
	add("駐車時間", r.ParkingDuration)
	addYen("基本料金", r.BaseFee)
	addYen("追加料金", r.AdditionalFee)

	return strings.Join(notes, "\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}

func intPtr(n int64) *int64 {
	return &n
}
