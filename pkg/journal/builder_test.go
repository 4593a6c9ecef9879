package journal

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/classifier"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/receipt"
)

var fixedNow = func() time.Time {
	return time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
}

func newTestBuilder() *Builder {
	return NewBuilder(Config{Now: fixedNow, Location: time.UTC})
}

func ptr[T any](v T) *T {
	return &v
}

func TestBuildCafeReceipt(t *testing.T) {
	r := receipt.Parse("スターバックス コーヒー 渋谷店\n2025/01/05\n合計 ¥1,175\n消費税 ¥117")
	d := classifier.Decision{Account: "会議費", Source: classifier.SourceKeyword}

	e := newTestBuilder().Build(r, d)

	if e.Date != "2025-01-05" {
		t.Errorf("Date = %q, expected 2025-01-05", e.Date)
	}
	if e.Description != "スターバックス コーヒー 渋谷店 - " {
		t.Errorf("Description = %q", e.Description)
	}
	if e.DebitAccount != "会議費" || e.CreditAccount != CreditAccountCash {
		t.Errorf("accounts = %q / %q", e.DebitAccount, e.CreditAccount)
	}
	if e.Amount != 1175 || e.TaxAmount != 117 {
		t.Errorf("amount = %d, tax = %d, expected 1175 / 117", e.Amount, e.TaxAmount)
	}
	if !e.TaxRate.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("TaxRate = %s, expected 0.10", e.TaxRate)
	}
	if !e.IsTaxIncluded {
		t.Error("IsTaxIncluded = false, expected true")
	}
	if e.Notes != "" {
		t.Errorf("Notes = %q, expected none for a general receipt", e.Notes)
	}
}

func TestDescriptionTruncation(t *testing.T) {
	r := receipt.ParsedReceipt{
		VendorOrFacilityName: ptr(strings.Repeat("あ", 141)),
		Items:                []receipt.Item{{Name: "ab", Amount: 1}, {Name: "cd", Amount: 1}},
	}
	if full := strings.Repeat("あ", 141) + " - ab, cd"; utf8.RuneCountInString(full) != 150 {
		t.Fatalf("fixture is %d characters, expected 150", utf8.RuneCountInString(full))
	}

	desc := Description(r)

	if n := utf8.RuneCountInString(desc); n != MaxDescriptionLength {
		t.Errorf("description has %d characters, expected %d", n, MaxDescriptionLength)
	}
	if !utf8.ValidString(desc) {
		t.Error("truncated description is not valid UTF-8")
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		name     string
		vendor   *string
		items    []receipt.Item
		expected string
	}{
		{"vendor and items", ptr("ローソン"), []receipt.Item{{Name: "おにぎり"}, {Name: "お茶"}}, "ローソン - おにぎり, お茶"},
		{"missing vendor", nil, nil, "店舗名不明 - "},
		{"blank vendor", ptr("   "), []receipt.Item{{Name: "弁当"}}, "店舗名不明 - 弁当"},
		{"trimmed vendor", ptr("  ドトール  "), nil, "ドトール - "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := receipt.ParsedReceipt{VendorOrFacilityName: tt.vendor, Items: tt.items}
			if result := Description(r); result != tt.expected {
				t.Errorf("Description() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestBuildTaxRateAndAmount(t *testing.T) {
	tests := []struct {
		name     string
		date     *string
		total    *int64
		tax      *int64
		items    []receipt.Item
		rate     string
		expected int64
	}{
		{"derived from total", ptr("2025-01-05"), ptr(int64(1100)), nil, nil, "0.10", 100},
		{"zero tax is derived", ptr("2025-01-05"), ptr(int64(1100)), ptr(int64(0)), nil, "0.10", 100},
		{"extracted tax wins", ptr("2025-01-05"), ptr(int64(1100)), ptr(int64(99)), nil, "0.10", 99},
		{"reduced item", ptr("2025-01-05"), ptr(int64(1080)), nil, []receipt.Item{{Name: "おにぎり", Amount: 1080}}, "0.08", 80},
		{"reduced wins for whole receipt", ptr("2025-01-05"), ptr(int64(1080)), nil,
			[]receipt.Item{{Name: "ボールペン", Amount: 500}, {Name: "お茶", Amount: 580}}, "0.08", 80},
		{"old receipt keeps standard rate", ptr("2018-05-01"), ptr(int64(1080)), nil, []receipt.Item{{Name: "ノート", Amount: 1000}}, "0.10", 99},
		{"old receipt keeps reduced rate", ptr("2000-01-01"), ptr(int64(1050)), nil, []receipt.Item{{Name: "おにぎり", Amount: 1050}}, "0.08", 78},
		{"no total", ptr("2025-01-05"), nil, nil, nil, "0.10", 0},
		{"no date uses today", nil, ptr(int64(1100)), nil, nil, "0.10", 100},
	}

	b := newTestBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := receipt.ParsedReceipt{Date: tt.date, TotalAmount: tt.total, TaxAmount: tt.tax, Items: tt.items}

			e := b.Build(r, classifier.Decision{Account: "消耗品費"})

			if !e.TaxRate.Equal(decimal.RequireFromString(tt.rate)) {
				t.Errorf("TaxRate = %s, expected %s", e.TaxRate, tt.rate)
			}
			if e.TaxAmount != tt.expected {
				t.Errorf("TaxAmount = %d, expected %d", e.TaxAmount, tt.expected)
			}
		})
	}
}

func TestBuildHistoricalRates(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		total    int64
		items    []receipt.Item
		rate     string
		expected int64
	}{
		{"5% regime", "2000-01-01", 1050, nil, "0.05", 50},
		{"no reduced rate before 2019-10", "2019-09-30", 1080, []receipt.Item{{Name: "おにぎり", Amount: 1080}}, "0.08", 80},
		{"8% regime", "2016-04-01", 1080, []receipt.Item{{Name: "ノート", Amount: 1080}}, "0.08", 80},
		{"reduced rate from 2019-10", "2019-10-01", 1080, []receipt.Item{{Name: "おにぎり", Amount: 1080}}, "0.08", 80},
		{"current standard rate", "2025-01-05", 1100, nil, "0.10", 100},
	}

	b := NewBuilder(Config{Now: fixedNow, Location: time.UTC, HistoricalRates: true})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := receipt.ParsedReceipt{Date: ptr(tt.date), TotalAmount: ptr(tt.total), Items: tt.items}

			e := b.Build(r, classifier.Decision{Account: "消耗品費"})

			if !e.TaxRate.Equal(decimal.RequireFromString(tt.rate)) {
				t.Errorf("TaxRate = %s, expected %s", e.TaxRate, tt.rate)
			}
			if e.TaxAmount != tt.expected {
				t.Errorf("TaxAmount = %d, expected %d", e.TaxAmount, tt.expected)
			}
		})
	}
}

func TestBuildDefaultsDateToToday(t *testing.T) {
	tests := []struct {
		name     string
		location *time.Location
		expected string
	}{
		{"utc", time.UTC, "2025-06-01"},
		{"jst rolls over", time.FixedZone("JST", 9*60*60), "2025-06-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(Config{Now: fixedNow, Location: tt.location})
			if e := b.Build(receipt.ParsedReceipt{}, classifier.Decision{}); e.Date != tt.expected {
				t.Errorf("Date = %q, expected %q", e.Date, tt.expected)
			}
		})
	}
}

func TestBuildParkingReceipt(t *testing.T) {
	r := receipt.Parse("タイムズ24株式会社\nタイムズ渋谷駅前\n2025/01/05\n入庫 10:00\n出庫 12:30\n駐車料金 ¥600")

	e := newTestBuilder().Build(r, classifier.Decision{Account: "旅費交通費"})

	if e.Description != "タイムズ渋谷駅前 - 駐車料金（タイムズ渋谷駅前）" {
		t.Errorf("Description = %q", e.Description)
	}
	if e.Amount != 600 || e.TaxAmount != 55 {
		t.Errorf("amount = %d, tax = %d, expected 600 / 55", e.Amount, e.TaxAmount)
	}
	if !strings.HasPrefix(e.Notes, "【駐車場領収書】\n運営会社: タイムズ24株式会社") {
		t.Errorf("Notes = %q", e.Notes)
	}
}
