package receipt

import (
	"regexp"
	"strings"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/jptext"
)

var (
	dateLine   = regexp.MustCompile(`^(?:\d{4}|\d{2})\s*[年/\-.]\s*\d{1,2}\s*[月/\-.]\s*\d{1,2}|^(?:令和|R)\s*(?:\d{1,2}|元)\s*[年.]`)
	timeLine   = regexp.MustCompile(`^\d{1,2}\s*[:|]\s*\d{2}`)
	amountLine = regexp.MustCompile(`^[¥$]\s*\d|^\d[\d,]*\s*円`)

	itemLine = regexp.MustCompile(`^(.+?)\s+[¥$]?\s*(\d[\d,]*)\s*円?$`)
)

var totalRules = []rule[int64]{
	amountRule("お会計", labelled(`お会計`)),
	amountRule("合計", labelled(`合計(?:金額)?`)),
	amountRule("total", labelled(`(?:^|[^A-Za-z])(?i:total)(?:\s*(?i:amount))?`)),
	lastAmountRule("generic",
		labelled(`(?:^|[^小合])計`),
		labelled(`(?:お支払い?|ご請求|お買上げ?|お買い上げ|領収)金額`),
	),
}

var taxRules = []rule[int64]{
	amountRule("消費税", labelled(`消費税(?:等)?(?:額)?`)),
	amountRule("税", labelled(`(?:^|[^課非免消])税(?:額)?`)),
	amountRule("tax", labelled(`(?:^|[^A-Za-z])(?i:tax)`)),
}

var subtotalRules = []rule[int64]{
	amountRule("小計", labelled(`小計`)),
	amountRule("subtotal", labelled(`(?i:sub\s*-?\s*total)`)),
}

// itemExcludeKeywords mark summary, payment and header lines that look like
// "name amount" but are not purchased items.
var itemExcludeKeywords = []string{
	"合計", "小計", "計", "税", "total", "tax", "お会計",
	"現金", "お預り", "お預かり", "預り", "お釣り", "おつり", "釣銭", "クレジット", "カード", "ポイント",
	"tel", "電話", "fax", "no.", "レジ", "担当",
}

func parseGeneral(text string) ParsedReceipt {
	r := ParsedReceipt{
		ReceiptType: TypeGeneral,
		Date:        extractDate(text),
		Items:       extractItems(text),
		RawText:     text,
	}
	if v := extractVendor(text); v != "" {
		r.VendorOrFacilityName = strPtr(v)
	}
	if n, ok := firstMatch(text, totalRules); ok {
		r.TotalAmount = intPtr(n)
	}
	if n, ok := firstMatch(text, taxRules); ok {
		r.TaxAmount = intPtr(n)
	}
	if n, ok := firstMatch(text, subtotalRules); ok {
		r.Subtotal = intPtr(n)
	}
	return r
}

// extractVendor returns the first line that is not a date, time or amount line.
func extractVendor(text string) string {
	for _, line := range lines(text) {
		if dateLine.MatchString(line) || timeLine.MatchString(line) || amountLine.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}

func extractItems(text string) []Item {
	items := []Item{}
	for _, line := range lines(text) {
		m := itemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if !isItemName(name) {
			continue
		}
		amount, ok := parseDigits(m[2])
		if !ok || amount <= 0 {
			continue
		}
		items = append(items, Item{Name: name, Amount: amount})
	}
	return items
}

func isItemName(name string) bool {
	if name == "" || dateLine.MatchString(name) || timeLine.MatchString(name) {
		return false
	}
	if _, excluded := jptext.ContainsAny(jptext.Key(name), itemExcludeKeywords); excluded {
		return false
	}
	return true
}
