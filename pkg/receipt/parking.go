package receipt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/jptext"
)

// parkingOperators are the known operating companies, matched case-insensitively.
var parkingOperators = []string{
	"タイムズ24株式会社",
	"パーク24株式会社",
	"三井不動産リアルティ株式会社",
	"名鉄協商株式会社",
	"日本駐車場開発株式会社",
	"NPC24H株式会社",
	"日本パーキング株式会社",
	"アップルパーク株式会社",
}

var operatorPatterns = compileOperators(parkingOperators)

// facilityBrands identify the line naming the facility itself.
var facilityBrands = []string{
	"タイムズ", "times", "リパーク", "パーキング", "parking", "駐車場", "npc", "コインパーク", "パーク",
}

// genericFacilities name no particular facility and are skipped.
var genericFacilities = []string{"駐車場", "パーキング", "parking", "コインパーキング"}

// facilityStop cuts a facility line where a field label begins.
var facilityStop = regexp.MustCompile(`入庫|入場|出庫|出場|駐車時間|利用時間|駐車料金|料金|合計|領収|¥|\d{4}[/\-.年]`)

const clock = `(\d{1,2})\s*[:時]\s*(\d{2})`

// dateBeforeClock skips an optional date (and weekday) written between a label and its time.
const dateBeforeClock = `(?:\d{2,4}\s*[/\-.年]\s*\d{1,2}\s*[/\-.月]\s*\d{1,2}\s*日?\s*(?:\([^)\n]*\))?\s*)?`

var (
	entryTime = regexp.MustCompile(`(?:入庫|入場|\b(?i:in)\b)(?:時刻|日時|時間)?\s*:?\s*` + dateBeforeClock + clock)
	exitTime  = regexp.MustCompile(`(?:出庫|出場|\b(?i:out)\b)(?:時刻|日時|時間)?\s*:?\s*` + dateBeforeClock + clock)
	duration  = regexp.MustCompile(`(?:駐車|利用|滞在)時間\s*:?\s*(\d+\s*時間\s*\d+\s*分|\d+\s*時間|\d+\s*分)`)
	spaces    = regexp.MustCompile(`\s+`)
)

var parkingTotalRules = []rule[int64]{
	amountRule("合計", labelled(`合計(?:金額)?`)),
	amountRule("駐車料金", labelled(`駐車料金`)),
	amountRule("お支払い金額", labelled(`(?:お支払い?|ご請求|領収)金額`)),
	amountRule("利用料金", labelled(`(?:利用|ご利用)料金`)),
}

var (
	baseFeeRule       = amountRule("基本料金", labelled(`基本料金`))
	additionalFeeRule = amountRule("追加料金", labelled(`(?:追加|延長)料金`))
)

func parseParking(text string) ParsedReceipt {
	r := ParsedReceipt{
		ReceiptType: TypeParking,
		Date:        extractDate(text),
		TaxAmount:   intPtr(0),
		Items:       []Item{},
		RawText:     text,
	}

	if op := extractOperator(text); op != "" {
		r.OperatingCompanyName = strPtr(op)
	}
	if f := extractFacility(text); f != "" {
		r.VendorOrFacilityName = strPtr(f)
	}
	r.EntryTime = extractClock(entryTime, text)
	r.ExitTime = extractClock(exitTime, text)
	if m := duration.FindStringSubmatch(text); m != nil {
		r.ParkingDuration = strPtr(spaces.ReplaceAllString(m[1], ""))
	}

	if n, ok := baseFeeRule.extract(text); ok {
		r.BaseFee = intPtr(n)
	}
	if n, ok := additionalFeeRule.extract(text); ok {
		r.AdditionalFee = intPtr(n)
	}

	if n, ok := firstMatch(text, parkingTotalRules); ok {
		r.TotalAmount = intPtr(n)
	} else if r.BaseFee != nil || r.AdditionalFee != nil {
		var sum int64
		if r.BaseFee != nil {
			sum += *r.BaseFee
		}
		if r.AdditionalFee != nil {
			sum += *r.AdditionalFee
		}
		r.TotalAmount = intPtr(sum)
	}

	if r.TotalAmount != nil {
		place := r.Vendor()
		if place == "" {
			place = "駐車場"
		}
		r.Items = append(r.Items, Item{
			Name:   fmt.Sprintf("駐車料金（%s）", place),
			Amount: *r.TotalAmount,
		})
	}

	return r
}

func compileOperators(names []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(names))
	for _, name := range names {
		out[name] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name))
	}
	return out
}

// extractOperator returns the canonical name of the first known operator in text.
func extractOperator(text string) string {
	for _, name := range parkingOperators {
		if operatorPatterns[name].MatchString(text) {
			return name
		}
	}
	return ""
}

// extractFacility returns the first line carrying a facility brand once any
// operator name and trailing field labels are stripped from it.
func extractFacility(text string) string {
	for _, line := range lines(text) {
		for _, name := range parkingOperators {
			line = operatorPatterns[name].ReplaceAllString(line, "")
		}
		if loc := facilityStop.FindStringIndex(line); loc != nil {
			line = line[:loc[0]]
		}
		line = strings.Trim(line, " :・-")
		if line == "" || isGenericFacility(line) {
			continue
		}
		if _, ok := jptext.ContainsAny(jptext.Key(line), facilityBrands); ok {
			return line
		}
	}
	return ""
}

func isGenericFacility(line string) bool {
	key := jptext.Key(line)
	for _, g := range genericFacilities {
		if key == jptext.Key(g) {
			return true
		}
	}
	return false
}

func extractClock(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return strPtr(m[1] + ":" + m[2])
}
