package tax

// DocumentReceipt is the only document type with a stamp duty table (第17号文書).
const DocumentReceipt = "receipt"

// stampBracket charges Duty for amounts up to and including UpTo.
type stampBracket struct {
	UpTo int64
	Duty int64
}

// ReceiptStampExemptBelow is the amount under which receipts carry no stamp duty.
const ReceiptStampExemptBelow int64 = 50_000

var receiptStampBrackets = []stampBracket{
	{UpTo: 1_000_000, Duty: 200},
	{UpTo: 2_000_000, Duty: 400},
	{UpTo: 3_000_000, Duty: 600},
	{UpTo: 5_000_000, Duty: 1_000},
	{UpTo: 10_000_000, Duty: 2_000},
	{UpTo: 20_000_000, Duty: 4_000},
	{UpTo: 30_000_000, Duty: 6_000},
	{UpTo: 50_000_000, Duty: 10_000},
	{UpTo: 100_000_000, Duty: 20_000},
	{UpTo: 200_000_000, Duty: 40_000},
}

// receiptStampCap is the duty for amounts above the last bracket.
const receiptStampCap int64 = 60_000

// StampDuty returns the revenue stamp required on a document stating amount.
// Document types other than receipts return 0.
func StampDuty(documentType string, amount int64) int64 {
	if documentType != DocumentReceipt || amount < ReceiptStampExemptBelow {
		return 0
	}
	for _, b := range receiptStampBrackets {
		if amount <= b.UpTo {
			return b.Duty
		}
	}
	return receiptStampCap
}
