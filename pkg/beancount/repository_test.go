package beancount

import (
	"strings"
	"testing"
	"time"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/pathutil"
)

func newTestRepository(t *testing.T) *FileSystemRepository {
	t.Helper()
	repo := NewFileSystemRepository(pathutil.New(pathutil.Config{LedgerRoot: t.TempDir()}), "")
	repo.now = func() time.Time { return time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC) }
	return repo
}

func TestAppendTransaction(t *testing.T) {
	repo := newTestRepository(t)
	txn := "2025-01-05 * \"スターバックス コーヒー 渋谷店\" \"スターバックス コーヒー 渋谷店\"\n  Expenses:SGA:MeetingExpense  1175 JPY\n  Assets:Current:Cash  -1175 JPY"

	if repo.MonthFileExists("2025-01") {
		t.Fatal("month file exists before first append")
	}
	if err := repo.AppendTransaction("2025-01", txn, "account: keyword \"スターバックス\" matched rule cafe"); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}
	if err := repo.AppendTransaction("2025-01", txn+"\n"); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}

	content, err := repo.ReadMonthFile("2025-01")
	if err != nil {
		t.Fatalf("ReadMonthFile() error = %v", err)
	}

	wantHeader := "; Receipt journal for 2025-01\n; Generated at 2025-01-06T09:00:00Z\noption \"operating_currency\" \"JPY\"\n\n"
	if !strings.HasPrefix(content, wantHeader) {
		t.Errorf("content does not start with header:\n%s", content)
	}
	if got := strings.Count(content, "Assets:Current:Cash  -1175 JPY\n\n"); got != 2 {
		t.Errorf("found %d transactions, expected 2:\n%s", got, content)
	}
	if !strings.Contains(content, "; account: keyword \"スターバックス\" matched rule cafe\n2025-01-05 *") {
		t.Errorf("comment not written before transaction:\n%s", content)
	}
}

func TestAppendTransactionMultilineComment(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.AppendTransaction("2025-02", "2025-02-01 * \"駐車場\"", "【駐車場領収書】\n運営会社: タイムズ24株式会社"); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}

	content, _ := repo.ReadMonthFile("2025-02")
	if !strings.Contains(content, "; 【駐車場領収書】\n; 運営会社: タイムズ24株式会社\n2025-02-01") {
		t.Errorf("multi-line comment not prefixed per line:\n%s", content)
	}
}

func TestEnsureMonthFileKeepsExisting(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.AppendTransaction("2025-03", "2025-03-01 * \"A\""); err != nil {
		t.Fatal(err)
	}
	if err := repo.EnsureMonthFile("2025-03"); err != nil {
		t.Fatalf("EnsureMonthFile() error = %v", err)
	}

	content, _ := repo.ReadMonthFile("2025-03")
	if !strings.Contains(content, "2025-03-01 * \"A\"") {
		t.Errorf("EnsureMonthFile overwrote existing content:\n%s", content)
	}
}

func TestReadMonthFileMissing(t *testing.T) {
	repo := newTestRepository(t)

	content, err := repo.ReadMonthFile("2024-12")
	if err != nil || content != "" {
		t.Errorf("ReadMonthFile() = %q, %v; expected empty, nil", content, err)
	}
	if _, err := repo.ReadMonthFile("December"); err == nil {
		t.Error("expected error for invalid year-month")
	}
}

func TestGetMonthFilesInYear(t *testing.T) {
	repo := newTestRepository(t)

	for _, month := range []string{"2025-03", "2025-01", "2024-12"} {
		if err := repo.EnsureMonthFile(month); err != nil {
			t.Fatal(err)
		}
	}

	months, err := repo.GetMonthFilesInYear("2025")
	if err != nil {
		t.Fatalf("GetMonthFilesInYear() error = %v", err)
	}
	if strings.Join(months, ",") != "2025-01,2025-03" {
		t.Errorf("GetMonthFilesInYear() = %v, expected [2025-01 2025-03]", months)
	}

	months, err = repo.GetMonthFilesInYear("2023")
	if err != nil || len(months) != 0 {
		t.Errorf("GetMonthFilesInYear(2023) = %v, %v; expected empty", months, err)
	}
}
