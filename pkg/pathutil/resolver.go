// Package pathutil resolves where exported ledger files and the vendor history live.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PathResolver manages paths for exported ledger files and the history database.
type PathResolver struct {
	ledgerRoot   string
	databasePath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// LedgerRoot is the directory monthly Beancount files are exported to (e.g., ~/accounting/receipts)
	LedgerRoot string
	// DatabasePath is the SQLite vendor history file
	DatabasePath string
}

// New creates a new PathResolver with the given configuration.
// If DatabasePath is empty, it defaults to {LedgerRoot}/.receipts/history.db
func New(config Config) *PathResolver {
	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.LedgerRoot, ".receipts", "history.db")
	}

	return &PathResolver{
		ledgerRoot:   config.LedgerRoot,
		databasePath: dbPath,
	}
}

// GetLedgerRoot returns the ledger export directory.
func (p *PathResolver) GetLedgerRoot() string {
	return p.ledgerRoot
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetYearDir returns the directory path for a year.
// Example: ~/accounting/receipts/2025
func (p *PathResolver) GetYearDir(year string) string {
	return filepath.Join(p.ledgerRoot, year)
}

// MonthKey returns the YYYY-MM key of an entry date in YYYY-MM-DD format.
func MonthKey(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("invalid date format: %s. Expected YYYY-MM-DD", date)
	}
	return t.Format("2006-01"), nil
}

// GetMonthFilePath returns the file path for a month.
// yearMonth should be in YYYY-MM format.
// Example: ~/accounting/receipts/2025/2025-01.beancount
func (p *PathResolver) GetMonthFilePath(yearMonth string) (string, error) {
	t, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return "", fmt.Errorf("invalid year-month format: %s. Expected YYYY-MM", yearMonth)
	}

	filename := fmt.Sprintf("%s.beancount", yearMonth)
	return filepath.Join(p.GetYearDir(t.Format("2006")), filename), nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
