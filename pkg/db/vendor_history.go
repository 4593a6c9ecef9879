package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/jptext"
)

const (
	// MetadataLastConfirmedVendor holds the vendor name of the latest confirmation.
	MetadataLastConfirmedVendor = "last_confirmed_vendor"

	// MetadataLastExport holds the RFC 3339 time of the latest ledger export.
	MetadataLastExport = "last_export_at"
)

// ErrEmptyVendor is returned when a vendor name normalizes to nothing.
var ErrEmptyVendor = errors.New("vendor name is empty")

// AccountCount is how often an account was confirmed for a vendor.
type AccountCount struct {
	Account         string
	Count           int64
	LastConfirmedAt time.Time
}

// VendorKey normalizes a vendor name for lookups: width-folded, lower-cased,
// kana-unified, with runs of whitespace collapsed.
func VendorKey(vendor string) string {
	return strings.Join(strings.Fields(jptext.Key(vendor)), " ")
}

// VendorHistory manages confirmed vendor-to-account choices.
type VendorHistory struct {
	conn *Connection
}

// NewVendorHistory creates a new VendorHistory instance.
func NewVendorHistory(conn *Connection) *VendorHistory {
	return &VendorHistory{conn: conn}
}

// RecordConfirmation records that account was confirmed for vendor.
// Repeated confirmations increment the count.
func (h *VendorHistory) RecordConfirmation(ctx context.Context, vendor, account string) error {
	key := VendorKey(vendor)
	if key == "" {
		return ErrEmptyVendor
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return fmt.Errorf("account is empty for vendor %q", vendor)
	}

	return h.conn.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vendor_accounts (vendor_key, vendor_name, account)
			VALUES (?, ?, ?)
			ON CONFLICT(vendor_key, account) DO UPDATE SET
				vendor_name = excluded.vendor_name,
				confirmed_count = confirmed_count + 1,
				last_confirmed_at = CURRENT_TIMESTAMP
		`, key, strings.TrimSpace(vendor), account)
		if err != nil {
			return fmt.Errorf("failed to record confirmation: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO metadata (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`, MetadataLastConfirmedVendor, strings.TrimSpace(vendor))
		if err != nil {
			return fmt.Errorf("failed to update metadata: %w", err)
		}
		return nil
	})
}

// AccountCounts returns the accounts confirmed for vendor, most confirmed first.
func (h *VendorHistory) AccountCounts(ctx context.Context, vendor string) ([]AccountCount, error) {
	key := VendorKey(vendor)
	if key == "" {
		return nil, nil
	}

	query := `
		SELECT account, confirmed_count, last_confirmed_at
		FROM vendor_accounts
		WHERE vendor_key = ?
		ORDER BY confirmed_count DESC, last_confirmed_at DESC, account
	`

	rows, err := h.conn.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get account counts: %w", err)
	}
	defer rows.Close()

	var counts []AccountCount
	for rows.Next() {
		var c AccountCount
		if err := rows.Scan(&c.Account, &c.Count, &c.LastConfirmedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account counts: %w", err)
	}

	return counts, nil
}

// DeleteVendor forgets everything learned about vendor.
// Use case: a vendor was repeatedly confirmed with the wrong account.
func (h *VendorHistory) DeleteVendor(ctx context.Context, vendor string) (int64, error) {
	result, err := h.conn.Exec(ctx, `DELETE FROM vendor_accounts WHERE vendor_key = ?`, VendorKey(vendor))
	if err != nil {
		return 0, fmt.Errorf("failed to delete vendor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// Stats represents learning store statistics.
type Stats struct {
	TotalVendors       int
	TotalAccounts      int
	TotalConfirmations int64
	LastConfirmed      sql.NullString
}

// GetStats retrieves learning store statistics.
func (h *VendorHistory) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	err := h.conn.QueryRow(ctx, `SELECT COUNT(DISTINCT vendor_key) FROM vendor_accounts`).Scan(&stats.TotalVendors)
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor count: %w", err)
	}

	err = h.conn.QueryRow(ctx, `SELECT COUNT(DISTINCT account) FROM vendor_accounts`).Scan(&stats.TotalAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to get account count: %w", err)
	}

	err = h.conn.QueryRow(ctx, `SELECT COALESCE(SUM(confirmed_count), 0) FROM vendor_accounts`).Scan(&stats.TotalConfirmations)
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmation count: %w", err)
	}

	err = h.conn.QueryRow(ctx, `SELECT MAX(last_confirmed_at) FROM vendor_accounts`).Scan(&stats.LastConfirmed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last confirmation time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value. A missing key yields "".
func (h *VendorHistory) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := h.conn.QueryRow(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (h *VendorHistory) SetMetadata(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := h.conn.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
