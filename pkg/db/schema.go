// Package db provides SQLite storage for learned vendor accounts and metadata.
package db

import "context"

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Vendor accounts table
-- Counts how often each account was confirmed for a vendor
CREATE TABLE IF NOT EXISTS vendor_accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    vendor_key TEXT NOT NULL,              -- normalized vendor name (see VendorKey)
    vendor_name TEXT NOT NULL,             -- vendor name as last confirmed
    account TEXT NOT NULL,                 -- 勘定科目
    confirmed_count INTEGER NOT NULL DEFAULT 1,
    last_confirmed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(vendor_key, account)
);

CREATE INDEX IF NOT EXISTS idx_vendor_accounts_key
    ON vendor_accounts(vendor_key);

-- Metadata table
-- Stores key-value metadata about the learning store
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(ctx context.Context, conn *Connection) error {
	if _, err := conn.Exec(ctx, Schema); err != nil {
		return err
	}
	return nil
}
