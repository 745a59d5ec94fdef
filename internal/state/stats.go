package state

import "fmt"

// Stats summarizes the ledger.
type Stats struct {
	Downloads  int
	Verified   int
	Mismatched int
	Failed     int
	Bytes      int64
}

// GetStats retrieves ledger totals.
func (db *DB) GetStats() (*Stats, error) {
	if db == nil || db.SQL == nil {
		return nil, fmt.Errorf("database not open")
	}
	s := &Stats{}
	err := db.SQL.QueryRow(`SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status IN (?, ?, ?) THEN size ELSE 0 END), 0)
	FROM downloads`,
		StatusVerified, StatusChecksumMismatch, StatusError,
		StatusComplete, StatusVerified, StatusChecksumMismatch,
	).Scan(&s.Downloads, &s.Verified, &s.Mismatched, &s.Failed, &s.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read download stats: %w", err)
	}
	return s, nil
}

// CheckIntegrity runs SQLite's integrity check on the database
func (db *DB) CheckIntegrity() error {
	if db == nil || db.SQL == nil {
		return fmt.Errorf("database not open")
	}
	var result string
	if err := db.SQL.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed to run: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check failed: %s", result)
	}
	return nil
}
