package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/sqlite"

	"github.com/jxwalker/cfcore/internal/config"
)

// Download statuses recorded in the ledger.
const (
	StatusPlanning         = "planning"
	StatusComplete         = "complete"
	StatusVerified         = "verified"
	StatusChecksumMismatch = "checksum_mismatch"
	StatusError            = "error"
)

// DB is the download ledger. A nil *DB accepts writes and drops them.
type DB struct {
	SQL  *sql.DB
	Path string
}

func Open(cfg *config.Config) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if cfg.General.DataRoot == "" {
		return nil, errors.New("general.data_root required")
	}
	if err := os.MkdirAll(cfg.General.DataRoot, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.General.DataRoot, "state.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout=5000&_pragma=journal_mode(WAL)", path)
	return open(dsn, path)
}

// OpenMemory opens a private in-memory ledger.
func OpenMemory() (*DB, error) {
	return open(":memory:", "")
}

func open(dsn, path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per-connection
	if path == "" {
		sqldb.SetMaxOpenConns(1)
	}
	if err := initSchema(sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return &DB{SQL: sqldb, Path: path}, nil
}

func (db *DB) Close() error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			dest TEXT NOT NULL,
			mod_id INTEGER,
			file_id INTEGER,
			algo TEXT,
			expected_digest TEXT,
			actual_digest TEXT,
			size INTEGER,
			status TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			last_error TEXT,
			UNIQUE(url, dest)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

type DownloadRow struct {
	URL            string
	Dest           string
	ModID          int
	FileID         int
	Algo           string
	ExpectedDigest string
	ActualDigest   string
	Size           int64
	Status         string
	UpdatedAt      int64
	LastError      string
}

func (db *DB) UpsertDownload(row DownloadRow) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	now := time.Now().Unix()
	_, err := db.SQL.Exec(`INSERT INTO downloads(url, dest, mod_id, file_id, algo, expected_digest, actual_digest, size, status, last_error, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(url, dest) DO UPDATE SET mod_id=excluded.mod_id, file_id=excluded.file_id, algo=excluded.algo, expected_digest=excluded.expected_digest, actual_digest=excluded.actual_digest, size=excluded.size, status=excluded.status, last_error=excluded.last_error, updated_at=?`,
		row.URL, row.Dest, row.ModID, row.FileID, row.Algo, row.ExpectedDigest, row.ActualDigest, row.Size, row.Status, row.LastError, now, now, now)
	return err
}

// DeleteDownload removes a download row for the given url+dest.
func (db *DB) DeleteDownload(url, dest string) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	_, err := db.SQL.Exec(`DELETE FROM downloads WHERE url=? AND dest=?`, url, dest)
	return err
}

// ListDownloads returns a snapshot of the downloads table, newest first.
func (db *DB) ListDownloads() ([]DownloadRow, error) {
	if db == nil || db.SQL == nil {
		return nil, errors.New("database not open")
	}
	rows, err := db.SQL.Query(`SELECT url, dest,
		COALESCE(mod_id, 0),
		COALESCE(file_id, 0),
		COALESCE(algo, ''),
		COALESCE(expected_digest, ''),
		COALESCE(actual_digest, ''),
		COALESCE(size, 0),
		COALESCE(status, ''),
		updated_at,
		COALESCE(last_error, '')
	FROM downloads
	ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []DownloadRow
	for rows.Next() {
		var r DownloadRow
		if err := rows.Scan(&r.URL, &r.Dest, &r.ModID, &r.FileID, &r.Algo, &r.ExpectedDigest, &r.ActualDigest, &r.Size, &r.Status, &r.UpdatedAt, &r.LastError); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindByDest returns the most recent row written to dest.
func (db *DB) FindByDest(dest string) (DownloadRow, bool, error) {
	rows, err := db.ListDownloads()
	if err != nil {
		return DownloadRow{}, false, err
	}
	for _, r := range rows {
		if r.Dest == dest {
			return r, true, nil
		}
	}
	return DownloadRow{}, false, nil
}
