package state

import (
	"testing"

	"github.com/jxwalker/cfcore/internal/config"
)

func TestUpsertAndList(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	row := DownloadRow{URL: "https://edge.example/a.jar", Dest: "/tmp/a.jar", ModID: 10, FileID: 20, Status: StatusPlanning}
	if err := db.UpsertDownload(row); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	row.Status = StatusVerified
	row.Algo = "sha1"
	row.ActualDigest = "abc"
	row.Size = 3
	if err := db.UpsertDownload(row); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	rows, err := db.ListDownloads()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1 (url+dest is unique)", len(rows))
	}
	if rows[0].Status != StatusVerified || rows[0].ModID != 10 || rows[0].ActualDigest != "abc" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	got, ok, err := db.FindByDest("/tmp/a.jar")
	if err != nil || !ok || got.FileID != 20 {
		t.Fatalf("FindByDest=%+v ok=%v err=%v", got, ok, err)
	}

	_ = db.UpsertDownload(DownloadRow{URL: "https://edge.example/b.jar", Dest: "/tmp/b.jar", Status: StatusChecksumMismatch, Size: 5})
	st, err := db.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Downloads != 2 || st.Verified != 1 || st.Mismatched != 1 || st.Bytes != 8 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if err := db.CheckIntegrity(); err != nil {
		t.Fatalf("integrity: %v", err)
	}
}

func TestOpenOnDisk(t *testing.T) {
	cfg := config.Default(t.TempDir())
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if db.Path == "" {
		t.Fatalf("expected path")
	}
	if err := db.DeleteDownload("x", "y"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestNilDBDropsWrites(t *testing.T) {
	var db *DB
	if err := db.UpsertDownload(DownloadRow{URL: "u", Dest: "d"}); err != nil {
		t.Fatalf("nil upsert: %v", err)
	}
	if _, err := db.ListDownloads(); err == nil {
		t.Fatalf("nil list should fail")
	}
}
