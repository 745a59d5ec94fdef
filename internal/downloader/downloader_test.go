package downloader

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jxwalker/cfcore/internal/config"
	"github.com/jxwalker/cfcore/internal/integrity"
	"github.com/jxwalker/cfcore/internal/logging"
	"github.com/jxwalker/cfcore/internal/state"
	"github.com/jxwalker/cfcore/internal/testutil"
)

var payload = []byte{0x01, 0x02, 0x03}

func sha1Hex(b []byte) string { s := sha1.Sum(b); return hex.EncodeToString(s[:]) }
func md5Hex(b []byte) string  { s := md5.Sum(b); return hex.EncodeToString(s[:]) }

// cdnServer answers /files/x.jar with a 302 to /edge/x.jar which serves payload.
func cdnServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/x.jar", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/edge/x.jar", http.StatusFound)
	})
	mux.HandleFunc("/edge/x.jar", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})
	mux.HandleFunc("/missing.jar", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestDownloader(t *testing.T) (*Downloader, *state.DB, *config.Config) {
	t.Helper()
	cfg := testutil.LoadConfig(t, "network:", "  max_redirects: 5")
	st, err := state.Open(cfg)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(cfg, logging.Discard(), st, nil), st, cfg
}

func statusOf(t *testing.T, st *state.DB, dest string) string {
	t.Helper()
	row, ok, err := st.FindByDest(dest)
	if err != nil || !ok {
		t.Fatalf("no ledger row for %s: %v", dest, err)
	}
	return row.Status
}

func TestDownloadRedirectThenVerify(t *testing.T) {
	ts := cdnServer(t)
	for _, single := range []bool{false, true} {
		d, st, _ := newTestDownloader(t)
		d.SinglePass(single)
		dest := filepath.Join(t.TempDir(), "x.jar")
		res, err := d.Download(context.Background(), Request{
			URL:     ts.URL + "/files/x.jar",
			Dest:    dest,
			Verify:  true,
			Digests: []integrity.Digest{{Value: strings.ToUpper(sha1Hex(payload)), Algo: integrity.SHA1}},
			ModID:   1,
			FileID:  2,
		})
		if err != nil {
			t.Fatalf("single=%v: download: %v", single, err)
		}
		if !res.OK() || !res.Outcome.Performed || res.Redirects != 1 {
			t.Fatalf("single=%v: unexpected result %+v", single, res)
		}
		if b, _ := os.ReadFile(dest); string(b) != string(payload) {
			t.Fatalf("single=%v: dest content %v", single, b)
		}
		if s := statusOf(t, st, dest); s != state.StatusVerified {
			t.Fatalf("single=%v: status=%s", single, s)
		}
	}
}

func TestDownloadMismatchReturnsFalse(t *testing.T) {
	ts := cdnServer(t)
	for _, single := range []bool{false, true} {
		d, st, _ := newTestDownloader(t)
		d.SinglePass(single)
		dest := filepath.Join(t.TempDir(), "x.jar")
		res, err := d.Download(context.Background(), Request{
			URL:    ts.URL + "/files/x.jar",
			Dest:   dest,
			Verify: true,
			Digests: []integrity.Digest{
				{Value: md5Hex(payload), Algo: integrity.MD5},
				{Value: strings.Repeat("0", 40), Algo: integrity.SHA1},
			},
		})
		if err != nil {
			t.Fatalf("single=%v: mismatch must not be an error: %v", single, err)
		}
		if res.OK() {
			t.Fatalf("single=%v: SHA1 mismatch should win over matching MD5", single)
		}
		if res.Outcome.Algo != integrity.SHA1 {
			t.Fatalf("single=%v: algo=%v", single, res.Outcome.Algo)
		}
		if _, err := os.Stat(dest); err != nil {
			t.Fatalf("single=%v: file should be kept after mismatch: %v", single, err)
		}
		if s := statusOf(t, st, dest); s != state.StatusChecksumMismatch {
			t.Fatalf("single=%v: status=%s", single, s)
		}
	}
}

func TestDownloadWithoutVerify(t *testing.T) {
	ts := cdnServer(t)
	d, st, _ := newTestDownloader(t)
	dest := filepath.Join(t.TempDir(), "x.jar")
	res, err := d.Download(context.Background(), Request{
		URL:     ts.URL + "/files/x.jar",
		Dest:    dest,
		Digests: []integrity.Digest{{Value: strings.Repeat("0", 40), Algo: integrity.SHA1}},
	})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !res.OK() || res.Outcome.Performed {
		t.Fatalf("verify=false should report true without hashing: %+v", res)
	}
	if s := statusOf(t, st, dest); s != state.StatusComplete {
		t.Fatalf("status=%s", s)
	}
}

func TestDownloadNoDigestSkipsVerification(t *testing.T) {
	ts := cdnServer(t)
	d, _, _ := newTestDownloader(t)
	res, err := d.Download(context.Background(), Request{
		URL:     ts.URL + "/files/x.jar",
		Dest:    filepath.Join(t.TempDir(), "x.jar"),
		Verify:  true,
		Digests: []integrity.Digest{{Value: "abc", Algo: integrity.Algorithm(99)}},
	})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !res.OK() || res.Outcome.Performed {
		t.Fatalf("unsupported digest should skip verification: %+v", res)
	}
}

func TestDownloadDefaultDestination(t *testing.T) {
	ts := cdnServer(t)
	d, _, cfg := newTestDownloader(t)
	res, err := d.Download(context.Background(), Request{URL: ts.URL + "/files/x.jar"})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if want := filepath.Join(cfg.General.DownloadRoot, "x.jar"); res.Path != want {
		t.Fatalf("path=%s want %s", res.Path, want)
	}
}

func TestDownloadFailureRecorded(t *testing.T) {
	ts := cdnServer(t)
	d, st, _ := newTestDownloader(t)
	dest := filepath.Join(t.TempDir(), "missing.jar")
	_, err := d.Download(context.Background(), Request{URL: ts.URL + "/missing.jar", Dest: dest, Verify: true})
	if code, ok := StatusCode(err); !ok || code != http.StatusNotFound {
		t.Fatalf("expected 404 FetchError, got %v", err)
	}
	row, ok, _ := st.FindByDest(dest)
	if !ok || row.Status != state.StatusError || row.LastError == "" {
		t.Fatalf("unexpected ledger row: %+v", row)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("dest should be absent")
	}
}

func TestDownloadRequiresURL(t *testing.T) {
	d, _, _ := newTestDownloader(t)
	if _, err := d.Download(context.Background(), Request{}); !errors.Is(err, ErrNoDownloadURL) {
		t.Fatalf("expected ErrNoDownloadURL, got %v", err)
	}
}

func TestDownloadRefusesWhenSpaceShort(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(payload)
	}))
	defer ts.Close()
	d, st, _ := newTestDownloader(t)
	dest := filepath.Join(t.TempDir(), "huge.jar")
	_, err := d.Download(context.Background(), Request{URL: ts.URL + "/huge.jar", Dest: dest, Size: 1 << 60})
	var de *DownloadError
	if !errors.Is(err, ErrInsufficientSpace) || !errors.As(err, &de) || de.Op != "space" {
		t.Fatalf("expected space DownloadError, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("server should not be contacted, hits=%d", hits)
	}
	if got := statusOf(t, st, dest); got != state.StatusError {
		t.Fatalf("status=%s", got)
	}
}

type countingMetrics struct {
	noopMetrics
	success, failed int
}

func (m *countingMetrics) IncDownloadsSuccess() { m.success++ }
func (m *countingMetrics) IncDownloadsFailed()  { m.failed++ }

func TestDownloadFetchFailureIsDownloadError(t *testing.T) {
	ts := cdnServer(t)
	_, st, cfg := newTestDownloader(t)
	m := &countingMetrics{}
	d := New(cfg, logging.Discard(), st, m)
	dest := filepath.Join(t.TempDir(), "missing.jar")
	_, err := d.Download(context.Background(), Request{URL: ts.URL + "/missing.jar?token=s3cret", Dest: dest, Verify: true})
	var de *DownloadError
	if !errors.As(err, &de) || de.Op != "fetch" || de.Path != dest {
		t.Fatalf("expected fetch DownloadError, got %#v", err)
	}
	if strings.Contains(de.URL, "s3cret") {
		t.Fatalf("DownloadError URL not sanitized: %s", de.URL)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("FetchError should stay reachable through Unwrap: %v", err)
	}
	if m.success != 0 || m.failed != 1 {
		t.Fatalf("success=%d failed=%d", m.success, m.failed)
	}
}

func TestDownloadCountsSuccessAfterVerification(t *testing.T) {
	ts := cdnServer(t)
	_, st, cfg := newTestDownloader(t)
	m := &countingMetrics{}
	d := New(cfg, logging.Discard(), st, m)
	dest := filepath.Join(t.TempDir(), "x.jar")
	res, err := d.Download(context.Background(), Request{
		URL:     ts.URL + "/files/x.jar",
		Dest:    dest,
		Verify:  true,
		Digests: []integrity.Digest{{Value: sha1Hex(payload), Algo: integrity.SHA1}},
	})
	if err != nil || !res.OK() {
		t.Fatalf("download: res=%+v err=%v", res, err)
	}
	if m.success != 1 || m.failed != 0 {
		t.Fatalf("success=%d failed=%d", m.success, m.failed)
	}
}
