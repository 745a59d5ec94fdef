package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jxwalker/cfcore/internal/config"
)

// Manager accumulates counters and writes them as a Prometheus textfile.
// A nil *Manager is valid and records nothing.
type Manager struct {
	path string
	mu   sync.Mutex

	bytesTotal       int64
	downloadsSuccess int64
	downloadsFailed  int64
	verifyMismatch   int64
	verifySkipped    int64
	redirectsTotal   int64
	lastDownloadSec  float64
}

func New(cfg *config.Config) *Manager {
	if cfg == nil || !cfg.Metrics.PrometheusTextfile.Enabled || cfg.Metrics.PrometheusTextfile.Path == "" {
		return nil
	}
	p := cfg.Metrics.PrometheusTextfile.Path
	_ = os.MkdirAll(filepath.Dir(p), 0o755)
	return &Manager{path: p}
}

func (m *Manager) AddBytes(n int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.bytesTotal += n
	m.mu.Unlock()
}

func (m *Manager) AddRedirects(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.redirectsTotal += int64(n)
	m.mu.Unlock()
}

func (m *Manager) IncDownloadsSuccess() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.downloadsSuccess++
	m.mu.Unlock()
}

func (m *Manager) IncDownloadsFailed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.downloadsFailed++
	m.mu.Unlock()
}

func (m *Manager) IncVerifyMismatch() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.verifyMismatch++
	m.mu.Unlock()
}

func (m *Manager) IncVerifySkipped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.verifySkipped++
	m.mu.Unlock()
}

func (m *Manager) ObserveDownloadSeconds(sec float64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.lastDownloadSec = sec
	m.mu.Unlock()
}

type sample struct {
	name, help, kind string
	value            string
}

// Write replaces the textfile atomically.
func (m *Manager) Write() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := os.CreateTemp(filepath.Dir(m.path), ".metrics.tmp.*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	samples := []sample{
		{"cfcore_bytes_downloaded_total", "Total bytes downloaded.", "counter", fmt.Sprintf("%d", m.bytesTotal)},
		{"cfcore_redirects_followed_total", "Total HTTP redirects followed by the fetcher.", "counter", fmt.Sprintf("%d", m.redirectsTotal)},
		{"cfcore_downloads_success_total", "Total successful downloads.", "counter", fmt.Sprintf("%d", m.downloadsSuccess)},
		{"cfcore_downloads_failed_total", "Total downloads that failed to fetch.", "counter", fmt.Sprintf("%d", m.downloadsFailed)},
		{"cfcore_verify_mismatch_total", "Total downloads whose digest did not match.", "counter", fmt.Sprintf("%d", m.verifyMismatch)},
		{"cfcore_verify_skipped_total", "Total downloads with no usable declared digest.", "counter", fmt.Sprintf("%d", m.verifySkipped)},
		{"cfcore_last_download_seconds", "Duration of the last completed download in seconds.", "gauge", fmt.Sprintf("%.6f", m.lastDownloadSec)},
		{"cfcore_metrics_timestamp_seconds", "UNIX timestamp when this file was written.", "gauge", fmt.Sprintf("%d", time.Now().Unix())},
	}
	for _, s := range samples {
		fmt.Fprintf(f, "# HELP %s %s\n", s.name, s.help)
		fmt.Fprintf(f, "# TYPE %s %s\n", s.name, s.kind)
		fmt.Fprintf(f, "%s %s\n", s.name, s.value)
	}

	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), m.path)
}
