package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jxwalker/cfcore/internal/config"
	"github.com/jxwalker/cfcore/internal/integrity"
	"github.com/jxwalker/cfcore/internal/logging"
	"github.com/jxwalker/cfcore/internal/state"
	"github.com/jxwalker/cfcore/internal/system"
	"github.com/jxwalker/cfcore/internal/util"
)

// Metrics is the subset of *metrics.Manager the downloader reports to.
type Metrics interface {
	AddBytes(int64)
	AddRedirects(int)
	IncDownloadsSuccess()
	IncDownloadsFailed()
	IncVerifyMismatch()
	IncVerifySkipped()
	ObserveDownloadSeconds(float64)
	Write() error
}

type noopMetrics struct{}

func (noopMetrics) AddBytes(int64)                 {}
func (noopMetrics) AddRedirects(int)               {}
func (noopMetrics) IncDownloadsSuccess()           {}
func (noopMetrics) IncDownloadsFailed()            {}
func (noopMetrics) IncVerifyMismatch()             {}
func (noopMetrics) IncVerifySkipped()              {}
func (noopMetrics) ObserveDownloadSeconds(float64) {}
func (noopMetrics) Write() error                   { return nil }

// Request is one file to download.
type Request struct {
	URL  string
	Dest string // empty: download_root + last URL segment
	// Digests are the server-declared hashes; SHA1 is preferred over MD5.
	Digests []integrity.Digest
	Verify  bool
	// ModID and FileID are recorded in the ledger when known.
	ModID  int
	FileID int
	// Size is the expected length; when positive, free space is checked
	// before any bytes are fetched.
	Size     int64
	Progress ProgressFunc
}

type Result struct {
	Path      string
	Bytes     int64
	FinalURL  string
	Redirects int
	Verify    bool
	Outcome   integrity.Outcome
	Duration  time.Duration
}

// OK is true when verification was not requested, was skipped for lack of a
// digest, or matched.
func (r *Result) OK() bool {
	return r != nil && (!r.Verify || r.Outcome.OK())
}

// Downloader runs fetch then verify and records each step in the ledger.
type Downloader struct {
	cfg        *config.Config
	log        *logging.Logger
	st         *state.DB
	m          Metrics
	fetcher    *Fetcher
	singlePass bool
}

// New builds a Downloader. st and m may be nil.
func New(cfg *config.Config, log *logging.Logger, st *state.DB, m Metrics) *Downloader {
	if m == nil {
		m = noopMetrics{}
	}
	f := NewFetcher(cfg, log)
	f.onRedirects = m.AddRedirects
	d := &Downloader{cfg: cfg, log: log, st: st, m: m, fetcher: f}
	if cfg != nil {
		d.singlePass = cfg.Validation.SinglePass
	}
	return d
}

func (d *Downloader) Fetcher() *Fetcher { return d.fetcher }

// SinglePass toggles hashing while writing instead of a second read pass.
func (d *Downloader) SinglePass(on bool) *Downloader {
	d.singlePass = on
	return d
}

func (d *Downloader) Download(ctx context.Context, req Request) (*Result, error) {
	if req.URL == "" {
		return nil, ErrNoDownloadURL
	}
	dest := req.Dest
	if dest == "" {
		if d.cfg == nil {
			return nil, errors.New("destination path required")
		}
		dest = util.DestPath(d.cfg.General.DownloadRoot, "", nil, util.URLPathBase(req.URL))
	}
	row := state.DownloadRow{URL: req.URL, Dest: dest, ModID: req.ModID, FileID: req.FileID, Status: state.StatusPlanning}
	if sel, ok := integrity.Select(req.Digests); ok {
		row.Algo = sel.Algo.String()
		row.ExpectedDigest = sel.Value
	}
	d.record(row)

	if err := d.preflight(req, dest); err != nil {
		d.log.Errorf("download %s: %v", logging.SanitizeURL(req.URL), err)
		row.Status = state.StatusError
		row.LastError = err.Error()
		d.record(row)
		d.m.IncDownloadsFailed()
		d.flushMetrics()
		return nil, err
	}

	var opts []FetchOption
	if req.Progress != nil {
		opts = append(opts, WithProgress(req.Progress))
	}
	var acc *integrity.Accumulator
	if req.Verify && d.singlePass {
		acc = integrity.NewAccumulator(req.Digests)
		if acc != nil {
			opts = append(opts, WithTee(acc))
		}
	}

	start := time.Now()
	fr, err := d.fetcher.Fetch(ctx, req.URL, dest, opts...)
	if err != nil {
		d.log.Errorf("download %s: %v", logging.SanitizeURL(req.URL), err)
		row.Status = state.StatusError
		row.LastError = err.Error()
		d.record(row)
		d.m.IncDownloadsFailed()
		d.flushMetrics()
		var de *DownloadError
		if !errors.As(err, &de) {
			err = &DownloadError{Op: "fetch", URL: logging.SanitizeURL(req.URL), Path: dest, Err: err}
		}
		return nil, err
	}
	res := &Result{Path: dest, Bytes: fr.Bytes, FinalURL: fr.FinalURL, Redirects: fr.Redirects, Verify: req.Verify}
	row.Size = fr.Bytes
	d.m.AddBytes(fr.Bytes)

	if !req.Verify {
		row.Status = state.StatusComplete
		return d.finish(res, row, start), nil
	}

	if d.singlePass {
		res.Outcome = acc.Outcome()
	} else {
		out, verr := integrity.VerifyFile(dest, req.Digests)
		if verr != nil {
			row.Status = state.StatusError
			row.LastError = verr.Error()
			d.record(row)
			d.m.IncDownloadsFailed()
			d.flushMetrics()
			return nil, &DownloadError{Op: "verify", URL: logging.SanitizeURL(req.URL), Path: dest, Err: verr}
		}
		res.Outcome = out
	}

	switch {
	case !res.Outcome.Performed:
		d.log.Infof("no usable digest for %s; skipping verification", dest)
		d.m.IncVerifySkipped()
		row.Status = state.StatusComplete
	case res.Outcome.Matched:
		row.Status = state.StatusVerified
		row.ActualDigest = res.Outcome.Actual
	default:
		d.log.Warnf("%s mismatch for %s: expected=%s actual=%s", res.Outcome.Algo, dest, res.Outcome.Expected, res.Outcome.Actual)
		d.m.IncVerifyMismatch()
		row.Status = state.StatusChecksumMismatch
		row.ActualDigest = res.Outcome.Actual
	}
	return d.finish(res, row, start), nil
}

// preflight refuses a download whose declared size would not fit in the
// destination filesystem. An unreadable filesystem is not fatal.
func (d *Downloader) preflight(req Request, dest string) error {
	if req.Size <= 0 {
		return nil
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &DownloadError{Op: "create", URL: logging.SanitizeURL(req.URL), Path: dir, Err: err}
	}
	ok, avail, err := system.HasSufficientSpace(dir, uint64(req.Size))
	if err != nil {
		d.log.Debugf("space check skipped: %v", err)
		return nil
	}
	if !ok {
		return &DownloadError{
			Op:   "space",
			URL:  logging.SanitizeURL(req.URL),
			Path: dir,
			Err:  fmt.Errorf("%w: need %d bytes, %d available", ErrInsufficientSpace, req.Size, avail),
		}
	}
	return nil
}

func (d *Downloader) finish(res *Result, row state.DownloadRow, start time.Time) *Result {
	res.Duration = time.Since(start)
	d.record(row)
	d.m.IncDownloadsSuccess()
	d.m.ObserveDownloadSeconds(res.Duration.Seconds())
	d.flushMetrics()
	d.log.Infof("downloaded %s (%d bytes, %s)", res.Path, res.Bytes, row.Status)
	return res
}

func (d *Downloader) record(row state.DownloadRow) {
	if err := d.st.UpsertDownload(row); err != nil {
		d.log.Warnf("state: %v", err)
	}
}

func (d *Downloader) flushMetrics() {
	if err := d.m.Write(); err != nil {
		d.log.Warnf("metrics: %v", err)
	}
}
