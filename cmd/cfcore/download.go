package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jxwalker/cfcore/internal/batch"
	"github.com/jxwalker/cfcore/internal/curseforge"
	"github.com/jxwalker/cfcore/internal/deps"
	"github.com/jxwalker/cfcore/internal/downloader"
	friendlyerrors "github.com/jxwalker/cfcore/internal/errors"
	"github.com/jxwalker/cfcore/internal/integrity"
	"github.com/jxwalker/cfcore/internal/metrics"
)

type downloadSummary struct {
	ModID     int     `json:"mod_id,omitempty"`
	FileID    int     `json:"file_id,omitempty"`
	Dest      string  `json:"dest"`
	Bytes     int64   `json:"bytes"`
	Redirects int     `json:"redirects"`
	Verified  bool    `json:"verified"`
	Algo      string  `json:"algo,omitempty"`
	Digest    string  `json:"digest,omitempty"`
	Status    string  `json:"status"`
	Seconds   float64 `json:"seconds"`
}

func summarize(modID, fileID int, res *downloader.Result) downloadSummary {
	s := downloadSummary{
		ModID:     modID,
		FileID:    fileID,
		Dest:      res.Path,
		Bytes:     res.Bytes,
		Redirects: res.Redirects,
		Verified:  res.Verify && res.Outcome.Performed && res.Outcome.Matched,
		Seconds:   res.Duration.Seconds(),
	}
	switch {
	case !res.Verify:
		s.Status = "complete"
	case !res.Outcome.Performed:
		s.Status = "unverified"
	case res.Outcome.Matched:
		s.Status = "verified"
	default:
		s.Status = "checksum_mismatch"
	}
	if res.Outcome.Performed {
		s.Algo = res.Outcome.Algo.String()
		s.Digest = res.Outcome.Actual
	}
	return s
}

func handleDownload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	co := commonFlags(fs)
	modID := fs.Int("mod", 0, "mod id")
	fileID := fs.Int("file", 0, "file id")
	url := fs.String("url", "", "direct URL to download instead of --mod/--file")
	sha1 := fs.String("sha1", "", "expected SHA1 for --url (optional)")
	md5 := fs.String("md5", "", "expected MD5 for --url (optional)")
	dest := fs.String("dest", "", "destination path (optional)")
	noVerify := fs.Bool("no-verify", false, "skip hash verification")
	withDeps := fs.String("with-deps", "", "also download dependencies of these relations (comma list, e.g. required,optional)")
	batchPath := fs.String("batch", "", "YAML file of download jobs")
	quiet := fs.Bool("quiet", false, "suppress progress and info logs (errors only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *quiet && !*co.jsonOut {
		*co.logLevel = "error"
	}

	var jobs []batch.Job
	if *batchPath != "" {
		bf, err := batch.Load(*batchPath)
		if err != nil {
			return friendlyerrors.NewFriendlyError("Invalid batch file: "+*batchPath, err.Error()).WithDetails(err)
		}
		jobs = bf.Jobs
	} else {
		j := batch.Job{Mod: *modID, File: *fileID, URL: *url, SHA1: *sha1, MD5: *md5, Dest: *dest}
		if strings.TrimSpace(*withDeps) != "" {
			j.WithDeps = strings.Split(*withDeps, ",")
		}
		if j.URL == "" && (j.Mod <= 0 || j.File <= 0) {
			return errors.New("--mod and --file are required (or use --url or --batch)")
		}
		jobs = []batch.Job{j}
	}

	e, err := co.load()
	if err != nil {
		return err
	}
	lock, err := e.lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	st, err := e.openState()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	r := &jobRunner{
		e:        e,
		co:       co,
		dl:       downloader.New(e.cfg, e.log, st, metrics.New(e.cfg)),
		verify:   e.cfg.VerifyDownloads() && !*noVerify,
		progress: !*quiet && !*co.jsonOut,
	}
	var mismatched int
	for i, j := range jobs {
		n, err := r.run(ctx, j)
		if err != nil {
			if len(jobs) > 1 {
				return fmt.Errorf("job %d: %w", i+1, err)
			}
			return err
		}
		mismatched += n
	}
	if mismatched > 0 {
		return fmt.Errorf("%d file(s) failed hash verification", mismatched)
	}
	return nil
}

// jobRunner downloads batch jobs through one downloader so they share the
// ledger, metrics and the API client.
type jobRunner struct {
	e        *env
	co       common
	dl       *downloader.Downloader
	client   *curseforge.Client
	verify   bool
	progress bool
}

// run performs one job and returns how many of its files failed verification.
func (r *jobRunner) run(ctx context.Context, j batch.Job) (int, error) {
	verify := r.verify
	if j.Verify != nil {
		verify = *j.Verify && r.verify
	}
	if j.URL != "" {
		var digests []integrity.Digest
		if j.SHA1 != "" {
			digests = append(digests, integrity.Digest{Value: j.SHA1, Algo: integrity.SHA1})
		}
		if j.MD5 != "" {
			digests = append(digests, integrity.Digest{Value: j.MD5, Algo: integrity.MD5})
		}
		req := downloader.Request{URL: j.URL, Dest: j.Dest, Digests: digests, Verify: verify}
		p := r.progressFor("")
		if p != nil {
			req.Progress = p.update
		}
		res, err := r.dl.Download(ctx, req)
		p.done()
		if err != nil {
			return 0, r.e.friendly(err)
		}
		return r.report(0, 0, res)
	}

	relations, err := parseRelations(strings.Join(j.WithDeps, ","))
	if err != nil {
		return 0, err
	}
	if r.client == nil {
		c, err := curseforge.New(r.e.cfg, r.e.log, curseforge.WithDownloader(r.dl))
		if err != nil {
			return 0, r.e.friendly(err)
		}
		r.client = c
	}
	file, err := r.client.GetFile(ctx, curseforge.ID(j.Mod), j.File)
	if err != nil {
		return 0, r.e.friendly(err)
	}
	files := []*curseforge.File{file}
	if len(relations) > 0 {
		depFiles, err := file.GetDependencies(ctx, relations...)
		if err != nil {
			return 0, r.e.friendly(err)
		}
		r.e.log.Infof("resolved %d dependencies", len(depFiles))
		files = append(files, depFiles...)
	}

	var mismatched int
	for i, f := range files {
		opts := curseforge.DownloadOptions{Verify: verify}
		if i == 0 {
			opts.Dest = j.Dest
		}
		p := r.progressFor(f.FileName)
		if p != nil {
			opts.Progress = p.update
		}
		res, err := f.DownloadFile(ctx, opts)
		p.done()
		if err != nil {
			return mismatched, r.e.friendly(fmt.Errorf("mod %d file %d: %w", f.ModID, f.ID, err))
		}
		n, err := r.report(f.ModID, f.ID, res)
		if err != nil {
			return mismatched, err
		}
		mismatched += n
	}
	return mismatched, nil
}

func (r *jobRunner) progressFor(label string) *progressPrinter {
	if !r.progress {
		return nil
	}
	return newProgressPrinter(os.Stderr, label)
}

func (r *jobRunner) report(modID, fileID int, res *downloader.Result) (int, error) {
	if err := reportDownload(r.co, summarize(modID, fileID, res)); err != nil {
		return 0, err
	}
	if !res.OK() {
		return 1, nil
	}
	return 0, nil
}

func reportDownload(co common, s downloadSummary) error {
	if *co.jsonOut {
		return printJSON(s)
	}
	fmt.Printf("%s  %s  %s in %s\n", s.Status, s.Dest, humanize.Bytes(uint64(s.Bytes)), time.Duration(s.Seconds*float64(time.Second)).Round(time.Millisecond))
	return nil
}

func parseRelations(s string) ([]deps.Relation, error) {
	var out []deps.Relation
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := deps.ParseRelation(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
