package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jxwalker/cfcore/internal/integrity"
	"github.com/jxwalker/cfcore/internal/logging"
	"github.com/jxwalker/cfcore/internal/state"
)

type verifyResult struct {
	Dest     string `json:"dest"`
	Status   string `json:"status"`
	Algo     string `json:"algo,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error,omitempty"`
}

func handleVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	co := commonFlags(fs)
	path := fs.String("path", "", "re-verify one downloaded file")
	all := fs.Bool("all", false, "re-verify every file in the ledger")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*path == "") == !*all {
		return errors.New("exactly one of --path or --all is required")
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
	return runVerify(ctx, st, e.log, *path, *co.jsonOut, os.Stdout)
}

// runVerify re-hashes ledger rows and writes the new status back. Rows
// without a recorded digest are reported and left alone.
func runVerify(ctx context.Context, st *state.DB, log *logging.Logger, path string, jsonOut bool, out io.Writer) error {
	rows, err := st.ListDownloads()
	if err != nil {
		return err
	}
	if path != "" {
		rows = rowsForPath(rows, path)
		if len(rows) == 0 {
			return fmt.Errorf("no ledger entry for %s", path)
		}
	}
	var results []verifyResult
	var bad int
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Status == state.StatusPlanning || r.Status == state.StatusError {
			continue
		}
		vr := verifyRow(st, log, r)
		if vr.Status == state.StatusChecksumMismatch || vr.Status == state.StatusError {
			bad++
		}
		results = append(results, vr)
	}
	if jsonOut {
		if err := printJSONTo(out, results); err != nil {
			return err
		}
	} else {
		t := &table{head: []string{"STATUS", "ALGO", "DEST"}}
		for _, vr := range results {
			t.add(statusCell(vr.Status), vr.Algo, vr.Dest)
		}
		t.render(out)
	}
	if bad > 0 {
		return fmt.Errorf("%d file(s) failed verification", bad)
	}
	return nil
}

func rowsForPath(rows []state.DownloadRow, path string) []state.DownloadRow {
	abs, _ := filepath.Abs(path)
	for _, r := range rows {
		if r.Dest == path || r.Dest == abs {
			return []state.DownloadRow{r}
		}
	}
	return nil
}

func verifyRow(st *state.DB, log *logging.Logger, r state.DownloadRow) verifyResult {
	vr := verifyResult{Dest: r.Dest, Algo: r.Algo, Expected: r.ExpectedDigest}
	algo, ok := integrity.ParseAlgorithm(r.Algo)
	if !ok || r.ExpectedDigest == "" {
		vr.Status = "unverified"
		return vr
	}
	o, err := integrity.VerifyFile(r.Dest, []integrity.Digest{{Value: r.ExpectedDigest, Algo: algo}})
	switch {
	case err != nil:
		vr.Status = state.StatusError
		vr.Error = err.Error()
		r.LastError = err.Error()
	case o.Matched:
		vr.Status = state.StatusVerified
		r.LastError = ""
	default:
		vr.Status = state.StatusChecksumMismatch
		r.LastError = ""
	}
	vr.Actual = o.Actual
	r.Status = vr.Status
	if o.Performed {
		r.ActualDigest = o.Actual
	}
	if err := st.UpsertDownload(r); err != nil {
		log.Warnf("ledger update for %s: %v", r.Dest, err)
	}
	if vr.Status != state.StatusVerified {
		log.Warnf("%s: %s", vr.Status, r.Dest)
	}
	return vr
}
