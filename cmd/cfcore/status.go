package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jxwalker/cfcore/internal/state"
)

func handleStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	co := commonFlags(fs)
	onlyErrors := fs.Bool("only-errors", false, "show only failed or mismatched downloads")
	summary := fs.Bool("summary", false, "print totals only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := co.load()
	if err != nil {
		return err
	}
	st, err := e.openState()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return renderStatus(st, *onlyErrors, *summary, *co.jsonOut, os.Stdout)
}

func renderStatus(st *state.DB, onlyErrors, summary, jsonOut bool, out io.Writer) error {
	if summary {
		s, err := st.GetStats()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSONTo(out, s)
		}
		fmt.Fprintf(out, "downloads: %d  verified: %s  mismatched: %s  failed: %s  bytes: %s\n",
			s.Downloads,
			okStyle.Render(fmt.Sprint(s.Verified)),
			badStyle.Render(fmt.Sprint(s.Mismatched)),
			badStyle.Render(fmt.Sprint(s.Failed)),
			humanize.Bytes(uint64(s.Bytes)))
		return nil
	}
	rows, err := st.ListDownloads()
	if err != nil {
		return err
	}
	if onlyErrors {
		kept := rows[:0]
		for _, r := range rows {
			if r.Status == state.StatusError || r.Status == state.StatusChecksumMismatch {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	if jsonOut {
		if rows == nil {
			rows = []state.DownloadRow{}
		}
		return printJSONTo(out, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, faint.Render("no downloads recorded"))
		return nil
	}
	t := &table{head: []string{"STATUS", "SIZE", "UPDATED", "DEST", "ERROR"}}
	for _, r := range rows {
		t.add(statusCell(r.Status), humanize.Bytes(uint64(r.Size)), humanize.Time(time.Unix(r.UpdatedAt, 0)), r.Dest, r.LastError)
	}
	t.render(out)
	return nil
}
