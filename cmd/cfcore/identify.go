package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jxwalker/cfcore/internal/integrity"
	"github.com/jxwalker/cfcore/internal/scanner"
)

type identified struct {
	Path        string `json:"path"`
	Fingerprint uint32 `json:"fingerprint"`
	ModID       int    `json:"mod_id,omitempty"`
	FileID      int    `json:"file_id,omitempty"`
	FileName    string `json:"file_name,omitempty"`
}

func handleIdentify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("identify", flag.ContinueOnError)
	co := commonFlags(fs)
	dirs := fs.String("dir", "", "comma list of directories to scan for .jar/.zip archives")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, c, err := co.apiClient()
	if err != nil {
		return err
	}
	paths := fs.Args()
	if *dirs != "" {
		res := scanner.New().Scan(strings.Split(*dirs, ","))
		for _, serr := range res.Errors {
			e.log.Warnf("%v", serr)
		}
		paths = append(paths, res.Files...)
	}
	if len(paths) == 0 {
		return errors.New("usage: cfcore identify [--dir DIRS] [FILE...]")
	}
	out := make([]identified, 0, len(paths))
	fps := make([]int64, 0, len(paths))
	for _, p := range paths {
		fp, err := integrity.Fingerprint(p)
		if err != nil {
			return e.friendly(err)
		}
		out = append(out, identified{Path: p, Fingerprint: fp})
		fps = append(fps, int64(fp))
	}
	res, err := c.GetFingerprintMatches(ctx, fps...)
	if err != nil {
		return e.friendly(err)
	}
	byFP := map[int64]int{}
	for i, m := range res.ExactMatches {
		if m.File != nil {
			byFP[m.File.FileFingerprint] = i
		}
	}
	var found int
	for i := range out {
		if j, ok := byFP[int64(out[i].Fingerprint)]; ok {
			f := res.ExactMatches[j].File
			out[i].ModID, out[i].FileID, out[i].FileName = f.ModID, f.ID, f.FileName
			found++
		}
	}
	if *co.jsonOut {
		return printJSON(out)
	}
	t := &table{head: []string{"FINGERPRINT", "MOD", "FILE", "NAME", "PATH"}}
	for _, id := range out {
		if id.ModID == 0 {
			t.add(strconv.FormatUint(uint64(id.Fingerprint), 10), "-", "-", warnStyle.Render("unknown"), id.Path)
			continue
		}
		t.add(strconv.FormatUint(uint64(id.Fingerprint), 10), strconv.Itoa(id.ModID), strconv.Itoa(id.FileID), id.FileName, id.Path)
	}
	t.render(os.Stdout)
	fmt.Fprintf(os.Stderr, "%d of %d identified\n", found, len(out))
	return nil
}
