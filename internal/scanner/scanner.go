// Package scanner finds installed mod archives on disk so they can be
// fingerprinted and matched against the API.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the archive types mod loaders pick up.
var DefaultExtensions = []string{".jar", ".zip", ".litemod"}

// Scanner walks directories for files with one of its extensions.
type Scanner struct {
	Extensions []string
	// Progress, when set, is called for each matched file.
	Progress func(path string, found int)
}

func New() *Scanner { return &Scanner{Extensions: DefaultExtensions} }

// ScanResult lists matched files in lexical order. Errors collects
// per-directory failures; a failing directory does not stop the others.
type ScanResult struct {
	Files   []string
	Skipped int
	Errors  []error
}

func (s *Scanner) Scan(dirs []string) *ScanResult {
	res := &ScanResult{}
	seen := map[string]bool{}
	for _, dir := range dirs {
		if err := s.scanDirectory(dir, res, seen); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("scanning %s: %w", dir, err))
		}
	}
	sort.Strings(res.Files)
	return res
}

func (s *Scanner) scanDirectory(dir string, res *ScanResult, seen map[string]bool) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) && path != dir {
				return filepath.SkipDir
			}
			if path == dir {
				return err
			}
			return nil
		}
		if info.IsDir() {
			if path != dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !s.matches(path) {
			res.Skipped++
			return nil
		}
		if seen[path] {
			return nil
		}
		seen[path] = true
		res.Files = append(res.Files, path)
		if s.Progress != nil {
			s.Progress(path, len(res.Files))
		}
		return nil
	})
}

func (s *Scanner) matches(path string) bool {
	exts := s.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
