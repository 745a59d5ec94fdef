package util

import (
	"net/url"
	pathpkg "path"
	"path/filepath"
	"strings"
)

// SafeFileName returns a filename that is safe on every platform we write to.
// Runes outside [A-Za-z0-9._+-] become '-', runs of '-' collapse, and the
// extension is kept. An empty result falls back to "download".
func SafeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "download"
	}
	ext := filepath.Ext(name)
	if ext == "." || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	var b strings.Builder
	prevDash := false
	for _, r := range base {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '_', r == '.', r == '+':
			b.WriteRune(r)
			prevDash = false
		case !prevDash:
			b.WriteByte('-')
			prevDash = true
		}
	}
	clean := strings.Trim(b.String(), "-.")
	if clean == "" {
		clean = "download"
	}
	return clean + ext
}

// URLPathBase returns the unescaped last path element of u, ignoring query and
// fragment. It returns "download" when there is no usable element.
func URLPathBase(u string) string {
	s := strings.TrimSpace(u)
	if s == "" {
		return "download"
	}
	if pu, err := url.Parse(s); err == nil {
		b := pathpkg.Base(pu.Path)
		if b == "" || b == "/" || b == "." {
			return "download"
		}
		return b
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	b := pathpkg.Base(s)
	if b == "" || b == "/" || b == "." {
		return "download"
	}
	return b
}

// DestPath joins root with the expanded layout pattern and fileName. Every
// element produced by the pattern is passed through SafeFileName, and "." or
// ".." elements are dropped, so tokens cannot escape root.
func DestPath(root, layout string, tokens map[string]string, fileName string) string {
	parts := []string{root}
	if dir := ExpandPattern(layout, tokens); dir != "" {
		for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
			switch strings.TrimSpace(seg) {
			case "", ".", "..":
				continue
			}
			parts = append(parts, SafeFileName(seg))
		}
	}
	parts = append(parts, SafeFileName(fileName))
	return filepath.Join(parts...)
}
